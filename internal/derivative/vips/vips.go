// Package vips implements the derivative codec on libvips.
package vips

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	govips "github.com/davidbyttow/govips/v2/vips"

	"git.home.luguber.info/inful/sitebuild/internal/responsive"
)

// Startup initialises libvips. concurrency is the number of libvips worker
// threads per operation (0 = auto). Call once before using Codec.
func Startup(concurrency int) {
	govips.LoggingSettings(nil, govips.LogLevelWarning)
	govips.Startup(&govips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024,
	})
	slog.Debug("libvips started", "version", govips.Version)
}

// Shutdown releases libvips resources.
func Shutdown() {
	govips.Shutdown()
}

// Codec decodes with libvips, honours EXIF orientation and strips metadata.
type Codec struct{}

// Width returns the width after EXIF auto-rotation.
func (Codec) Width(path string) (int, error) {
	img, err := load(path)
	if err != nil {
		return 0, err
	}
	defer img.Close()
	return img.Width(), nil
}

// Encode resizes src to width (never enlarging) and writes it to dst.
func (Codec) Encode(ctx context.Context, src, dst string, width int, format responsive.Format) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := load(src)
	if err != nil {
		return err
	}
	defer img.Close()

	if width > 0 && width < img.Width() {
		scale := float64(width) / float64(img.Width())
		if err := img.Resize(scale, govips.KernelLanczos3); err != nil {
			return fmt.Errorf("vips: resize %s to %dpx: %w", src, width, err)
		}
	}

	buf, err := export(img, format)
	if err != nil {
		return fmt.Errorf("vips: export %s as %s: %w", src, format, err)
	}
	return os.WriteFile(dst, buf, 0o644)
}

func load(path string) (*govips.ImageRef, error) {
	img, err := govips.NewImageFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("vips: load %s: %w", path, err)
	}
	if err := img.AutoRotate(); err != nil {
		img.Close()
		return nil, fmt.Errorf("vips: autorotate %s: %w", path, err)
	}
	return img, nil
}

func export(img *govips.ImageRef, format responsive.Format) ([]byte, error) {
	var (
		buf []byte
		err error
	)
	switch strings.ToLower(string(format)) {
	case string(responsive.FormatAVIF):
		p := govips.NewAvifExportParams()
		p.Quality = responsive.QualityAVIF
		p.StripMetadata = true
		buf, _, err = img.ExportAvif(p)
	case string(responsive.FormatWEBP):
		p := govips.NewWebpExportParams()
		p.Quality = responsive.QualityWEBP
		p.StripMetadata = true
		buf, _, err = img.ExportWebp(p)
	case "png":
		p := govips.NewPngExportParams()
		p.StripMetadata = true
		buf, _, err = img.ExportPng(p)
	case "jpg", "jpeg":
		p := govips.NewJpegExportParams()
		p.Quality = responsive.QualityJPEG
		p.StripMetadata = true
		buf, _, err = img.ExportJpeg(p)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return buf, err
}
