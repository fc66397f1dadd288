package vips

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	govips "github.com/davidbyttow/govips/v2/vips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuild/internal/responsive"
)

var (
	startOnce sync.Once
	startErr  any
	started   bool
)

func TestMain(m *testing.M) {
	code := m.Run()
	if started {
		Shutdown()
	}
	os.Exit(code)
}

// requireVips starts libvips once and skips the test when it cannot be initialised.
func requireVips(t *testing.T) {
	t.Helper()
	startOnce.Do(func() {
		defer func() { startErr = recover() }()
		Startup(1)
		started = true
	})
	if !started {
		t.Skipf("libvips unavailable: %v", startErr)
	}
}

func writePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "hero.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func decoded(t *testing.T, path string) (width int, format govips.ImageType) {
	t.Helper()
	img, err := govips.NewImageFromFile(path)
	require.NoError(t, err)
	defer img.Close()
	return img.Width(), img.Format()
}

func TestCodec_Width(t *testing.T) {
	requireVips(t)
	src := writePNG(t, 1000, 250)

	w, err := Codec{}.Width(src)
	require.NoError(t, err)
	assert.Equal(t, 1000, w)

	_, err = Codec{}.Width(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestCodec_EncodeFormats(t *testing.T) {
	requireVips(t)
	src := writePNG(t, 1000, 250)

	tests := []struct {
		format responsive.Format
		want   govips.ImageType
	}{
		{responsive.FormatJPG, govips.ImageTypeJPEG},
		{responsive.Format("jpeg"), govips.ImageTypeJPEG},
		{responsive.Format("png"), govips.ImageTypePNG},
		{responsive.FormatWEBP, govips.ImageTypeWEBP},
		{responsive.FormatAVIF, govips.ImageTypeAVIF},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), responsive.FileName("hero", 480, tt.format))
			err := Codec{}.Encode(context.Background(), src, dst, 480, tt.format)
			if err != nil && tt.format == responsive.FormatAVIF {
				t.Skipf("libvips built without AVIF support: %v", err)
			}
			require.NoError(t, err)

			w, format := decoded(t, dst)
			assert.Equal(t, 480, w)
			assert.Equal(t, tt.want, format)
		})
	}
}

func TestCodec_EncodeNeverEnlarges(t *testing.T) {
	requireVips(t)
	src := writePNG(t, 600, 100)
	dst := filepath.Join(t.TempDir(), "hero-1920.webp")

	require.NoError(t, Codec{}.Encode(context.Background(), src, dst, 1920, responsive.FormatWEBP))

	w, _ := decoded(t, dst)
	assert.Equal(t, 600, w)
}

func TestCodec_JPEGQualityAffectsSize(t *testing.T) {
	requireVips(t)
	src := writePNG(t, 800, 400)
	img, err := load(src)
	require.NoError(t, err)
	defer img.Close()

	ours, err := export(img, responsive.FormatJPG)
	require.NoError(t, err)

	p := govips.NewJpegExportParams()
	p.Quality = 100
	p.StripMetadata = true
	best, _, err := img.ExportJpeg(p)
	require.NoError(t, err)
	assert.Less(t, len(ours), len(best))
}

func TestCodec_EncodeErrors(t *testing.T) {
	requireVips(t)
	src := writePNG(t, 100, 100)
	dir := t.TempDir()

	err := Codec{}.Encode(context.Background(), src, filepath.Join(dir, "a.gif"), 50, responsive.Format("gif"))
	assert.ErrorContains(t, err, "unsupported format")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Codec{}.Encode(ctx, src, filepath.Join(dir, "a.jpg"), 50, responsive.FormatJPG)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "a.jpg"))
}
