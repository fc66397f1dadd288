package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyTarget     = "target"
	KeyBasePath   = "base_path"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyImage      = "image"
	KeyWidth      = "width"
	KeyFormat     = "format"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func BasePath(p string) slog.Attr     { return slog.String(KeyBasePath, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Image(p string) slog.Attr        { return slog.String(KeyImage, p) }
func Width(w int) slog.Attr           { return slog.Int(KeyWidth, w) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
