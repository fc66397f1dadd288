package config

import (
	"git.home.luguber.info/inful/sitebuild/internal/foundation/normalization"
)

// BuildMode selects between a full production build and a fast development build.
type BuildMode string

const (
	// BuildModeProduction generates derivatives and expands picture markers.
	BuildModeProduction BuildMode = "production"
	// BuildModeDevelopment copies source images verbatim and leaves image markup untouched.
	BuildModeDevelopment BuildMode = "development"
)

var buildModeNormalizer = normalization.NewNormalizer(map[string]BuildMode{
	"production":  BuildModeProduction,
	"prod":        BuildModeProduction,
	"development": BuildModeDevelopment,
	"dev":         BuildModeDevelopment,
}, BuildModeProduction)

// NormalizeBuildMode canonicalizes user input, falling back to production.
func NormalizeBuildMode(raw string) BuildMode {
	return buildModeNormalizer.Normalize(raw)
}

// ParseBuildMode is NormalizeBuildMode but rejects unknown values.
func ParseBuildMode(raw string) (BuildMode, error) {
	return buildModeNormalizer.NormalizeWithError(raw)
}
