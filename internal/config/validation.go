package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if _, err := ParseBuildMode(string(c.Build.Mode)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid build mode").Build()
	}
	return nil
}

func (c *Config) validatePaths() error {
	src := c.SourceDir()
	info, err := os.Stat(src)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "source directory not found").
			WithContext("path", src).Build()
	}
	if !info.IsDir() {
		return ferrors.ValidationError("source path is not a directory").WithContext("path", src).Build()
	}
	for _, rel := range []string{c.Paths.Partials, c.Paths.Images} {
		if filepath.IsAbs(rel) || strings.HasPrefix(filepath.Clean(rel), "..") {
			return ferrors.ValidationError("path must stay inside the source directory").
				WithContext("path", rel).Build()
		}
	}
	return nil
}

func (c *Config) validateTargets() error {
	src := filepath.Clean(c.SourceDir())
	rootOut := filepath.Clean(c.Abs(c.Targets.Root.Output))
	prefOut := filepath.Clean(c.Abs(c.Targets.Prefixed.Output))

	if rootOut == prefOut {
		return ferrors.ValidationError("root and prefixed outputs must differ").
			WithContext("output", rootOut).Build()
	}
	for _, out := range []string{rootOut, prefOut} {
		if out == src || isWithin(src, out) {
			return ferrors.ValidationError("output directory must not be inside the source tree").
				WithContext("output", out).WithContext("source", src).Build()
		}
		if isWithin(out, src) {
			return ferrors.ValidationError("source tree must not be inside an output directory").
				WithContext("output", out).WithContext("source", src).Build()
		}
	}
	if isWithin(rootOut, prefOut) || isWithin(prefOut, rootOut) {
		return ferrors.ValidationError("output directories must not be nested").
			WithContext("root", rootOut).WithContext("prefixed", prefOut).Build()
	}
	if c.Targets.Prefixed.BasePath == "" {
		return ferrors.ValidationError("prefixed target requires a base path").Build()
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.Schedule == "" {
		return nil
	}
	// Validate the cron expression with a throwaway scheduler; it is never started.
	s, err := gocron.NewScheduler()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to create scheduler").Build()
	}
	defer func() { _ = s.Shutdown() }()
	if _, err := s.NewJob(gocron.CronJob(c.Watch.Schedule, len(strings.Fields(c.Watch.Schedule)) == 6), gocron.NewTask(func() {})); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid watch schedule").
			WithContext("schedule", c.Watch.Schedule).Build()
	}
	return nil
}

// isWithin reports whether child lies strictly below parent.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
