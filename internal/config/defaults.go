package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuild/internal/target"
)

const (
	defaultProjectName = "project"
	defaultSource      = "src"
	defaultPartials    = "partials"
	defaultImages      = "img"
	defaultRootOutput  = "dist"
	defaultSitesDir    = "sites"
	defaultReport      = ".sitebuild/build-report.json"
	defaultCSSInput    = "src/css/input.css"
	defaultCSSOutput   = "assets/css/style.css"
	defaultJSSource    = "src/js"
	defaultJSTarget    = "es2020"
	defaultNotFound    = "404.html"
	defaultDebounce    = 300 * time.Millisecond
)

func defaultCSSCommand() []string { return []string{"npx", "tailwindcss"} }

// ApplyDefaults fills every unset field. The project name falls back to the
// "name" field of package.json in Root and is always sanitized.
func (c *Config) ApplyDefaults() error {
	if strings.TrimSpace(c.Project.Name) == "" {
		c.Project.Name = packageJSONName(c.Root)
	}
	if c.Project.Name == "" {
		c.Project.Name = defaultProjectName
	}
	c.Project.Name = target.SanitizeName(c.Project.Name)

	if c.Paths.Source == "" {
		c.Paths.Source = defaultSource
	}
	if c.Paths.Partials == "" {
		c.Paths.Partials = defaultPartials
	}
	if c.Paths.Images == "" {
		c.Paths.Images = defaultImages
	}

	if c.Targets.Root.Output == "" {
		c.Targets.Root.Output = defaultRootOutput
	}
	c.Targets.Root.BasePath = ""
	if c.Targets.Prefixed.Output == "" {
		c.Targets.Prefixed.Output = filepath.Join(defaultSitesDir, c.Project.Name)
	}
	if c.Targets.Prefixed.BasePath == "" {
		c.Targets.Prefixed.BasePath = "/" + c.Project.Name
	}
	c.Targets.Prefixed.BasePath = target.NormalizeBasePath(c.Targets.Prefixed.BasePath)

	c.Build.Mode = NormalizeBuildMode(string(c.Build.Mode))
	if c.Build.Workers < 0 {
		c.Build.Workers = 0
	}
	if c.Build.Report == "" {
		c.Build.Report = defaultReport
	}

	if len(c.CSS.Command) == 0 {
		c.CSS.Command = defaultCSSCommand()
	}
	if c.CSS.Input == "" {
		c.CSS.Input = defaultCSSInput
	}
	if c.CSS.Output == "" {
		c.CSS.Output = defaultCSSOutput
	}
	if c.JS.Source == "" {
		c.JS.Source = defaultJSSource
	}
	if c.JS.Target == "" {
		c.JS.Target = defaultJSTarget
	}

	if c.Sitemap.NotFound == "" {
		c.Sitemap.NotFound = defaultNotFound
	}
	c.Sitemap.SiteURL = strings.TrimSuffix(c.Sitemap.SiteURL, "/")

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))

	if c.Watch.Debounce == "" {
		c.Watch.Debounce = defaultDebounce.String()
	}
	return nil
}

// packageJSONName returns the "name" field of root/package.json, or "".
func packageJSONName(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	return strings.TrimSpace(pkg.Name)
}
