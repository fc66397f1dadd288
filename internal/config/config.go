package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

// DefaultFileName is looked up in the working directory when no config path is given.
const DefaultFileName = "sitebuild.yaml"

// Config is the complete build configuration. Relative paths are resolved
// against Root, the directory containing the configuration file.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Paths   PathsConfig   `yaml:"paths"`
	Targets TargetsConfig `yaml:"targets"`
	Build   BuildConfig   `yaml:"build"`
	CSS     CSSConfig     `yaml:"css"`
	JS      JSConfig      `yaml:"js"`
	Sitemap SitemapConfig `yaml:"sitemap"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`

	// Root is the project directory. Not read from YAML.
	Root string `yaml:"-"`
}

// ProjectConfig names the project; the name drives the prefixed target's defaults.
type ProjectConfig struct {
	Name string `yaml:"name,omitempty"`
}

// PathsConfig locates the authoring tree. Partials and images are relative to Source.
type PathsConfig struct {
	Source   string `yaml:"source,omitempty"`
	Partials string `yaml:"partials,omitempty"`
	Images   string `yaml:"images,omitempty"`
}

// TargetsConfig configures the two render targets.
type TargetsConfig struct {
	Root     TargetConfig `yaml:"root"`
	Prefixed TargetConfig `yaml:"prefixed"`
}

// TargetConfig is one output tree.
type TargetConfig struct {
	Output   string `yaml:"output,omitempty"`
	BasePath string `yaml:"base_path,omitempty"`
}

// BuildConfig holds pipeline switches.
type BuildConfig struct {
	Mode        BuildMode `yaml:"mode,omitempty"`
	Pictures    *bool     `yaml:"pictures,omitempty"`
	Workers     int       `yaml:"workers,omitempty"`
	KeepGoing   bool      `yaml:"keep_going,omitempty"`
	Minify      *bool     `yaml:"minify,omitempty"`
	Verify      bool      `yaml:"verify,omitempty"`
	Report      string    `yaml:"report,omitempty"`
	MetricsFile string    `yaml:"metrics_file,omitempty"`
}

// PicturesEnabled reports whether derivatives are generated and markers expanded.
// Development mode always disables them.
func (b BuildConfig) PicturesEnabled() bool {
	if b.Mode == BuildModeDevelopment {
		return false
	}
	return b.Pictures == nil || *b.Pictures
}

// MinifyEnabled reports whether rendered HTML passes through the minifier.
func (b BuildConfig) MinifyEnabled() bool {
	return b.Minify == nil || *b.Minify
}

// CSSConfig drives the external stylesheet build. Output is relative to each target root.
type CSSConfig struct {
	Command []string `yaml:"command,omitempty"`
	Input   string   `yaml:"input,omitempty"`
	Output  string   `yaml:"output,omitempty"`
}

// JSConfig drives script minification.
type JSConfig struct {
	Source string `yaml:"source,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// SitemapConfig tunes sitemap generation.
type SitemapConfig struct {
	SiteURL  string `yaml:"site_url,omitempty"`
	NotFound string `yaml:"not_found,omitempty"`
}

// WatchConfig tunes rebuild-on-change.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"`
	Schedule string `yaml:"schedule,omitempty"`
}

// DebounceDuration parses Debounce, returning the default for empty or invalid values.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return defaultDebounce
	}
	return d
}

// Load reads, expands and validates the configuration file at configPath.
// ".env" and ".env.local" next to it are loaded first.
func Load(configPath string) (*Config, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid config path").
			WithContext("path", configPath).Build()
	}
	root := filepath.Dir(abs)
	loadEnvFiles(root)

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Build()
	}

	cfg, err := parse(data, root)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configPath when set. With an empty path it loads
// DefaultFileName from dir if present and otherwise returns the defaults
// rooted at dir.
func LoadOrDefault(configPath, dir string) (*Config, error) {
	if configPath != "" {
		return Load(configPath)
	}
	candidate := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		return Load(candidate)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid project directory").Build()
	}
	loadEnvFiles(abs)
	return parse(nil, abs)
}

func parse(data []byte, root string) (*Config, error) {
	cfg := &Config{Root: root}
	if len(data) > 0 {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config").Build()
		}
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	pictures, minify := true, true
	example := Config{
		Project: ProjectConfig{Name: "my-site"},
		Paths:   PathsConfig{Source: defaultSource, Partials: defaultPartials, Images: defaultImages},
		Targets: TargetsConfig{
			Root:     TargetConfig{Output: defaultRootOutput},
			Prefixed: TargetConfig{Output: "${SITES_DIR}/my-site", BasePath: "/my-site"},
		},
		Build: BuildConfig{
			Mode:     BuildModeProduction,
			Pictures: &pictures,
			Minify:   &minify,
			Report:   defaultReport,
		},
		CSS:     CSSConfig{Command: defaultCSSCommand(), Input: defaultCSSInput, Output: defaultCSSOutput},
		JS:      JSConfig{Source: defaultJSSource, Target: defaultJSTarget},
		Sitemap: SitemapConfig{SiteURL: "https://example.com", NotFound: defaultNotFound},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Watch:   WatchConfig{Debounce: defaultDebounce.String()},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}

// Abs resolves p against Root unless it is already absolute.
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// SourceDir is the absolute authoring tree.
func (c *Config) SourceDir() string { return c.Abs(c.Paths.Source) }

// PartialsDir is the absolute directory holding include-only fragments.
func (c *Config) PartialsDir() string { return filepath.Join(c.SourceDir(), c.Paths.Partials) }

// ImagesDir is the absolute source image root.
func (c *Config) ImagesDir() string { return filepath.Join(c.SourceDir(), c.Paths.Images) }
