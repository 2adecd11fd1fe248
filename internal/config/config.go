// Package config loads pdftool settings from a YAML file and PDFTOOL_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so qa.overflow is
// read from PDFTOOL_QA_OVERFLOW.
const EnvPrefix = "PDFTOOL"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Render    RenderConfig    `mapstructure:"render"`
	QA        QAConfig        `mapstructure:"qa"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Functions FunctionsConfig `mapstructure:"functions"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
	MaxFiles    int    `mapstructure:"max_files"`
}

type WorkspaceConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

type RenderConfig struct {
	Strategy     string  `mapstructure:"strategy"`
	OfficeBinary string  `mapstructure:"office_binary"`
	FontSize     int     `mapstructure:"font_size"`
	LineHeight   float64 `mapstructure:"line_height"`
	Margin       float64 `mapstructure:"margin"`
	WrapWidth    int     `mapstructure:"wrap_width"`
}

type QAConfig struct {
	Model           string `mapstructure:"model"`
	MaxContextChars int    `mapstructure:"max_context_chars"`
	Overflow        string `mapstructure:"overflow"`
	VertexProject   string `mapstructure:"vertex_project"`
	VertexRegion    string `mapstructure:"vertex_region"`
	VertexModel     string `mapstructure:"vertex_model"`
}

type JobsConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	ProjectID  string `mapstructure:"project_id"`
	Collection string `mapstructure:"collection"`
	Database   string `mapstructure:"database"`
}

type FunctionsConfig struct {
	OutputBucket string `mapstructure:"output_bucket"`
	WriteDocx    bool   `mapstructure:"write_docx"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaults lists every key. Viper only maps environment variables onto keys
// it already knows, so each key needs a default here.
var defaults = map[string]any{
	"server.address":          ":8080",
	"server.max_upload_mb":    32,
	"server.max_files":        20,
	"workspace.base_dir":      "",
	"render.strategy":         "canvas",
	"render.office_binary":    "soffice",
	"render.font_size":        11,
	"render.line_height":      14.0,
	"render.margin":           56.0,
	"render.wrap_width":       0,
	"qa.model":                "lexical",
	"qa.max_context_chars":    100000,
	"qa.overflow":             "error",
	"qa.vertex_project":       "",
	"qa.vertex_region":        "us-central1",
	"qa.vertex_model":         "gemini-1.5-pro",
	"jobs.backend":            "none",
	"jobs.sqlite_path":        "",
	"jobs.project_id":         "",
	"jobs.collection":         "jobs",
	"jobs.database":           "",
	"functions.output_bucket": "",
	"functions.write_docx":    false,
	"log.level":               "info",
	"log.format":              "json",
}

// NewViper returns a viper instance with defaults and environment binding set
// up. Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, or searches ./pdftool.yaml and
// ~/.config/pdftool/pdftool.yaml when path is empty. A missing file is not an
// error when searching.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pdftool")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pdftool"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Jobs.Backend == "sqlite" && cfg.Jobs.SQLitePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Jobs.SQLitePath = filepath.Join(home, ".local", "share", "pdftool", "jobs.db")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Render.Strategy, "canvas", "office") {
		errs = append(errs, fmt.Errorf("render.strategy must be canvas or office, got %q", c.Render.Strategy))
	}
	if !oneOf(c.QA.Model, "lexical", "vertex") {
		errs = append(errs, fmt.Errorf("qa.model must be lexical or vertex, got %q", c.QA.Model))
	}
	if !oneOf(c.QA.Overflow, "error", "truncate") {
		errs = append(errs, fmt.Errorf("qa.overflow must be error or truncate, got %q", c.QA.Overflow))
	}
	if c.QA.MaxContextChars < 0 {
		errs = append(errs, fmt.Errorf("qa.max_context_chars must not be negative"))
	}
	if c.QA.Model == "vertex" && c.QA.VertexProject == "" {
		errs = append(errs, fmt.Errorf("qa.vertex_project is required for the vertex model"))
	}
	if !oneOf(c.Jobs.Backend, "none", "sqlite", "firestore") {
		errs = append(errs, fmt.Errorf("jobs.backend must be none, sqlite or firestore, got %q", c.Jobs.Backend))
	}
	if c.Jobs.Backend == "firestore" && c.Jobs.ProjectID == "" {
		errs = append(errs, fmt.Errorf("jobs.project_id is required for the firestore backend"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive"))
	}
	if c.Server.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("server.max_files must be positive"))
	}
	if !oneOf(c.Log.Format, "json", "text") {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by cfg, writing to w.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}
