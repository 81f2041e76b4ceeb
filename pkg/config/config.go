// Package config loads and saves the sketch tools' settings.
//
// Settings live in a YAML file (~/.sketchedit.yaml by default). Loading starts
// from Default, overlays the file, then applies environment overrides
// (SKETCH_LOG_LEVEL, SKETCH_ZOOM) and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
)

// FileName is the default settings file name in the user's home directory.
const FileName = ".sketchedit.yaml"

// Config holds persistent settings for the CLI and the editor.
type Config struct {
	Binding Binding `yaml:"binding"`
	Editor  Editor  `yaml:"editor"`
	Render  Render  `yaml:"render"`
	Log     Log     `yaml:"log"`
}

// Binding holds the border-band tolerance used when binding endpoints.
type Binding struct {
	MinGap float64 `yaml:"min_gap" validate:"gte=0"`
	MaxGap float64 `yaml:"max_gap" validate:"gtefield=MinGap"`
	Ratio  float64 `yaml:"ratio" validate:"gte=0,lte=1"`
}

// Editor holds editor preferences.
type Editor struct {
	UndoLevels   int     `yaml:"undo_levels" validate:"gte=1,lte=1000"`
	LastDir      string  `yaml:"last_dir"`
	ExportFormat string  `yaml:"export_format" validate:"oneof=png svg"`
	Zoom         float64 `yaml:"zoom" validate:"gt=0"`
}

// Render holds export settings.
type Render struct {
	Width   int     `yaml:"width" validate:"gte=16"`
	Height  int     `yaml:"height" validate:"gte=16"`
	Padding float64 `yaml:"padding" validate:"gte=0"`
	Stroke  float64 `yaml:"stroke_width" validate:"gt=0"`
}

// Log configures the zap logger.
type Log struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"` // empty means stderr
}

// Default returns the built-in settings.
func Default() Config {
	cwd, _ := os.Getwd()
	tol := element.DefaultTolerance()
	return Config{
		Binding: Binding{MinGap: tol.MinGap, MaxGap: tol.MaxGap, Ratio: tol.Ratio},
		Editor: Editor{
			UndoLevels:   50,
			LastDir:      cwd,
			ExportFormat: "png",
			Zoom:         1,
		},
		Render: Render{Width: 1024, Height: 768, Padding: 20, Stroke: 2},
		Log:    Log{Level: "info"},
	}
}

// Path returns the default settings file path.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// Tolerance returns the binding tolerance described by the settings.
func (c Config) Tolerance() element.Tolerance {
	return element.Tolerance{MinGap: c.Binding.MinGap, MaxGap: c.Binding.MaxGap, Ratio: c.Binding.Ratio}
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads settings from path. A missing file yields the defaults with
// environment overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if val := os.Getenv("SKETCH_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("SKETCH_ZOOM"); val != "" {
		zoom, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("SKETCH_ZOOM: %w", err)
		}
		cfg.Editor.Zoom = zoom
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	content := append([]byte("# sketchedit configuration\n"), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
