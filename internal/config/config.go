// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	Speech     SpeechConfig     `yaml:"speech"`
	Log        LogConfig        `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"SPELLBEE_DATABASE_PATH"`
}

type ExtractionConfig struct {
	MaxFileSize       int64         `yaml:"max_file_size"       env:"SPELLBEE_MAX_FILE_SIZE"       env-default:"52428800"`
	RenderScale       float64       `yaml:"render_scale"        env:"SPELLBEE_RENDER_SCALE"        env-default:"2.0"`
	OCRTimeout        time.Duration `yaml:"ocr_timeout"         env:"SPELLBEE_OCR_TIMEOUT"         env-default:"30s"`
	OCRStartupTimeout time.Duration `yaml:"ocr_startup_timeout" env:"SPELLBEE_OCR_STARTUP_TIMEOUT" env-default:"10s"`
	CacheSize         int           `yaml:"cache_size"          env:"SPELLBEE_CACHE_SIZE"          env-default:"64"`
	Workers           int           `yaml:"workers"             env:"SPELLBEE_WORKERS"             env-default:"4"`
}

// OCR runs unless disabled.
type OCRConfig struct {
	Disabled bool   `yaml:"disabled" env:"SPELLBEE_OCR_DISABLED"`
	Command  string `yaml:"command"  env:"SPELLBEE_OCR_COMMAND"  env-default:"tesseract"`
	Language string `yaml:"language" env:"SPELLBEE_OCR_LANGUAGE" env-default:"eng"`
}

type SpeechConfig struct {
	Command  string `yaml:"command"  env:"SPELLBEE_SPEECH_COMMAND"  env-default:"espeak-ng"`
	Language string `yaml:"language" env:"SPELLBEE_SPEECH_LANGUAGE" env-default:"en"`
}

type LogConfig struct {
	Level   string `yaml:"level"   env:"SPELLBEE_LOG_LEVEL"   env-default:"info"`
	Verbose bool   `yaml:"verbose" env:"SPELLBEE_LOG_VERBOSE"`
}

// Load reads the YAML file at path, then applies SPELLBEE_* environment
// overrides and defaults. An empty path or a missing file means defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	e := c.Extraction
	if e.MaxFileSize <= 0 {
		return fmt.Errorf("extraction.max_file_size must be > 0 (got %d)", e.MaxFileSize)
	}
	if e.RenderScale <= 0 || e.RenderScale > 8 {
		return fmt.Errorf("extraction.render_scale must be in (0, 8] (got %v)", e.RenderScale)
	}
	if e.OCRTimeout <= 0 {
		return fmt.Errorf("extraction.ocr_timeout must be > 0 (got %s)", e.OCRTimeout)
	}
	if e.OCRStartupTimeout <= 0 {
		return fmt.Errorf("extraction.ocr_startup_timeout must be > 0 (got %s)", e.OCRStartupTimeout)
	}
	if e.CacheSize <= 0 {
		return fmt.Errorf("extraction.cache_size must be > 0 (got %d)", e.CacheSize)
	}
	if e.Workers <= 0 {
		return fmt.Errorf("extraction.workers must be > 0 (got %d)", e.Workers)
	}
	if !c.OCR.Disabled && c.OCR.Command == "" {
		return fmt.Errorf("ocr.command is required when OCR is enabled")
	}
	return nil
}
