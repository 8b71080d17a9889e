package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Row ceilings and their floors. Configured values below a floor are raised to it.
const (
	DefaultMaxProcessRows        = 300_000
	MinMaxProcessRows            = 50_000
	DefaultAnalysisSampleMaxRows = 200_000
	MinAnalysisSampleMaxRows     = 50_000
	DefaultCleanedExportMaxRows  = 50_000
	MinCleanedExportMaxRows      = 10_000

	// DefaultSheetRowCap is the spreadsheet row limit minus the header row.
	DefaultSheetRowCap = 1_048_575
)

// Global configuration structure.
type Global struct {
	// Ceilings are resolved by hand in Load so that malformed values fall back
	// to their defaults instead of failing the whole config.
	MaxProcessRows        int `mapstructure:"-" yaml:"max_process_rows"`
	AnalysisSampleMaxRows int `mapstructure:"-" yaml:"analysis_sample_max_rows"`
	CleanedExportMaxRows  int `mapstructure:"-" yaml:"cleaned_export_max_rows"`

	// CPUTarget is kept raw; the runtime probe parses and clamps it.
	CPUTarget  string `mapstructure:"cpu_target" yaml:"cpu_target"`
	EmbedModel string `mapstructure:"embed_model" yaml:"embed_model"`

	// Embedding backends
	EmbedEndpoint  string `mapstructure:"embed_endpoint" yaml:"embed_endpoint"`
	EmbedAPIKey    string `mapstructure:"embed_api_key" yaml:"embed_api_key"`
	OllamaHost     string `mapstructure:"ollama_host" yaml:"ollama_host"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"min=1"`

	// Rendering
	SheetRowCap  int `mapstructure:"sheet_row_cap" yaml:"sheet_row_cap" validate:"min=1,max=1048575"`
	KeypointsMax int `mapstructure:"keypoints_max" yaml:"keypoints_max" validate:"min=1,max=50"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=json text"`

	// JobsDB is the SQLite file holding the local job history.
	JobsDB string `mapstructure:"jobs_db" yaml:"jobs_db"`
}

var validate = validator.New()

// Defaults returns the configuration used when nothing is set.
func Defaults() *Global {
	c := &Global{
		MaxProcessRows:        DefaultMaxProcessRows,
		AnalysisSampleMaxRows: DefaultAnalysisSampleMaxRows,
		CleanedExportMaxRows:  DefaultCleanedExportMaxRows,
		CPUTarget:             "0.75",
		EmbedModel:            "frequency",
		EmbedEndpoint:         "http://127.0.0.1:8080",
		OllamaHost:            "http://127.0.0.1:11434",
		HTTPTimeoutSec:        60,
		SheetRowCap:           DefaultSheetRowCap,
		KeypointsMax:          8,
		LogLevel:              "info",
		LogFormat:             "json",
	}
	if dir, err := Dir(); err == nil {
		c.JobsDB = filepath.Join(dir, "jobs.db")
	}
	return c
}

// Validate checks the struct-level constraints.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dir returns ~/.officeloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".officeloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.officeloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (OFFICE_*) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("OFFICE")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("max_process_rows", d.MaxProcessRows)
	v.SetDefault("analysis_sample_max_rows", d.AnalysisSampleMaxRows)
	v.SetDefault("cleaned_export_max_rows", d.CleanedExportMaxRows)
	v.SetDefault("cpu_target", d.CPUTarget)
	v.SetDefault("embed_model", d.EmbedModel)
	v.SetDefault("embed_endpoint", d.EmbedEndpoint)
	v.SetDefault("embed_api_key", d.EmbedAPIKey)
	v.SetDefault("ollama_host", d.OllamaHost)
	v.SetDefault("http_timeout_sec", d.HTTPTimeoutSec)
	v.SetDefault("sheet_row_cap", d.SheetRowCap)
	v.SetDefault("keypoints_max", d.KeypointsMax)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("jobs_db", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.MaxProcessRows = ResolveRows(v.GetString("max_process_rows"), DefaultMaxProcessRows, MinMaxProcessRows)
	c.AnalysisSampleMaxRows = ResolveRows(v.GetString("analysis_sample_max_rows"), DefaultAnalysisSampleMaxRows, MinAnalysisSampleMaxRows)
	c.CleanedExportMaxRows = ResolveRows(v.GetString("cleaned_export_max_rows"), DefaultCleanedExportMaxRows, MinCleanedExportMaxRows)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	if c.JobsDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.JobsDB = filepath.Join(dir, "jobs.db")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveRows parses a row ceiling. Unparseable or empty input yields def;
// the result is never below floor. Digit separators ('_' and ',') are accepted.
func ResolveRows(raw string, def, floor int) int {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("_", "", ",", "").Replace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		n = def
	}
	if n < floor {
		return floor
	}
	return n
}
