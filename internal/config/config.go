package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a project.
const FileName = "tbmap.yaml"

// Config represents the top-level tbmap.yaml configuration.
type Config struct {
	Entity      EntityConfig      `yaml:"entity"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Validation  ValidationConfig  `yaml:"validation"`
	Log         LogConfig         `yaml:"log"`
	Git         GitConfig         `yaml:"git"`
}

// EntityConfig identifies the reporting entity and how its figures are shown.
type EntityConfig struct {
	Name           string `yaml:"name" validate:"required"`
	EntityType     string `yaml:"entity_type" validate:"oneof=Company LLP Non-Corporate"`
	FinancialYear  string `yaml:"financial_year"` // e.g. "2024-25"
	CurrencySymbol string `yaml:"currency_symbol"`
	RoundingUnit   string `yaml:"rounding_unit" validate:"omitempty,oneof=ones hundreds thousands lakhs millions crores"`
	NumberFormat   string `yaml:"number_format" validate:"oneof=Indian European"`
	DecimalPlaces  int    `yaml:"decimal_places" validate:"min=0,max=4"`
}

// SuggestionsConfig controls how ledgers are sent to a classifier.
type SuggestionsConfig struct {
	BatchSize     int      `yaml:"batch_size" validate:"min=1,max=500"`
	Concurrency   int      `yaml:"concurrency" validate:"min=1,max=16"`
	RatePerSecond float64  `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int      `yaml:"burst" validate:"min=1"`
	Classifier    string   `yaml:"classifier" validate:"oneof=keyword command"`
	Command       []string `yaml:"command,omitempty" validate:"required_if=Classifier command"`
	RulesFile     string   `yaml:"rules_file,omitempty"`
	Overwrite     bool     `yaml:"overwrite"`

	// Token is the classifier credential. It only ever comes from the
	// environment and is never written to disk.
	Token string `yaml:"-"`
}

// ValidationConfig tunes the validation rules.
type ValidationConfig struct {
	UnmappedSeverity string  `yaml:"unmapped_severity" validate:"oneof=Critical High Medium"`
	BalanceTolerance float64 `yaml:"balance_tolerance" validate:"gte=0"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Format string `yaml:"format" validate:"oneof=text json"`
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
}

// GitConfig controls snapshots of the project directory. With AutoCommit
// set, every command that changes project state commits it.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name" validate:"required_if=AutoCommit true"`
	AuthorEmail string `yaml:"author_email" validate:"omitempty,email"`
}

// Load reads a tbmap.yaml file from disk. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "Company")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(entityName, entityType string) *Config {
	return &Config{
		Entity: EntityConfig{
			Name:           entityName,
			EntityType:     entityType,
			CurrencySymbol: "₹",
			RoundingUnit:   "ones",
			NumberFormat:   "Indian",
			DecimalPlaces:  2,
		},
		Suggestions: SuggestionsConfig{
			BatchSize:     25,
			Concurrency:   2,
			RatePerSecond: 2,
			Burst:         1,
			Classifier:    "keyword",
		},
		Validation: ValidationConfig{
			UnmappedSeverity: "Critical",
			BalanceTolerance: 1.0,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Git: GitConfig{
			AuthorName:  "tbmap",
			AuthorEmail: "tbmap@example.com",
		},
	}
}

var validate = validator.New()

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// env holds the TBMAP_* overrides. Empty or zero values leave the file's
// setting alone.
type env struct {
	LogFormat       string `envconfig:"LOG_FORMAT"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	Classifier      string `envconfig:"CLASSIFIER"`
	ClassifierToken string `envconfig:"CLASSIFIER_TOKEN"`
	BatchSize       int    `envconfig:"BATCH_SIZE"`
	Concurrency     int    `envconfig:"CONCURRENCY"`
	EntityType      string `envconfig:"ENTITY_TYPE"`
}

// ApplyEnv overlays TBMAP_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var e env
	if err := envconfig.Process("tbmap", &e); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if e.LogFormat != "" {
		cfg.Log.Format = e.LogFormat
	}
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
	if e.Classifier != "" {
		cfg.Suggestions.Classifier = e.Classifier
	}
	if e.ClassifierToken != "" {
		cfg.Suggestions.Token = e.ClassifierToken
	}
	if e.BatchSize > 0 {
		cfg.Suggestions.BatchSize = e.BatchSize
	}
	if e.Concurrency > 0 {
		cfg.Suggestions.Concurrency = e.Concurrency
	}
	if e.EntityType != "" {
		cfg.Entity.EntityType = e.EntityType
	}
	return nil
}
