// Package config loads the YAML configuration shared by the serving and
// training binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Data struct {
		CSVPath  string  `yaml:"csv_path"`
		TestSize float64 `yaml:"test_size"`
		Seed     int64   `yaml:"seed"`
	} `yaml:"data"`
	Model struct {
		Dir             string `yaml:"dir"`
		CVFolds         int    `yaml:"cv_folds"`
		SelectionMetric string `yaml:"selection_metric"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	HTTP struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns the configuration used when a field is absent from the file.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.CSVPath = "./data/heart_disease.csv"
	cfg.Data.TestSize = 0.2
	cfg.Data.Seed = 42
	cfg.Model.Dir = "./models"
	cfg.Model.CVFolds = 5
	cfg.Model.SelectionMetric = "roc_auc"
	cfg.Database.Path = "./data/cardioml.db"
	cfg.HTTP.Port = 8080
	cfg.HTTP.TimeoutSeconds = 30
	cfg.HTTP.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the YAML file at path over the defaults. A missing file is an
// error; an empty file yields the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Data.TestSize <= 0 || c.Data.TestSize >= 1 {
		return fmt.Errorf("data.test_size must be in (0, 1), got %v", c.Data.TestSize)
	}
	if c.Model.CVFolds < 2 {
		return fmt.Errorf("model.cv_folds must be at least 2, got %d", c.Model.CVFolds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	return nil
}
