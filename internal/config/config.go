// Package config loads and validates the engine configuration from YAML
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures all engine settings.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Store     StoreConfig     `yaml:"store"`
}

// ServerConfig controls the localhost diagnostics listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// TelemetryConfig controls sampling and analysis behaviour. Each monitoring
// toggle is independent; disabled samplers report unknown rather than zero.
type TelemetryConfig struct {
	SampleRate                time.Duration      `yaml:"sampleRate" validate:"gte=0"`
	HistorySize               int                `yaml:"historySize" validate:"gte=0"`
	AnalysisInterval          time.Duration      `yaml:"analysisInterval" validate:"gte=0"`
	EnableGPUMonitoring       bool               `yaml:"enableGpuMonitoring"`
	EnableBatteryMonitoring   bool               `yaml:"enableBatteryMonitoring"`
	EnableNetworkMonitoring   bool               `yaml:"enableNetworkMonitoring"`
	EnableThermalMonitoring   bool               `yaml:"enableThermalMonitoring"`
	EnableInteractionTracking bool               `yaml:"enableInteractionTracking"`
	AlertThresholds           map[string]float64 `yaml:"alertThresholds"`
	ThresholdLearningRate     float64            `yaml:"thresholdLearningRate" validate:"gte=0,lt=1"`
	ThresholdWindow           int                `yaml:"thresholdWindow" validate:"gte=0"`
	StrategyCooldown          time.Duration      `yaml:"strategyCooldown" validate:"gte=0"`
	CapabilityRefresh         time.Duration      `yaml:"capabilityRefresh" validate:"gte=0"`
}

// AlertsConfig controls rule-pack loading.
type AlertsConfig struct {
	RulesPath string `yaml:"rulesPath"`
}

// StoreConfig controls optional local persistence.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load initialises Config from a YAML file and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RENDERTUNE_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the documented defaults for every option.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         "127.0.0.1:8750",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Telemetry: TelemetryConfig{
			SampleRate:                time.Second,
			HistorySize:               300,
			AnalysisInterval:          10 * time.Second,
			EnableGPUMonitoring:       true,
			EnableBatteryMonitoring:   true,
			EnableNetworkMonitoring:   true,
			EnableThermalMonitoring:   true,
			EnableInteractionTracking: true,
			AlertThresholds:           map[string]float64{},
			ThresholdLearningRate:     0.1,
			ThresholdWindow:           100,
			StrategyCooldown:          5 * time.Second,
			CapabilityRefresh:         30 * time.Second,
		},
		Alerts: AlertsConfig{},
		Store:  StoreConfig{Enabled: false, Path: "data/rendertune"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RENDERTUNE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RENDERTUNE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RENDERTUNE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("RENDERTUNE_SAMPLE_RATE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Telemetry.SampleRate = d
		}
	}
	if v := os.Getenv("RENDERTUNE_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Telemetry.HistorySize = n
		}
	}
	if v := os.Getenv("RENDERTUNE_ANALYSIS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Telemetry.AnalysisInterval = d
		}
	}
	if v := os.Getenv("RENDERTUNE_RULES_PATH"); v != "" {
		cfg.Alerts.RulesPath = v
	}
	if v := os.Getenv("RENDERTUNE_STORE_ENABLED"); v != "" {
		cfg.Store.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("RENDERTUNE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}
