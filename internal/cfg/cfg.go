// Package cfg loads service configuration from a YAML file with
// environment-variable overrides, falling back to environment variables
// alone when no file is configured.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	HTTPPort    int
	MetricsPort int
	DataPath    string

	ModelPath     string
	ModelURL      string
	FetchTimeout  time.Duration
	AllowFallback bool

	// AdminUser/AdminPass form the single reserved admin identity,
	// checked outside the credential store. Inherited from the legacy
	// deployment; a stored role flag would replace this in a real system.
	AdminUser string
	AdminPass string

	BcryptCost    int
	StatsInterval time.Duration
}

type ConfigFile struct {
	Server struct {
		HTTPPort    int `yaml:"httpPort"`
		MetricsPort int `yaml:"metricsPort"`
	} `yaml:"server"`

	Storage struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"storage"`

	Model struct {
		Path          string `yaml:"path"`
		URL           string `yaml:"url"`
		FetchTimeout  string `yaml:"fetchTimeout"`
		AllowFallback *bool  `yaml:"allowFallback"`
	} `yaml:"model"`

	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`

	Auth struct {
		BcryptCost int `yaml:"bcryptCost"`
	} `yaml:"auth"`

	Dashboard struct {
		StatsInterval string `yaml:"statsInterval"`
	} `yaml:"dashboard"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(config.Model.FetchTimeout)
	if err != nil {
		fetchTimeout = 30 * time.Second
	}
	statsInterval, err := time.ParseDuration(config.Dashboard.StatsInterval)
	if err != nil {
		statsInterval = 5 * time.Second
	}

	allowFallback := true
	if config.Model.AllowFallback != nil {
		allowFallback = *config.Model.AllowFallback
	}

	settings := Settings{
		HTTPPort:      getIntFromEnvOrConfig("HTTP_PORT", config.Server.HTTPPort),
		MetricsPort:   getIntFromEnvOrConfig("METRICS_PORT", config.Server.MetricsPort),
		DataPath:      getEnvOrDefault("DATA_PATH", config.Storage.DataPath),
		ModelPath:     getEnvOrDefault("MODEL_PATH", config.Model.Path),
		ModelURL:      getEnvOrDefault("MODEL_URL", config.Model.URL),
		FetchTimeout:  fetchTimeout,
		AllowFallback: getBoolFromEnvOrConfig("MODEL_ALLOW_FALLBACK", allowFallback),
		AdminUser:     getEnvOrDefault("ADMIN_USER", config.Admin.Username),
		AdminPass:     getEnvOrDefault("ADMIN_PASS", config.Admin.Password),
		BcryptCost:    getIntFromEnvOrConfig("BCRYPT_COST", config.Auth.BcryptCost),
		StatsInterval: statsInterval,
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		HTTPPort:      getIntOrDefault("HTTP_PORT", 8090),
		MetricsPort:   getIntOrDefault("METRICS_PORT", 9100),
		DataPath:      getEnvOrDefault("DATA_PATH", "data"),
		ModelPath:     getEnvOrDefault("MODEL_PATH", "models/model.json"),
		ModelURL:      os.Getenv("MODEL_URL"), // optional
		FetchTimeout:  getDurationOrDefault("MODEL_FETCH_TIMEOUT", 30*time.Second),
		AllowFallback: getBoolOrDefault("MODEL_ALLOW_FALLBACK", true),
		AdminUser:     getEnvOrDefault("ADMIN_USER", "Admin"),
		AdminPass:     getEnvOrDefault("ADMIN_PASS", "Admin"),
		BcryptCost:    getIntOrDefault("BCRYPT_COST", 10),
		StatsInterval: getDurationOrDefault("STATS_INTERVAL", 5*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.HTTPPort == 0 {
		s.HTTPPort = 8090
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9100
	}
	if s.DataPath == "" {
		s.DataPath = "data"
	}
	if s.ModelPath == "" {
		s.ModelPath = "models/model.json"
	}
	if s.AdminUser == "" {
		s.AdminUser = "Admin"
	}
	if s.AdminPass == "" {
		s.AdminPass = "Admin"
	}
	if s.BcryptCost == 0 {
		s.BcryptCost = 10
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values.
func validateSettings(s *Settings) error {
	if s.HTTPPort < 1024 || s.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1024 and 65535, got %d", s.HTTPPort)
	}
	if s.MetricsPort < 1024 || s.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", s.MetricsPort)
	}
	if s.HTTPPort == s.MetricsPort {
		return fmt.Errorf("HTTP and metrics ports must differ, both are %d", s.HTTPPort)
	}
	if s.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if s.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if s.BcryptCost < 4 || s.BcryptCost > 15 {
		return fmt.Errorf("bcrypt cost must be between 4 and 15, got %d", s.BcryptCost)
	}
	if s.AdminUser == "" || s.AdminPass == "" {
		return fmt.Errorf("admin credentials are required")
	}
	if s.StatsInterval < time.Second || s.StatsInterval > time.Minute {
		return fmt.Errorf("stats interval must be between 1s and 1m, got %v", s.StatsInterval)
	}
	if s.FetchTimeout < time.Second || s.FetchTimeout > 5*time.Minute {
		return fmt.Errorf("model fetch timeout must be between 1s and 5m, got %v", s.FetchTimeout)
	}
	return nil
}
