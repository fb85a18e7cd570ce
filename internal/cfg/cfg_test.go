package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "HTTP_PORT", "METRICS_PORT", "DATA_PATH", "MODEL_PATH",
		"MODEL_URL", "MODEL_FETCH_TIMEOUT", "MODEL_ALLOW_FALLBACK",
		"ADMIN_USER", "ADMIN_PASS", "BCRYPT_COST", "STATS_INTERVAL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_EnvDefaults(t *testing.T) {
	clearEnv(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.HTTPPort != 8090 {
		t.Errorf("HTTPPort = %d, want 8090", s.HTTPPort)
	}
	if s.MetricsPort != 9100 {
		t.Errorf("MetricsPort = %d, want 9100", s.MetricsPort)
	}
	if s.DataPath != "data" {
		t.Errorf("DataPath = %q", s.DataPath)
	}
	if s.AdminUser != "Admin" || s.AdminPass != "Admin" {
		t.Errorf("admin defaults: %q/%q", s.AdminUser, s.AdminPass)
	}
	if !s.AllowFallback {
		t.Error("fallback should default to allowed")
	}
	if s.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", s.BcryptCost)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("MODEL_PATH", "/opt/models/forest.json")
	t.Setenv("MODEL_ALLOW_FALLBACK", "false")
	t.Setenv("STATS_INTERVAL", "2s")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.HTTPPort != 8081 {
		t.Errorf("HTTPPort = %d, want 8081", s.HTTPPort)
	}
	if s.ModelPath != "/opt/models/forest.json" {
		t.Errorf("ModelPath = %q", s.ModelPath)
	}
	if s.AllowFallback {
		t.Error("fallback override not applied")
	}
	if s.StatsInterval != 2*time.Second {
		t.Errorf("StatsInterval = %v", s.StatsInterval)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)

	config := `
server:
  httpPort: 8085
  metricsPort: 9105
storage:
  dataPath: /var/lib/waterqual
model:
  path: /opt/models/forest.json
  url: https://registry.example.com/models/forest.json
  fetchTimeout: 45s
admin:
  username: Root
  password: hunter22
auth:
  bcryptCost: 12
dashboard:
  statsInterval: 3s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.HTTPPort != 8085 || s.MetricsPort != 9105 {
		t.Errorf("ports: %d/%d", s.HTTPPort, s.MetricsPort)
	}
	if s.DataPath != "/var/lib/waterqual" {
		t.Errorf("DataPath = %q", s.DataPath)
	}
	if s.ModelURL != "https://registry.example.com/models/forest.json" {
		t.Errorf("ModelURL = %q", s.ModelURL)
	}
	if s.FetchTimeout != 45*time.Second {
		t.Errorf("FetchTimeout = %v", s.FetchTimeout)
	}
	if s.AdminUser != "Root" || s.AdminPass != "hunter22" {
		t.Errorf("admin: %q/%q", s.AdminUser, s.AdminPass)
	}
	if s.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d", s.BcryptCost)
	}
	if s.StatsInterval != 3*time.Second {
		t.Errorf("StatsInterval = %v", s.StatsInterval)
	}
}

func TestLoad_YAMLEnvOverride(t *testing.T) {
	clearEnv(t)

	config := `
server:
  httpPort: 8085
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "8099")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.HTTPPort != 8099 {
		t.Errorf("env override lost: HTTPPort = %d", s.HTTPPort)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateSettings(t *testing.T) {
	valid := Settings{
		HTTPPort: 8090, MetricsPort: 9100, DataPath: "data",
		ModelPath: "m.json", AdminUser: "Admin", AdminPass: "Admin",
		BcryptCost: 10, StatsInterval: 5 * time.Second,
		FetchTimeout: 30 * time.Second,
	}
	if err := validateSettings(&valid); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"low http port", func(s *Settings) { s.HTTPPort = 80 }},
		{"port clash", func(s *Settings) { s.MetricsPort = s.HTTPPort }},
		{"empty data path", func(s *Settings) { s.DataPath = "" }},
		{"empty model path", func(s *Settings) { s.ModelPath = "" }},
		{"bcrypt too low", func(s *Settings) { s.BcryptCost = 2 }},
		{"bcrypt too high", func(s *Settings) { s.BcryptCost = 20 }},
		{"no admin", func(s *Settings) { s.AdminUser = "" }},
		{"stats interval", func(s *Settings) { s.StatsInterval = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			if err := validateSettings(&s); err == nil {
				t.Errorf("%s: expected validation error", tc.name)
			}
		})
	}
}
