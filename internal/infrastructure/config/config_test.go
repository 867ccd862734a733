package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validJWTSecret meets the 32-character minimum.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "broker.lab"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 9090
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
    access_token_ttl: 600
tokens:
  reset_password:
    length: 12
    expiry_minutes: 30
seed:
  username: "root@lab.example"
  password: "change-me"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.Broker.Host != "broker.lab" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.lab")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if got := cfg.GetAccessTokenTTL(); got != 10*time.Minute {
		t.Errorf("GetAccessTokenTTL() = %v, want 10m", got)
	}
	if cfg.Tokens.ResetPassword.Length != 12 {
		t.Errorf("Tokens.ResetPassword.Length = %d, want 12", cfg.Tokens.ResetPassword.Length)
	}
	if got := cfg.GetResetTokenExpiry(); got != 30*time.Minute {
		t.Errorf("GetResetTokenExpiry() = %v, want 30m", got)
	}
	if cfg.Seed.Username != "root@lab.example" {
		t.Errorf("Seed.Username = %q, want %q", cfg.Seed.Username, "root@lab.example")
	}
	// Unset sections keep their defaults.
	if cfg.Users.DefaultPhoneRegion != "US" {
		t.Errorf("Users.DefaultPhoneRegion = %q, want %q", cfg.Users.DefaultPhoneRegion, "US")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/test.db"
api:
  port: 8080
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error for missing jwt secret, got nil")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("Load() error = %v, want mention of security.jwt.secret", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "missing JWT secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: true},
		{name: "JWT secret too short", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: true},
		{name: "zero access token ttl", mutate: func(c *Config) { c.Security.JWT.AccessTokenTTL = 0 }, wantErr: true},
		{name: "reset token too short", mutate: func(c *Config) { c.Tokens.ResetPassword.Length = 2 }, wantErr: true},
		{name: "reset token zero expiry", mutate: func(c *Config) { c.Tokens.ResetPassword.ExpiryMinutes = 0 }, wantErr: true},
		{name: "seed without password", mutate: func(c *Config) { c.Seed.Username = "root" }, wantErr: true},
		{
			name: "seed with password",
			mutate: func(c *Config) {
				c.Seed.Username = "root"
				c.Seed.Password = "secret"
			},
			wantErr: false,
		},
		{
			name: "influx enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	cfg.API.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, want := range []string{"database.path", "api.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, want mention of %s", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("POTENTIOSTAT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("POTENTIOSTAT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("POTENTIOSTAT_MQTT_USERNAME", "testuser")
	t.Setenv("POTENTIOSTAT_MQTT_PASSWORD", "testpass")
	t.Setenv("POTENTIOSTAT_API_HOST", "192.168.1.1")
	t.Setenv("POTENTIOSTAT_API_PORT", "9443")
	t.Setenv("POTENTIOSTAT_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("POTENTIOSTAT_JWT_SECRET", "jwt-secret")
	t.Setenv("POTENTIOSTAT_SEED_USERNAME", "root")
	t.Setenv("POTENTIOSTAT_SEED_PASSWORD", "rootpass")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9443 {
		t.Errorf("API.Port = %d, want 9443", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if cfg.Seed.Username != "root" || cfg.Seed.Password != "rootpass" {
		t.Errorf("Seed = %+v, want root/rootpass", cfg.Seed)
	}
}

func TestApplyEnvOverrides_IgnoresBadPort(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("POTENTIOSTAT_API_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Security.JWT.AccessTokenTTL != 1800 {
		t.Errorf("defaultConfig Security.JWT.AccessTokenTTL = %d, want 1800", cfg.Security.JWT.AccessTokenTTL)
	}
	if cfg.Tokens.ResetPassword.Length != 8 || cfg.Tokens.ResetPassword.ExpiryMinutes != 15 {
		t.Errorf("defaultConfig Tokens.ResetPassword = %+v, want {8 15}", cfg.Tokens.ResetPassword)
	}
}
