package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestNew_Defaults(t *testing.T) {
	cfg := New(defaultViper())

	assert.Equal(t, 10*1024*1024, cfg.Scanner.MaxSourceBytes)
	assert.Equal(t, 4, cfg.Scanner.Concurrency)
	assert.Equal(t, 256, cfg.Scanner.CacheSize)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "luascan", cfg.Database.User)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNew_FromYAML(t *testing.T) {
	v := defaultViper()
	v.SetConfigType("yaml")
	yamlConfig := `
scanner:
  max_source_bytes: 2048
  concurrency: 8
output:
  format: yaml
database:
  user: scanner
  name: functions
nats:
  url: nats://broker:4222
  reconnect_wait: 500ms
metrics:
  enabled: true
  service_name: luascan-ci
log:
  level: debug
  format: text
`
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlConfig)))

	cfg := New(v)

	assert.Equal(t, 2048, cfg.Scanner.MaxSourceBytes)
	assert.Equal(t, 8, cfg.Scanner.Concurrency)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "scanner", cfg.Database.User)
	assert.Equal(t, "functions", cfg.Database.Name)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.NATS.ReconnectWait)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "luascan-ci", cfg.Metrics.ServiceName)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestNew_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LUASCAN_SCANNER_CONCURRENCY", "2")
	t.Setenv("LUASCAN_OUTPUT_FORMAT", "text")

	v := defaultViper()
	v.SetEnvPrefix("LUASCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := New(v)

	assert.Equal(t, 2, cfg.Scanner.Concurrency)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestNew_PanicsOnInvalidConfig(t *testing.T) {
	v := defaultViper()
	v.Set("scanner.concurrency", 0)

	assert.Panics(t, func() { New(v) })
}

func TestLoad_ReturnsValidationError(t *testing.T) {
	v := defaultViper()
	v.Set("output.format", "xml")

	cfg, err := Load(v)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "output.format")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Scanner.Concurrency = 0 },
			wantErr: "scanner.concurrency",
		},
		{
			name:    "negative source limit",
			mutate:  func(c *Config) { c.Scanner.MaxSourceBytes = -1 },
			wantErr: "scanner.max_source_bytes",
		},
		{
			name:    "negative cache size",
			mutate:  func(c *Config) { c.Scanner.CacheSize = -1 },
			wantErr: "scanner.cache_size",
		},
		{
			name:    "unknown output format",
			mutate:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: "output.format",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "log.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "logfmt" },
			wantErr: "log.format",
		},
		{
			name: "metrics without service name",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ServiceName = ""
			},
			wantErr: "metrics.service_name",
		},
		{
			name:   "database is not required for scanning",
			mutate: func(c *Config) { c.Database = DatabaseConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			require.NoError(t, defaultViper().Unmarshal(&cfg))
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_Validate(t *testing.T) {
	valid := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Name: "db", SSLMode: "disable"}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "host=localhost port=5432 user=u password= dbname=db sslmode=disable", valid.DSN())

	noUser := valid
	noUser.User = ""
	assert.ErrorContains(t, noUser.Validate(), "database.user")

	noName := valid
	noName.Name = ""
	assert.ErrorContains(t, noName.Validate(), "database.name")

	badPort := valid
	badPort.Port = 70000
	assert.ErrorContains(t, badPort.Validate(), "database.port")
}

func TestNATSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  NATSConfig
		wantErr bool
	}{
		{"valid", NATSConfig{URL: "nats://localhost:4222", MaxReconnects: 5, ReconnectWait: time.Second}, false},
		{"empty url", NATSConfig{}, true},
		{"http scheme", NATSConfig{URL: "http://localhost:4222"}, true},
		{"missing host", NATSConfig{URL: "nats://"}, true},
		{"negative reconnects", NATSConfig{URL: "nats://localhost:4222", MaxReconnects: -1}, true},
		{"negative wait", NATSConfig{URL: "nats://localhost:4222", ReconnectWait: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
