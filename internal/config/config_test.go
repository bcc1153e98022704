package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
listen: ":8443"
log:
  level: debug
  env: dev
dns:
  token: file-token
  zoneId: zone-123
  domainSuffix: example.com
  ttl: "120"
credentials:
  backend: file
  path: /etc/ddns/passwords.yaml
  cacheTTL: 1m
http:
  clientIpHeader: X-Real-IP
  updateTimeout: 10s
reconcile:
  dryRun: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != ":8443" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8443")
	}
	if cfg.MetricsListen != defaultMetricsListen {
		t.Errorf("MetricsListen = %q, want default %q", cfg.MetricsListen, defaultMetricsListen)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Env != "dev" {
		t.Errorf("Log = %+v, want debug/dev", cfg.Log)
	}
	if cfg.DNS.Token != "file-token" || cfg.DNS.ZoneID != "zone-123" {
		t.Errorf("DNS = %+v", cfg.DNS)
	}
	if cfg.DNS.RecordTTL() != 120 {
		t.Errorf("RecordTTL() = %d, want 120", cfg.DNS.RecordTTL())
	}
	if cfg.Credentials.Backend != BackendFile || cfg.Credentials.Path != "/etc/ddns/passwords.yaml" {
		t.Errorf("Credentials = %+v", cfg.Credentials)
	}
	if cfg.Credentials.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", cfg.Credentials.CacheTTL)
	}
	if cfg.HTTP.ClientIPHeader != "X-Real-IP" || cfg.HTTP.UpdateTimeout != 10*time.Second {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if !cfg.Reconcile.DryRun {
		t.Error("DryRun = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != defaultListen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}
	if cfg.Credentials.Backend != BackendBadger || cfg.Credentials.Path != defaultCredentialsPath {
		t.Errorf("Credentials = %+v, want badger at %q", cfg.Credentials, defaultCredentialsPath)
	}
	if cfg.Credentials.CacheTTL != 600*time.Second {
		t.Errorf("CacheTTL = %v, want 600s", cfg.Credentials.CacheTTL)
	}
	if cfg.HTTP.ClientIPHeader != "CF-Connecting-IP" {
		t.Errorf("ClientIPHeader = %q", cfg.HTTP.ClientIPHeader)
	}
	if cfg.DNS.RecordTTL() != DefaultRecordTTL {
		t.Errorf("RecordTTL() = %d, want %d", cfg.DNS.RecordTTL(), DefaultRecordTTL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "dns: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
dns:
  token: file-token
  domainSuffix: example.com
`)
	t.Setenv("DDNS_CLOUDFLARE_TOKEN", "env-token")
	t.Setenv("DDNS_ZONE", "example.org")
	t.Setenv("DDNS_DOMAIN_SUFFIX", ".example.org")
	t.Setenv("DDNS_TTL", "60")
	t.Setenv("DDNS_CREDENTIALS_BACKEND", "REDIS")
	t.Setenv("DDNS_REDIS_ADDR", "localhost:6379")
	t.Setenv("DDNS_REDIS_DB", "2")
	t.Setenv("DDNS_CREDENTIALS_CACHE_TTL", "30s")
	t.Setenv("DDNS_UPDATE_TIMEOUT", "not-a-duration")
	t.Setenv("DDNS_DRYRUN", "yes")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DNS.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.DNS.Token)
	}
	if cfg.DNS.Zone != "example.org" || cfg.DNS.DomainSuffix != ".example.org" {
		t.Errorf("DNS = %+v", cfg.DNS)
	}
	if cfg.DNS.RecordTTL() != 60 {
		t.Errorf("RecordTTL() = %d, want 60", cfg.DNS.RecordTTL())
	}
	if cfg.Credentials.Backend != BackendRedis {
		t.Errorf("Backend = %q, want redis", cfg.Credentials.Backend)
	}
	if cfg.Credentials.Path != "" {
		t.Errorf("Path = %q, redis backend should not get a badger path", cfg.Credentials.Path)
	}
	if cfg.Credentials.Redis.Addr != "localhost:6379" || cfg.Credentials.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Credentials.Redis)
	}
	if cfg.Credentials.Redis.Prefix != defaultRedisPrefix {
		t.Errorf("Redis.Prefix = %q, want %q", cfg.Credentials.Redis.Prefix, defaultRedisPrefix)
	}
	if cfg.Credentials.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.Credentials.CacheTTL)
	}
	if cfg.HTTP.UpdateTimeout != defaultUpdateTimeout {
		t.Errorf("UpdateTimeout = %v, want default on parse failure", cfg.HTTP.UpdateTimeout)
	}
	if !cfg.Reconcile.DryRun {
		t.Error("DryRun = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadSecretFromFile(t *testing.T) {
	secret := writeFile(t, "token", "  secret-from-file\n")
	t.Setenv("DDNS_CLOUDFLARE_TOKEN", "env-token")
	t.Setenv("DDNS_CLOUDFLARE_TOKEN_FILE", secret)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DNS.Token != "secret-from-file" {
		t.Errorf("Token = %q, want file contents to win", cfg.DNS.Token)
	}
}

func TestLoadSecretFileMissingFallsBack(t *testing.T) {
	t.Setenv("DDNS_CLOUDFLARE_TOKEN", "env-token")
	t.Setenv("DDNS_CLOUDFLARE_TOKEN_FILE", filepath.Join(t.TempDir(), "nope"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DNS.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.DNS.Token)
	}
}

func TestRecordTTL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"unset", "", 300},
		{"valid", "600", 600},
		{"whitespace", " 90 ", 90},
		{"zero", "0", 0},
		{"negative", "-5", 300},
		{"garbage", "five minutes", 300},
		{"float", "1.5", 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DNS{TTL: tt.raw}.RecordTTL()
			if got != tt.want {
				t.Errorf("RecordTTL(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			DNS: DNS{Token: "t", ZoneID: "z", DomainSuffix: "example.com"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zone name instead of id", func(c *Config) { c.DNS.ZoneID = ""; c.DNS.Zone = "example.com" }, ""},
		{"missing token", func(c *Config) { c.DNS.Token = "" }, "dns.token"},
		{"missing zone", func(c *Config) { c.DNS.ZoneID = "" }, "dns.zoneId"},
		{"dot suffix", func(c *Config) { c.DNS.DomainSuffix = "." }, "dns.domainSuffix"},
		{"unknown provider", func(c *Config) { c.DNS.Provider = "route53" }, "dns.provider"},
		{"unknown backend", func(c *Config) { c.Credentials.Backend = "etcd" }, "credentials.backend"},
		{"file without path", func(c *Config) { c.Credentials.Backend = BackendFile; c.Credentials.Path = "" }, "credentials.path"},
		{"redis without addr", func(c *Config) { c.Credentials.Backend = BackendRedis }, "credentials.redis.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
