package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "DDNS_"

	defaultListen          = ":8080"
	defaultMetricsListen   = ":9090"
	defaultLogLevel        = "info"
	defaultLogEnv          = "prod"
	defaultProvider        = "cloudflare"
	defaultBackend         = BackendBadger
	defaultCredentialsPath = "ddns-credentials.db"
	defaultCacheTTL        = 600 * time.Second
	defaultRedisPrefix     = "ddns_host_password:"
	defaultClientIPHeader  = "CF-Connecting-IP"
	defaultUpdateTimeout   = 30 * time.Second

	// DefaultRecordTTL is used for created records when no valid override is set.
	DefaultRecordTTL = 300
)

// Credential store backends.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

type Config struct {
	Listen        string      `yaml:"listen"`
	MetricsListen string      `yaml:"metricsListen"`
	Log           Log         `yaml:"log"`
	DNS           DNS         `yaml:"dns"`
	Credentials   Credentials `yaml:"credentials"`
	HTTP          HTTP        `yaml:"http"`
	Reconcile     Reconcile   `yaml:"reconcile"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type DNS struct {
	Provider     string `yaml:"provider"`
	Token        string `yaml:"token"`
	ZoneID       string `yaml:"zoneId"`
	Zone         string `yaml:"zone"`
	DomainSuffix string `yaml:"domainSuffix"`
	// TTL is kept raw so a bad value degrades to the default instead of
	// failing startup.
	TTL string `yaml:"ttl"`
}

type Credentials struct {
	Backend  string        `yaml:"backend"`
	Path     string        `yaml:"path"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	Redis    Redis         `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type HTTP struct {
	ClientIPHeader string        `yaml:"clientIpHeader"`
	UpdateTimeout  time.Duration `yaml:"updateTimeout"`
}

type Reconcile struct {
	DryRun bool `yaml:"dryRun"`
}

// RecordTTL returns the TTL in seconds for newly created records.
func (d DNS) RecordTTL() int {
	raw := strings.TrimSpace(d.TTL)
	if raw == "" {
		return DefaultRecordTTL
	}
	ttl, err := strconv.ParseUint(raw, 10, 31)
	if err != nil {
		slog.Default().Warn("fail parse record ttl, using default", "ttl", d.TTL, "default", DefaultRecordTTL, "error", err)
		return DefaultRecordTTL
	}
	return int(ttl)
}

// Load reads an optional .env file, then the YAML config at path, then
// applies DDNS_* environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Default().Warn("fail find config file, proceeding", "path", path)
		case err != nil:
			return nil, fmt.Errorf("open config file: %w", err)
		default:
			decoder := yaml.NewDecoder(f)
			if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				f.Close()
				return nil, fmt.Errorf("decode config file: %w", err)
			}
			if err := f.Close(); err != nil {
				slog.Default().Warn("fail close config file", "path", path, "error", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.MetricsListen == "" {
		c.MetricsListen = defaultMetricsListen
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Env == "" {
		c.Log.Env = defaultLogEnv
	}
	if c.DNS.Provider == "" {
		c.DNS.Provider = defaultProvider
	}
	if c.Credentials.Backend == "" {
		c.Credentials.Backend = defaultBackend
	}
	if c.Credentials.Path == "" && c.Credentials.Backend == BackendBadger {
		c.Credentials.Path = defaultCredentialsPath
	}
	if c.Credentials.CacheTTL == 0 {
		c.Credentials.CacheTTL = defaultCacheTTL
	}
	if c.Credentials.Redis.Prefix == "" {
		c.Credentials.Redis.Prefix = defaultRedisPrefix
	}
	if c.HTTP.ClientIPHeader == "" {
		c.HTTP.ClientIPHeader = defaultClientIPHeader
	}
	if c.HTTP.UpdateTimeout == 0 {
		c.HTTP.UpdateTimeout = defaultUpdateTimeout
	}
}

func (c *Config) applyEnv() {
	if v := getEnv("LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getEnv("METRICS_LISTEN"); v != "" {
		c.MetricsListen = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getEnv("LOG_ENV"); v != "" {
		c.Log.Env = v
	}

	if v := getEnvOrFile("CLOUDFLARE_TOKEN"); v != "" {
		c.DNS.Token = v
	}
	if v := getEnvOrFile("ZONE_ID"); v != "" {
		c.DNS.ZoneID = v
	}
	if v := getEnv("ZONE"); v != "" {
		c.DNS.Zone = v
	}
	if v := getEnvOrFile("DOMAIN_SUFFIX"); v != "" {
		c.DNS.DomainSuffix = v
	}
	if v := getEnv("TTL"); v != "" {
		c.DNS.TTL = v
	}

	if v := getEnv("CREDENTIALS_BACKEND"); v != "" {
		c.Credentials.Backend = strings.ToLower(v)
	}
	if v := getEnv("CREDENTIALS_PATH"); v != "" {
		c.Credentials.Path = v
	}
	if v := getEnv("CREDENTIALS_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Credentials.CacheTTL = ttl
		} else {
			slog.Default().Warn("fail parse credentials cache ttl to duration from string", "ttl", v, "error", err)
		}
	}
	if v := getEnv("REDIS_ADDR"); v != "" {
		c.Credentials.Redis.Addr = v
	}
	if v := getEnvOrFile("REDIS_PASSWORD"); v != "" {
		c.Credentials.Redis.Password = v
	}
	if v := getEnv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Credentials.Redis.DB = db
		} else {
			slog.Default().Warn("fail parse redis db to int from string", "db", v, "error", err)
		}
	}
	if v := getEnv("REDIS_PREFIX"); v != "" {
		c.Credentials.Redis.Prefix = v
	}

	if v := getEnv("CLIENT_IP_HEADER"); v != "" {
		c.HTTP.ClientIPHeader = v
	}
	if v := getEnv("UPDATE_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			c.HTTP.UpdateTimeout = timeout
		} else {
			slog.Default().Warn("fail parse update timeout to duration from string", "timeout", v, "error", err)
		}
	}
	if v := getEnv("DRYRUN"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			c.Reconcile.DryRun = true
		case "false", "0", "no":
			c.Reconcile.DryRun = false
		default:
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", v)
		}
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DNS.Provider != defaultProvider {
		errs = append(errs, fmt.Errorf("dns.provider: unsupported provider %q", c.DNS.Provider))
	}
	if c.DNS.Token == "" {
		errs = append(errs, errors.New("dns.token: required but not set"))
	}
	if c.DNS.ZoneID == "" && c.DNS.Zone == "" {
		errs = append(errs, errors.New("dns.zoneId: one of zoneId or zone is required"))
	}
	if strings.Trim(c.DNS.DomainSuffix, ".") == "" {
		errs = append(errs, errors.New("dns.domainSuffix: required but not set"))
	}
	switch c.Credentials.Backend {
	case BackendBadger, BackendFile:
		if c.Credentials.Path == "" {
			errs = append(errs, fmt.Errorf("credentials.path: required for %s backend", c.Credentials.Backend))
		}
	case BackendRedis:
		if c.Credentials.Redis.Addr == "" {
			errs = append(errs, errors.New("credentials.redis.addr: required for redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("credentials.backend: unknown backend %q", c.Credentials.Backend))
	}
	if c.Credentials.CacheTTL < 0 {
		errs = append(errs, errors.New("credentials.cacheTTL: must not be negative"))
	}
	return errors.Join(errs...)
}
