package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/pg"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

type GRPC struct {
	Addr string `yaml:"addr"` // пусто: gRPC не поднимаем
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
}

func (p Postgres) Validate() error {
	if p.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	return nil
}

func (p Postgres) ToPGConfig() pg.Config {
	return pg.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type SeedUser struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
}

type Storage struct {
	Driver    string     `yaml:"driver"`    // postgres|memory
	SeedUsers []SeedUser `yaml:"seedUsers"` // только для memory
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Redis struct {
	Addr     string        `yaml:"addr"` // пусто: без кэша
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	UserTTL  time.Duration `yaml:"userTTL"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type Auth struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	ClockSkew time.Duration `yaml:"clockSkew"`
}

func (a Auth) Validate() error {
	if len(a.Secret) < 16 {
		return errors.New("auth.secret must be at least 16 bytes")
	}
	if a.ClockSkew < 0 || a.ClockSkew > time.Minute {
		return errors.New("auth.clockSkew must be in [0..1m]")
	}
	return nil
}

type Realtime struct {
	PingInterval time.Duration `yaml:"pingInterval"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	ReadLimit    int64         `yaml:"readLimit"`
}

type Chat struct {
	MaxTextLength       int `yaml:"maxTextLength"`
	HistoryDefaultLimit int `yaml:"historyDefaultLimit"`
	HistoryMaxLimit     int `yaml:"historyMaxLimit"`
}

type Presence struct {
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queueSize"`
	PersistTimeout time.Duration `yaml:"persistTimeout"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Storage  Storage  `yaml:"storage"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	Realtime Realtime `yaml:"realtime"`
	Chat     Chat     `yaml:"chat"`
	Presence Presence `yaml:"presence"`
}

// LoadConfig читает YAML из CONFIG_PATH, по умолчанию ./config/config.yaml.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverPostgres
		fallthrough
	case DriverPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return err
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	if err := c.Auth.Validate(); err != nil {
		return err
	}

	// установка дефолтов, если значения не указаны
	c.HTTP.ReadTimeout = orDuration(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDuration(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.IdleTimeout = orDuration(c.HTTP.IdleTimeout, 60*time.Second)
	c.HTTP.RequestTimeout = orDuration(c.HTTP.RequestTimeout, 30*time.Second)
	c.HTTP.ShutdownTimeout = orDuration(c.HTTP.ShutdownTimeout, 10*time.Second)

	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Postgres.ApplicationName == "" {
		c.Postgres.ApplicationName = c.Logging.Service
	}

	c.Redis.UserTTL = orDuration(c.Redis.UserTTL, 5*time.Minute)

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "cwrk-planet"
	}
	c.Auth.TokenTTL = orDuration(c.Auth.TokenTTL, 24*time.Hour)

	c.Realtime.PingInterval = orDuration(c.Realtime.PingInterval, 15*time.Second)
	c.Realtime.WriteTimeout = orDuration(c.Realtime.WriteTimeout, 5*time.Second)
	if c.Realtime.ReadLimit <= 0 {
		c.Realtime.ReadLimit = 1 << 20
	}

	if c.Chat.MaxTextLength <= 0 {
		c.Chat.MaxTextLength = 4000
	}
	if c.Chat.HistoryMaxLimit <= 0 {
		c.Chat.HistoryMaxLimit = 100
	}
	if c.Chat.HistoryDefaultLimit <= 0 || c.Chat.HistoryDefaultLimit > c.Chat.HistoryMaxLimit {
		c.Chat.HistoryDefaultLimit = min(50, c.Chat.HistoryMaxLimit)
	}

	if c.Presence.Workers <= 0 {
		c.Presence.Workers = 4
	}
	if c.Presence.QueueSize <= 0 {
		c.Presence.QueueSize = 1024
	}
	c.Presence.PersistTimeout = orDuration(c.Presence.PersistTimeout, 5*time.Second)

	return nil
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
