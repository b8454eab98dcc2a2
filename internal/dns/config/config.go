package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the environment variable holding an optional config file path.
const ConfigFileEnv = "DNS_CONFIG_FILE"

// AppConfig is the relay's complete configuration. Environment variables map
// onto keys by dropping the DNS_ prefix and turning underscores into dots, so
// DNS_RELAY_UPSTREAM sets relay.upstream.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env      string         `koanf:"env" validate:"required,oneof=dev prod"`
	Log      LoggingConfig  `koanf:"log" validate:"required"`
	Relay    RelayConfig    `koanf:"relay" validate:"required"`
	Events   EventsConfig   `koanf:"events"`
	Denylist DenylistConfig `koanf:"denylist"`
	API      APIConfig      `koanf:"api"`
}

type LoggingConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

type RelayConfig struct {
	// Port is the TCP port the relay listens on.
	Port int `koanf:"port" validate:"required,gte=1,lte=65535"`
	// Upstream is the resolver every cache miss is forwarded to, as ip:port.
	Upstream        string        `koanf:"upstream" validate:"required,ip_port"`
	CacheCapacity   int           `koanf:"capacity" validate:"required,gte=1"`
	UpstreamTimeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// SessionTimeout bounds a whole client exchange; zero disables it.
	SessionTimeout time.Duration `koanf:"session" validate:"gte=0"`
}

type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
}

type CacheConfig struct {
	Size int `koanf:"size" validate:"required,gte=1"`
}

type DenylistConfig struct {
	Enabled   bool        `koanf:"enabled"`
	Directory string      `koanf:"dir" validate:"required_if=Enabled true"`
	DB        string      `koanf:"db" validate:"required_if=Enabled true"`
	Cache     CacheConfig `koanf:"cache"`
	FPRate    float64     `koanf:"fprate" validate:"gt=0,lt=1"`
}

type APIConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address" validate:"required,hostname_port"`
}

// DEFAULT_APP_CONFIG holds the values used for anything not set in a config
// file or the environment.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LoggingConfig{Level: "info"},
	Relay: RelayConfig{
		Port:            8053,
		Upstream:        "1.1.1.1:53",
		CacheCapacity:   5,
		UpstreamTimeout: 5 * time.Second,
		SessionTimeout:  10 * time.Second,
	},
	Events: EventsConfig{
		Enabled: true,
		Path:    "dns_svr.log",
	},
	Denylist: DenylistConfig{
		Enabled:   false,
		Directory: "/etc/rr-relay/denylist.d/",
		DB:        "/var/lib/rr-relay/denylist.db",
		Cache:     CacheConfig{Size: 1000},
		FPRate:    0.01,
	},
	API: APIConfig{
		Enabled: false,
		Address: "127.0.0.1:8080",
	},
}

// ListenAddr is the address the relay binds to.
func (c *AppConfig) ListenAddr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Relay.Port))
}

// validIPPort validates whether the field is an IP address and a non-zero
// port, as in "192.0.2.1:53" or "[2001:db8::1]:53".
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// envLoader loads DNS_-prefixed environment variables. It is a variable so
// tests can replace it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DNS_"))
			key = strings.ReplaceAll(key, "_", ".")
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader merges the config file at path, choosing the parser by extension.
var fileLoader = func(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}
	return k.Load(file.Provider(path), parser)
}

// registerValidation registers the "ip_port" rule.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load builds the configuration from defaults, then the optional file named
// by DNS_CONFIG_FILE, then the environment, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field rule. Call it again after changing a loaded config.
func (c *AppConfig) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := registerValidation(validate); err != nil {
		return fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
