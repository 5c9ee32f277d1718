package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type AuthConfig struct {
	JWTSecret   string        `toml:"jwt_secret"`
	JWTIssuer   string        `toml:"jwt_issuer"`
	JWTTTLHours int           `toml:"jwt_ttl_hours"`
	JWTDuration time.Duration `toml:"-"`
}

type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"`
	TCPAddr  string `toml:"tcp_addr"`
	GRPCAddr string `toml:"grpc_addr"`
	// Metrics is served on the HTTP listener when true.
	Metrics bool `toml:"metrics"`
}

type EventsConfig struct {
	NATSURL string `toml:"nats_url"`
}

// ExportConfig names the S3 destination used by export-csv.
type ExportConfig struct {
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
	Prefix   string `toml:"prefix"`
}

type Config struct {
	Server ServerConfig `toml:"server"`
	Auth   AuthConfig   `toml:"auth"`
	Events EventsConfig `toml:"events"`
	Export ExportConfig `toml:"export"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
			TCPAddr:  ":9090",
			GRPCAddr: ":9092",
			Metrics:  true,
		},
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "medialib",
			JWTTTLHours: 24,
		},
		Export: ExportConfig{Region: "us-east-1", Prefix: "exports/"},
	}
}

// Load reads the optional TOML file named by MEDIALIB_CONFIG and then lets
// MEDIALIB_* environment variables override it.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("MEDIALIB_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	overlay(&cfg.Server.HTTPAddr, "MEDIALIB_HTTP_ADDR")
	overlay(&cfg.Server.TCPAddr, "MEDIALIB_TCP_ADDR")
	overlay(&cfg.Server.GRPCAddr, "MEDIALIB_GRPC_ADDR")
	if v := os.Getenv("MEDIALIB_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("MEDIALIB_METRICS: %w", err)
		}
		cfg.Server.Metrics = b
	}

	overlay(&cfg.Auth.JWTSecret, "MEDIALIB_JWT_SECRET")
	overlay(&cfg.Auth.JWTIssuer, "MEDIALIB_JWT_ISSUER")
	if v := os.Getenv("MEDIALIB_JWT_TTL_HOURS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("MEDIALIB_JWT_TTL_HOURS: %w", err)
		}
		cfg.Auth.JWTTTLHours = n
	}
	if cfg.Auth.JWTTTLHours <= 0 {
		cfg.Auth.JWTTTLHours = 24
	}
	cfg.Auth.JWTDuration = time.Duration(cfg.Auth.JWTTTLHours) * time.Hour

	overlay(&cfg.Events.NATSURL, "MEDIALIB_NATS_URL")

	overlay(&cfg.Export.Bucket, "MEDIALIB_EXPORT_BUCKET")
	overlay(&cfg.Export.Region, "MEDIALIB_EXPORT_REGION")
	overlay(&cfg.Export.Endpoint, "MEDIALIB_EXPORT_ENDPOINT")
	overlay(&cfg.Export.Prefix, "MEDIALIB_EXPORT_PREFIX")

	return cfg, nil
}

// LoadAuthConfig is Load for callers that only need token settings. Errors
// fall back to the defaults.
func LoadAuthConfig() AuthConfig {
	cfg, err := Load()
	if err != nil {
		d := defaults()
		d.Auth.JWTDuration = time.Duration(d.Auth.JWTTTLHours) * time.Hour
		return d.Auth
	}
	return cfg.Auth
}

func overlay(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}
