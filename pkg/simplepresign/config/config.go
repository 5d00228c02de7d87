// Package config loads the process-wide settings once at startup and builds
// a ready simplepresign.Service from them.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/credentials"
	"github.com/tendant/simple-presign/pkg/simplepresign/objectkey"
	"github.com/tendant/simple-presign/pkg/simplepresign/storage/oss"
	s3storage "github.com/tendant/simple-presign/pkg/simplepresign/storage/s3"
)

// Storage backend names accepted by STORAGE_BACKEND
const (
	BackendS3  = "s3"
	BackendOSS = "oss"
)

// Option applies configuration to a ServerConfig instance. Options run in
// order, so later options override earlier ones.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		LogLevel:        "info",
		Backend:         BackendS3,
		ExpirySeconds:   int(simplepresign.DefaultExpiry.Seconds()),
		KeyPrefix:       objectkey.DefaultPrefix,
		AllowedOrigins:  []string{"*"},
		MetadataTimeout: credentials.DefaultMetadataTimeout,
		S3: S3Config{
			Region: "us-east-1",
		},
		OSS: OSSConfig{
			MetadataEndpoint: credentials.DefaultRAMMetadataEndpoint,
		},
	}
}

// ServerConfig is the immutable process configuration. Field tags drive
// cleanenv when loaded through WithEnv or WithEnvFile.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	Backend           string        `env:"STORAGE_BACKEND" env-default:"s3"` // "s3", "oss"
	ExpirySeconds     int           `env:"PRESIGN_TTL_SECONDS" env-default:"300"`
	KeyPrefix         string        `env:"OBJECT_KEY_PREFIX" env-default:"uploads/"`
	SanitizeFileNames bool          `env:"SANITIZE_FILE_NAMES" env-default:"false"`
	AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	MetadataDisabled  bool          `env:"INSTANCE_METADATA_DISABLED" env-default:"false"`
	MetadataTimeout   time.Duration `env:"INSTANCE_METADATA_TIMEOUT" env-default:"1s"`

	S3  S3Config
	OSS OSSConfig
}

// S3Config holds the AWS S3 backend settings
type S3Config struct {
	Bucket           string `env:"S3_BUCKET"`
	Region           string `env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint         string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle     bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	AccessKeyID      string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken     string `env:"AWS_SESSION_TOKEN"`
	MetadataEndpoint string `env:"AWS_EC2_METADATA_ENDPOINT"`
}

// OSSConfig holds the S3-compatible OSS backend settings
type OSSConfig struct {
	Bucket           string `env:"OSS_BUCKET"`
	Endpoint         string `env:"OSS_ENDPOINT"`
	Region           string `env:"OSS_REGION"`
	UsePathStyle     bool   `env:"OSS_USE_PATH_STYLE" env-default:"false"`
	AccessKeyID      string `env:"ALIBABA_CLOUD_ACCESS_KEY_ID,OSS_AK"`
	SecretAccessKey  string `env:"ALIBABA_CLOUD_ACCESS_KEY_SECRET,OSS_SK"`
	SessionToken     string `env:"ALIBABA_CLOUD_SECURITY_TOKEN,OSS_TOKEN"`
	MetadataEndpoint string `env:"OSS_METADATA_ENDPOINT" env-default:"http://100.100.100.200"`
}

// Expiry returns the validity window of issued URLs
func (c *ServerConfig) Expiry() time.Duration {
	return time.Duration(c.ExpirySeconds) * time.Second
}

// IsProduction reports whether the service runs in production mode
func (c *ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.ExpirySeconds <= 0 {
		return fmt.Errorf("presign ttl must be positive, got %d", c.ExpirySeconds)
	}
	if c.Expiry() > s3storage.MaxExpiry {
		return fmt.Errorf("presign ttl must not exceed %s", s3storage.MaxExpiry)
	}

	if c.MetadataTimeout <= 0 {
		return fmt.Errorf("instance metadata timeout must be positive, got %s", c.MetadataTimeout)
	}

	switch c.Backend {
	case BackendS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when using the s3 backend")
		}
	case BackendOSS:
		if c.OSS.Bucket == "" {
			return errors.New("OSS_BUCKET is required when using the oss backend")
		}
		if c.OSS.Endpoint == "" {
			return errors.New("OSS_ENDPOINT is required when using the oss backend")
		}
	default:
		return fmt.Errorf("storage backend must be '%s' or '%s', got: %s", BackendS3, BackendOSS, c.Backend)
	}

	return nil
}

// BuildService creates a Service from the configuration. Extra options are
// applied after the configured ones.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...simplepresign.Option) (simplepresign.Service, error) {
	backend, err := c.BuildBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Backend, err)
	}

	options := []simplepresign.Option{
		simplepresign.WithBackend(backend),
		simplepresign.WithKeyGenerator(c.buildKeyGenerator()),
		simplepresign.WithExpiry(c.Expiry()),
	}
	options = append(options, extra...)

	return simplepresign.New(options...)
}

// BuildBackend creates the configured storage backend with its credential chain
func (c *ServerConfig) BuildBackend(ctx context.Context) (simplepresign.Backend, error) {
	switch c.Backend {
	case BackendS3:
		backend, err := s3storage.New(ctx, s3storage.Config{
			Region:       c.S3.Region,
			Bucket:       c.S3.Bucket,
			Endpoint:     c.S3.Endpoint,
			UsePathStyle: c.S3.UsePathStyle,
			Credentials:  c.CredentialChain(),
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	case BackendOSS:
		backend, err := oss.New(oss.Config{
			Endpoint:     c.OSS.Endpoint,
			Bucket:       c.OSS.Bucket,
			Region:       c.OSS.Region,
			UsePathStyle: c.OSS.UsePathStyle,
			Credentials:  c.CredentialChain(),
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", c.Backend)
	}
}

// CredentialChain builds the resolution order for the configured backend:
// explicit triple, instance metadata (unless disabled), long-lived key pair.
func (c *ServerConfig) CredentialChain() *credentials.Chain {
	var (
		keys    credentials.Keys
		fetcher credentials.Fetcher
	)

	switch c.Backend {
	case BackendOSS:
		keys = credentials.Keys{
			AccessKeyID:     c.OSS.AccessKeyID,
			SecretAccessKey: c.OSS.SecretAccessKey,
			SessionToken:    c.OSS.SessionToken,
		}
		if !c.MetadataDisabled {
			fetcher = credentials.NewRAMRoleFetcher(c.OSS.MetadataEndpoint)
		}
	default:
		keys = credentials.Keys{
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			SessionToken:    c.S3.SessionToken,
		}
		if !c.MetadataDisabled {
			fetcher = credentials.NewIMDSFetcher(c.S3.MetadataEndpoint)
		}
	}

	return credentials.NewDefaultChain(keys, fetcher, c.MetadataTimeout)
}

func (c *ServerConfig) buildKeyGenerator() simplepresign.KeyGenerator {
	gen := objectkey.NewUploadsGenerator()
	gen.Prefix = c.KeyPrefix

	if c.SanitizeFileNames {
		return objectkey.NewSanitizingGenerator(gen)
	}
	return gen
}
