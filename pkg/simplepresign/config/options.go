package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads every tagged field from the process environment. Unset
// variables fall back to their env-default, so apply WithEnv before any
// programmatic overrides.
//
//	PORT, ENVIRONMENT, LOG_LEVEL
//	STORAGE_BACKEND              s3 (default) or oss
//	PRESIGN_TTL_SECONDS          URL validity, default 300
//	OBJECT_KEY_PREFIX            default "uploads/"
//	SANITIZE_FILE_NAMES          replace path separators in file names
//	CORS_ALLOWED_ORIGINS         comma separated, default "*"
//	INSTANCE_METADATA_DISABLED   skip the metadata credential source
//	INSTANCE_METADATA_TIMEOUT    default 1s
//
// Backend variables are documented on S3Config and OSSConfig.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return nil
	}
}

// WithEnvFile reads a .env (or yaml, json, toml) file and then the process
// environment, which takes precedence.
func WithEnvFile(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return fmt.Errorf("config file path cannot be empty")
		}
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithS3 selects the S3 backend
func WithS3(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		c.Backend = BackendS3
		c.S3.Bucket = bucket
		if region != "" {
			c.S3.Region = region
		}
		return nil
	}
}

// WithOSS selects the OSS backend
func WithOSS(bucket, endpoint string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" || endpoint == "" {
			return fmt.Errorf("oss bucket and endpoint are required")
		}
		c.Backend = BackendOSS
		c.OSS.Bucket = bucket
		c.OSS.Endpoint = endpoint
		return nil
	}
}

// WithExpiry sets the validity window of issued URLs
func WithExpiry(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d < time.Second {
			return fmt.Errorf("expiry must be at least one second, got %s", d)
		}
		c.ExpirySeconds = int(d.Seconds())
		return nil
	}
}

// WithoutInstanceMetadata removes the metadata source from the credential chain
func WithoutInstanceMetadata() Option {
	return func(c *ServerConfig) error {
		c.MetadataDisabled = true
		return nil
	}
}

// WithAllowedOrigins sets the CORS allow-list
func WithAllowedOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		if len(origins) == 0 {
			return fmt.Errorf("at least one allowed origin is required")
		}
		c.AllowedOrigins = origins
		return nil
	}
}
