package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	MongoURI        string   `mapstructure:"MONGODB_URI"`
	MongoDatabase   string   `mapstructure:"MONGODB_DATABASE"`
	StorageBucket   string   `mapstructure:"STORAGE_BUCKET"`
	SignedURLTTL    int      `mapstructure:"SIGNED_URL_TTL_SECONDS"`
	ValidezDias     int      `mapstructure:"RECETA_VALIDEZ_DIAS"`
	DNIMinDigitos   int      `mapstructure:"DNI_MIN_DIGITOS"`
	DNIMaxDigitos   int      `mapstructure:"DNI_MAX_DIGITOS"`
	MaxUploadMB     int      `mapstructure:"MAX_UPLOAD_MB"`
	OCRMinTexto     int      `mapstructure:"OCR_MIN_TEXTO"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	RequestTimeoutS int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("MONGODB_DATABASE", "recetas")
	v.SetDefault("SIGNED_URL_TTL_SECONDS", 300)
	v.SetDefault("RECETA_VALIDEZ_DIAS", 30)
	v.SetDefault("DNI_MIN_DIGITOS", 8)
	v.SetDefault("DNI_MAX_DIGITOS", 12)
	v.SetDefault("MAX_UPLOAD_MB", 5)
	v.SetDefault("OCR_MIN_TEXTO", 20)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("MONGODB_URI")
	v.BindEnv("MONGODB_DATABASE")
	v.BindEnv("STORAGE_BUCKET")
	v.BindEnv("SIGNED_URL_TTL_SECONDS")
	v.BindEnv("RECETA_VALIDEZ_DIAS")
	v.BindEnv("DNI_MIN_DIGITOS")
	v.BindEnv("DNI_MAX_DIGITOS")
	v.BindEnv("MAX_UPLOAD_MB")
	v.BindEnv("OCR_MIN_TEXTO")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. STORAGE_BUCKET
// is deliberately not required here: attachment operations report a
// storage misconfiguration at request time instead, so the read-only
// part of the API stays usable without an object store.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.DNIMinDigitos < 1 || c.DNIMaxDigitos < c.DNIMinDigitos {
		return fmt.Errorf("DNI digit bounds invalid: min=%d max=%d", c.DNIMinDigitos, c.DNIMaxDigitos)
	}
	if c.ValidezDias < 1 {
		return fmt.Errorf("RECETA_VALIDEZ_DIAS must be positive, got %d", c.ValidezDias)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// SignedURLExpiry returns the default lifetime for presigned download URLs.
func (c *Config) SignedURLExpiry() time.Duration {
	return time.Duration(c.SignedURLTTL) * time.Second
}

// RequestTimeout returns the per-request deadline applied by middleware.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS) * time.Second
}
