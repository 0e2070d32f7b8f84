package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is everything the server reads from its environment
type Config struct {
	ListingsPath               string
	HTTPAddr                   string
	SmallManufacturerThreshold int
	PageSize                   int
	PriceBins                  int
	UploadDir                  string
	MaxUploadBytes             int64
	CrashLogDir                string
	CORSAllowedOrigins         []string

	// Optional, saved views and snapshots are disabled without it
	MongoURI string

	// Optional, snapshots and s3:// dataset locations are disabled without it
	AWSRegion    string
	AWSBucket    string
	AWSAccessKey string
	AWSSecretKey string
}

// Load reads the .env file at envPath if there is one and then parses the
// environment. A missing .env file is not an error.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		err := godotenv.Load(envPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s file: %w", envPath, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		ListingsPath: get("LISTINGS_CSV_PATH", "vehicles_us.csv"),
		HTTPAddr:     get("HTTP_ADDR", ":8080"),
		UploadDir:    get("UPLOAD_DIR", "/tmp/listings_uploads"),
		CrashLogDir:  get("CRASH_LOG_DIR", "/app/logs/crash/"),
		MongoURI:     get("MONGODB_URI", ""),
		AWSRegion:    get("AWS_REGION", ""),
		AWSBucket:    get("AWS_S3_BUCKET", ""),
		AWSAccessKey: get("AWS_ACCESS_KEY", ""),
		AWSSecretKey: get("AWS_SECRET_KEY", ""),
	}

	var err error
	if cfg.SmallManufacturerThreshold, err = positiveInt(get("SMALL_MANUFACTURER_THRESHOLD", "1000")); err != nil {
		return nil, fmt.Errorf("invalid SMALL_MANUFACTURER_THRESHOLD: %w", err)
	}
	if cfg.PageSize, err = positiveInt(get("PAGE_SIZE", "50")); err != nil {
		return nil, fmt.Errorf("invalid PAGE_SIZE: %w", err)
	}
	if cfg.PriceBins, err = positiveInt(get("PRICE_HISTOGRAM_BINS", "40")); err != nil {
		return nil, fmt.Errorf("invalid PRICE_HISTOGRAM_BINS: %w", err)
	}

	maxUpload, err := strconv.ParseInt(get("MAX_UPLOAD_BYTES", "536870912"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: must be a positive integer")
	}
	cfg.MaxUploadBytes = maxUpload

	for _, origin := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

// S3Enabled reports whether every AWS setting needed for S3 is present
func (c *Config) S3Enabled() bool {
	return c.AWSRegion != "" && c.AWSBucket != "" && c.AWSAccessKey != "" && c.AWSSecretKey != ""
}

func (c *Config) MongoEnabled() bool {
	return c.MongoURI != ""
}

func positiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%d is not positive", v)
	}
	return v, nil
}
