package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Driver names accepted by New.
const (
	DriverMinio  = "minio"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// New creates the backend named by cfg.Driver. It is called once at start-up;
// the returned client is shared by all requests.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMinio, "":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
		}, log)
	case DriverS3:
		return NewS3Storage(ctx, S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
		})
	case DriverMemory:
		log.Warn().Msg("storage: using in-memory backend, objects are lost on restart")
		return NewMemory(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q (supported: minio, s3, memory)", cfg.Driver)
	}
}
