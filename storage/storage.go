package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Download when no object exists at the path
var ErrNotFound = errors.New("stored file not found")

// Object describes a stored import file
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Storage keeps uploaded question files for audit and download
type Storage interface {
	// Upload writes data under obj.Key, replacing any previous object
	Upload(ctx context.Context, obj Object, data io.Reader) error

	// Download retrieves a file by key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file by key. Missing keys are not an error
	Delete(ctx context.Context, key string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeGCS   StorageType = "gcs"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type               StorageType
	LocalPath          string // For local storage
	S3Bucket           string // For S3 storage
	S3Region           string // For S3 storage
	S3Endpoint         string // S3-compatible endpoint, e.g. MinIO
	AWSAccessKey       string
	AWSSecretKey       string
	GCSBucket          string
	GCSCredentialsFile string
	GCSEmulatorHost    string
}

// NewStorage creates the backend named by cfg.Type
func NewStorage(ctx context.Context, cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	case StorageTypeGCS:
		return NewGCSStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ConfigFromEnv reads the storage configuration from environment variables
func ConfigFromEnv() (StorageConfig, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local" // Default to local for development
	}

	cfg := StorageConfig{
		Type: StorageType(strings.ToLower(storageType)),
	}

	switch cfg.Type {
	case StorageTypeLocal:
		cfg.LocalPath = os.Getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/uploads"
		}

	case StorageTypeS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1" // Default region
		}
		cfg.S3Endpoint = os.Getenv("AWS_S3_ENDPOINT")
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return cfg, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

	case StorageTypeGCS:
		cfg.GCSBucket = os.Getenv("GCS_BUCKET")
		cfg.GCSCredentialsFile = os.Getenv("GCS_CREDENTIALS_FILE")
		cfg.GCSEmulatorHost = os.Getenv("GCS_EMULATOR_HOST")

		if cfg.GCSBucket == "" {
			return cfg, errors.New("GCS_BUCKET environment variable is required for GCS storage")
		}

	default:
		return cfg, fmt.Errorf("unknown storage type: %s", storageType)
	}

	return cfg, nil
}

// UploadKey places an import file under its month and session, e.g.
// imports/2026/10/<session>/<file>_soru_listesi.xlsx
func UploadKey(sessionID, fileID uuid.UUID, filename string, at time.Time) string {
	return path.Join(
		"imports",
		at.UTC().Format("2006/01"),
		sessionID.String(),
		fileID.String()+"_"+sanitizeFilename(filename),
	)
}

func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filepath.ToSlash(filename)), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\':
			return '_'
		}
		return r
	}, base)
	base = strings.ReplaceAll(base, "..", "_")
	if base == "" {
		base = "upload"
	}
	return base + ext
}

// ContentType determines the content type of an import file from its name
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
