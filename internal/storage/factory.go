package storage

import "strings"

// StorageType defines the flavour of S3-compatible storage
type StorageType string

const (
	StorageTypeMinIO        StorageType = "minio"
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

// Config holds connection settings shared by every backend.
type Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // public URL prefix for R2.dev or a CDN
}

// NewStorage creates an ObjectStorage for the configured type.
// MinIO uses minio-go; every other type goes through the AWS SDK.
// Parameters:
//   - cfg: storage configuration; an empty Type is detected from the endpoint.
// Returns:
//   - ObjectStorage: the backend for the resolved type.
//   - error: client construction failure.
func NewStorage(cfg *Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	if cfg.Type == StorageTypeMinIO {
		return NewMinIOStorage(cfg)
	}
	return NewS3Storage(cfg)
}

// detectStorageType guesses the storage type from the endpoint host
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// publicObjectURL joins a public prefix and key, or returns "" when no prefix is set.
func publicObjectURL(publicURL, key string) string {
	if publicURL == "" {
		return ""
	}
	return strings.TrimSuffix(publicURL, "/") + "/" + strings.TrimPrefix(key, "/")
}
