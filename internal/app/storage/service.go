/*
Package storage provides the object-storage surface backing message
attachments. Clients upload and download attachment bytes directly against
presigned URLs; the chat server itself never relays file content.
*/
package storage

import (
	"context"
	"time"
)

// PresignedUploadDuration is how long a generated upload URL stays valid.
const PresignedUploadDuration = 5 * time.Minute

// PresignedDownloadDuration is how long a generated download URL stays valid.
const PresignedDownloadDuration = 15 * time.Minute

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService defines the public interface for attachment storage.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading an attachment.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading an attachment.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the object at the given key.
	Delete(ctx context.Context, key string) error
}

// NewStorageService initializes and returns a concrete StorageService.
// Currently only S3-compatible backends are supported.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
