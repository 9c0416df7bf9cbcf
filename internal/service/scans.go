package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/gluvia/backend/config"
)

// scan uploads accepted by the API
var scanContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// ScanStorageService stores prescription scans in S3. Text extraction from
// scans happens outside this service; callers attach the returned URL to a
// prescription.
type ScanStorageService struct {
	s3Config *config.S3Config
}

func NewScanStorageService(s3Config *config.S3Config) *ScanStorageService {
	return &ScanStorageService{s3Config: s3Config}
}

// Upload stores scan bytes under a per-user key and returns the public URL.
func (s *ScanStorageService) Upload(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (string, error) {
	ext, ok := scanContentTypes[contentType]
	if !ok {
		return "", newValidationError("unsupported scan type %q: must be PDF, JPEG or PNG", contentType)
	}

	key := fmt.Sprintf("prescription-scans/%s/%s%s", userID, uuid.New(), ext)
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload scan: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key)
	slog.Info("prescription scan uploaded", "user_id", userID, "key", key)
	return url, nil
}
