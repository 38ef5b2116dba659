package service

import (
	"answer_eval_backend/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportService archives a JSON summary of each batch run to object storage.
// Disabled (all calls no-ops) unless storage.type is "minio".
type ReportService struct {
	client *minio.Client
	bucket string
}

func NewReportService(cfg config.StorageConfig) (*ReportService, error) {
	if cfg.Type != "minio" {
		return &ReportService{}, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &ReportService{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *ReportService) Archive(ctx context.Context, summary *RunSummary) error {
	if s.client == nil {
		return nil
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	objectName := fmt.Sprintf("reports/run-%s.json", summary.StartedAt.UTC().Format("20060102T150405"))

	_, err = s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("upload run summary: %w", err)
	}
	return nil
}
