package ports

import (
	"context"
	"time"
)

// ReportStorage : S3 для выгрузки отчётов
type ReportStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GeneratePresignedGetURL(ctx context.Context, key string, expire time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}
