package service

import (
	"bytes"
	"context"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/ports"
	"finance-tracker-client/internal/util"
	"fmt"
	"log/slog"
	"time"
)

const reportContentType = "text/csv"

type ExportResult struct {
	Key string
	URL string
}

// ReportService : выгрузка статистики в CSV и загрузка в S3
type ReportService struct {
	statistics *StatisticsService
	storage    ports.ReportStorage
	linkTTL    time.Duration
	now        func() time.Time
}

func NewReportService(statistics *StatisticsService, storage ports.ReportStorage, linkTTL time.Duration) *ReportService {
	return &ReportService{
		statistics: statistics,
		storage:    storage,
		linkTTL:    linkTTL,
		now:        time.Now,
	}
}

// Export : строит отчёт за период и возвращает ссылку на скачивание
func (s *ReportService) Export(ctx context.Context, username string, request model.StatisticsRequest) (*ExportResult, error) {
	root, err := s.statistics.Generate(ctx, request)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := RenderCSV(&buf, root); err != nil {
		return nil, util.LogError("[ReportService] ошибка формирования CSV", err)
	}

	key := fmt.Sprintf("reports/%s/%s_%s_%d.csv",
		username, request.From.Format("2006-01-02"), request.To.Format("2006-01-02"), s.now().Unix())

	if err := s.storage.PutObject(ctx, key, buf.Bytes(), reportContentType); err != nil {
		return nil, err
	}

	url, err := s.storage.GeneratePresignedGetURL(ctx, key, s.linkTTL)
	if err != nil {
		// откат загрузки
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			slog.Warn("[ReportService] не удалось удалить отчёт", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, err
	}

	return &ExportResult{Key: key, URL: url}, nil
}
