package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmachain/trustscore/internal/application/port"
)

// ExportResult is a rendered ranking document
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
	// StoredPath is empty when no archive storage is configured
	StoredPath string
	Rows       int
}

// ExportService renders ranking listings for download
type ExportService interface {
	ExportRanking(ctx context.Context, query RankingQuery) (*ExportResult, error)
}

type exportServiceImpl struct {
	trustService TrustScoreService
	exporter     port.RankingExporter
	storage      port.FileStorage
	logger       Logger
	now          func() time.Time
}

// NewExportService creates a new ExportService. storage may be nil.
func NewExportService(
	trustService TrustScoreService,
	exporter port.RankingExporter,
	storage port.FileStorage,
	logger Logger,
	opts ...Option,
) ExportService {
	o := buildOptions(opts)
	return &exportServiceImpl{
		trustService: trustService,
		exporter:     exporter,
		storage:      storage,
		logger:       logger,
		now:          o.now,
	}
}

// ExportRanking renders the ranking and archives a copy when storage is set
func (s *exportServiceImpl) ExportRanking(ctx context.Context, query RankingQuery) (*ExportResult, error) {
	summaries, err := s.trustService.GetRanking(ctx, query)
	if err != nil {
		return nil, err
	}

	now := s.now()
	content, err := s.exporter.ExportRanking(summaries, now)
	if err != nil {
		return nil, fmt.Errorf("render ranking: %w", err)
	}

	result := &ExportResult{
		FileName:    fmt.Sprintf("ranking_%s%s", now.Format("20060102_150405"), s.exporter.FileExtension()),
		ContentType: s.exporter.ContentType(),
		Content:     content,
		Rows:        len(summaries),
	}

	if s.storage != nil {
		if err := s.storage.Save(ctx, result.FileName, content); err != nil {
			return nil, fmt.Errorf("archive ranking: %w", err)
		}
		result.StoredPath = s.storage.GetFullPath(result.FileName)
	}

	s.logger.Info("Ranking exported", "file", result.FileName, "rows", result.Rows)
	return result, nil
}
