package port

import (
	"time"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// RankingExporter renders a ranking listing into a downloadable document
type RankingExporter interface {
	ExportRanking(summaries []entity.ScoreSummary, generatedAt time.Time) ([]byte, error)
	ContentType() string
	FileExtension() string
}
