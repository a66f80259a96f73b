package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

const (
	rankingSheet = "Ranking"
	levelSheet   = "Levels"
	headerRow    = 3
)

var rankingColumns = []struct {
	title string
	width float64
}{
	{"#", 6},
	{"Supplier ID", 28},
	{"Supplier", 36},
	{"Role", 14},
	{"Trust Score", 12},
	{"Level", 8},
	{"Overall Rank", 13},
	{"Role Rank", 11},
	{"Badges", 48},
}

// ExcelRankingExporter renders ranking listings as an xlsx workbook
type ExcelRankingExporter struct {
	logger *zap.Logger
}

// NewExcelRankingExporter creates a new workbook exporter
func NewExcelRankingExporter(logger *zap.Logger) *ExcelRankingExporter {
	return &ExcelRankingExporter{logger: logger}
}

// ContentType implements port.RankingExporter
func (e *ExcelRankingExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension implements port.RankingExporter
func (e *ExcelRankingExporter) FileExtension() string {
	return ".xlsx"
}

// ExportRanking writes one row per summary plus a trust level tally sheet
func (e *ExcelRankingExporter) ExportRanking(summaries []entity.ScoreSummary, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	e.setCell(f, rankingSheet, "A1", "Supplier Trust Ranking")
	e.setCell(f, rankingSheet, "A2", "Generated "+generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	for i, col := range rankingColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		e.setCell(f, rankingSheet, fmt.Sprintf("%s%d", name, headerRow), col.title)
		if err := f.SetColWidth(rankingSheet, name, name, col.width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(rankingColumns))
	if err := f.SetCellStyle(rankingSheet, "A3", fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	levels := map[entity.TrustLevel]int{}
	for i, s := range summaries {
		row := headerRow + 1 + i
		badges := make([]string, 0, len(s.Badges))
		for _, b := range s.Badges {
			badges = append(badges, string(b))
		}
		values := []interface{}{
			s.Position,
			s.SupplierID,
			s.SupplierName,
			string(s.Role),
			s.TrustScore,
			string(s.TrustLevel),
			s.Ranking.Overall,
			s.Ranking.ByRole,
			strings.Join(badges, ", "),
		}
		if err := f.SetSheetRow(rankingSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		levels[s.TrustLevel]++
	}

	if len(summaries) > 0 {
		if err := f.SetPanes(rankingSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      headerRow,
			TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("failed to freeze header: %w", err)
		}
	}

	if _, err := f.NewSheet(levelSheet); err != nil {
		return nil, fmt.Errorf("failed to add level sheet: %w", err)
	}
	e.setCell(f, levelSheet, "A1", "Trust Level")
	e.setCell(f, levelSheet, "B1", "Suppliers")
	for i, level := range []entity.TrustLevel{entity.TrustLevelA, entity.TrustLevelB, entity.TrustLevelC, entity.TrustLevelD} {
		row := i + 2
		e.setCell(f, levelSheet, fmt.Sprintf("A%d", row), string(level))
		if err := f.SetCellValue(levelSheet, fmt.Sprintf("B%d", row), levels[level]); err != nil {
			return nil, fmt.Errorf("failed to write level tally: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Ranking workbook rendered", zap.Int("rows", len(summaries)))
	return buf.Bytes(), nil
}

// setCell sets a cell value in the workbook
func (e *ExcelRankingExporter) setCell(f *excelize.File, sheet, cell, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// Verify interface compliance
var _ port.RankingExporter = (*ExcelRankingExporter)(nil)
