package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/pharmachain/trustscore/internal/application/service"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/infrastructure/worker"
)

const (
	formatConsole = "console"
	formatJSON    = "json"
	formatYAML    = "yaml"
)

type renderer struct {
	out      io.Writer
	format   string
	colorize bool

	title lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
}

func newRenderer(out io.Writer, format string, colorize bool) (*renderer, error) {
	switch format {
	case formatConsole, formatJSON, formatYAML:
	default:
		return nil, fmt.Errorf("unknown format %q (console, json, yaml)", format)
	}

	r := &renderer{
		out:      out,
		format:   format,
		colorize: colorize,
		title:    lipgloss.NewStyle(),
		label:    lipgloss.NewStyle(),
		muted:    lipgloss.NewStyle(),
	}
	if colorize {
		r.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
		r.label = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		r.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	}
	return r, nil
}

// structured writes v as json or yaml; it reports false in console mode
func (r *renderer) structured(v interface{}) (bool, error) {
	switch r.format {
	case formatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

func (r *renderer) levelStyle(level entity.TrustLevel) lipgloss.Style {
	if !r.colorize {
		return lipgloss.NewStyle()
	}
	switch level {
	case entity.TrustLevelA:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")) // green
	case entity.TrustLevelB:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	case entity.TrustLevelC:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red
	}
}

func (r *renderer) riskStyle(level entity.RiskLevel) lipgloss.Style {
	if !r.colorize {
		return lipgloss.NewStyle()
	}
	switch level {
	case entity.RiskCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	case entity.RiskHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	case entity.RiskMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	}
}

func (r *renderer) line(label string, value interface{}) {
	fmt.Fprintf(r.out, "  %s %v\n", r.label.Render(fmt.Sprintf("%-14s", label+":")), value)
}

func (r *renderer) breakdown(b entity.ScoreBreakdown) {
	fmt.Fprintln(r.out, r.title.Render("  Breakdown"))
	r.line("review", fmt.Sprintf("%d/%d", b.Review, entity.MaxReviewScore))
	r.line("compliance", fmt.Sprintf("%d/%d", b.Compliance, entity.MaxComplianceScore))
	r.line("quality", fmt.Sprintf("%d/%d", b.Quality, entity.MaxQualityScore))
	r.line("efficiency", fmt.Sprintf("%d/%d", b.Efficiency, entity.MaxEfficiencyScore))
	r.line("timeliness", fmt.Sprintf("%d/%d", b.Timeliness, entity.MaxTimelinessScore))
}

// Score renders a stored trust score record
func (r *renderer) Score(s *entity.SupplierScore) error {
	if done, err := r.structured(s); done {
		return err
	}

	fmt.Fprintf(r.out, "%s %s\n", r.title.Render(s.SupplierName), r.muted.Render("("+s.SupplierID+", "+s.Role.String()+")"))
	r.line("trust score", r.levelStyle(s.TrustLevel).Render(fmt.Sprintf("%d  level %s", s.TrustScore, s.TrustLevel)))
	r.line("base score", s.BaseScore)
	if s.Ranking.Overall > 0 {
		r.line("rank", fmt.Sprintf("#%d overall, #%d in %s", s.Ranking.Overall, s.Ranking.ByRole, s.Role))
	}
	if len(s.Badges) > 0 {
		names := make([]string, 0, len(s.Badges))
		for _, b := range s.Badges {
			names = append(names, b.Name)
		}
		r.line("badges", strings.Join(names, ", "))
	}
	if s.LastCalculated != nil {
		r.line("calculated", s.LastCalculated.Format("2006-01-02 15:04:05"))
	}
	r.breakdown(s.Breakdown)
	return nil
}

// Badges renders the badges a single evaluation newly awarded
func (r *renderer) Badges(supplierID string, awarded []entity.Badge) error {
	if awarded == nil {
		awarded = []entity.Badge{}
	}
	if done, err := r.structured(awarded); done {
		return err
	}

	if len(awarded) == 0 {
		fmt.Fprintln(r.out, r.muted.Render("No new badges for "+supplierID))
		return nil
	}
	for _, b := range awarded {
		r.line(string(b.ID), b.Name)
	}
	return nil
}

// Preview renders an unsaved recomputation
func (r *renderer) Preview(p *service.ScorePreview) error {
	if done, err := r.structured(p); done {
		return err
	}

	fmt.Fprintf(r.out, "%s %s\n", r.title.Render("Preview "+p.SupplierID), r.muted.Render("(not saved)"))
	r.line("trust score", r.levelStyle(p.TrustLevel).Render(fmt.Sprintf("%d  level %s", p.TrustScore, p.TrustLevel)))
	r.line("base score", p.BaseScore)
	r.line("adjustments", fmt.Sprintf("%+d", p.NetAdjustment))
	r.breakdown(p.Breakdown)
	for _, f := range p.Failures {
		r.line("failed", f.Component+": "+f.Error)
	}
	return nil
}

// History renders one page of score history
func (r *renderer) History(h *service.HistoryPage) error {
	if done, err := r.structured(h); done {
		return err
	}

	fmt.Fprintf(r.out, "%s %s\n", r.title.Render("History "+h.SupplierID),
		r.muted.Render(fmt.Sprintf("page %d/%d, %d entries", h.Page, maxInt(h.TotalPages, 1), h.Total)))
	if len(h.Entries) == 0 {
		fmt.Fprintln(r.out, r.muted.Render("  no score changes recorded"))
		return nil
	}
	for _, e := range h.Entries {
		fmt.Fprintf(r.out, "  %s  %4d -> %4d  %+5d  %s\n",
			e.ChangedAt.Format("2006-01-02 15:04"), e.PreviousScore, e.NewScore, e.Change, e.Reason)
	}
	return nil
}

// Ranking renders a ranking listing
func (r *renderer) Ranking(rows []entity.ScoreSummary) error {
	if done, err := r.structured(rows); done {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(r.out, r.muted.Render("no scored suppliers"))
		return nil
	}
	fmt.Fprintln(r.out, r.title.Render(fmt.Sprintf("%-4s %-32s %-13s %6s %s", "#", "SUPPLIER", "ROLE", "SCORE", "LEVEL")))
	for _, s := range rows {
		name := s.SupplierName
		if name == "" {
			name = s.SupplierID
		}
		fmt.Fprintf(r.out, "%-4d %-32s %-13s %6d %s\n",
			s.Position, truncate(name, 32), s.Role, s.TrustScore, r.levelStyle(s.TrustLevel).Render(string(s.TrustLevel)))
	}
	return nil
}

// Risks renders drug batch risk assessments
func (r *renderer) Risks(assessments []*entity.DrugRiskAssessment) error {
	if done, err := r.structured(assessments); done {
		return err
	}

	if len(assessments) == 0 {
		fmt.Fprintln(r.out, r.muted.Render("no batches"))
		return nil
	}
	for _, a := range assessments {
		fmt.Fprintf(r.out, "%s %s\n", r.title.Render(a.DrugName+" "+a.BatchNumber), r.muted.Render("("+a.DrugBatchID+")"))
		r.line("risk", r.riskStyle(a.Level).Render(fmt.Sprintf("%d  %s", a.Score, a.Level)))
		for _, f := range a.Factors {
			fmt.Fprintf(r.out, "    %+4d  %s\n", f.Weight, f.Description)
		}
	}
	return nil
}

// RunSummary renders a full recompute pass
func (r *renderer) RunSummary(s *worker.RunSummary) error {
	if done, err := r.structured(s); done {
		return err
	}

	fmt.Fprintln(r.out, r.title.Render("Recalculation complete"))
	r.line("suppliers", s.Suppliers)
	r.line("recalculated", s.Recalculated)
	r.line("failed", s.Failed)
	r.line("rank failures", s.RankFailures)
	r.line("duration", s.Duration.Round(time.Millisecond))
	return nil
}

// Exported renders the outcome of a ranking export
func (r *renderer) Exported(path string, result *service.ExportResult) error {
	view := struct {
		Path       string `json:"path" yaml:"path"`
		Rows       int    `json:"rows" yaml:"rows"`
		StoredPath string `json:"stored_path,omitempty" yaml:"stored_path,omitempty"`
	}{path, result.Rows, result.StoredPath}
	if done, err := r.structured(view); done {
		return err
	}

	fmt.Fprintf(r.out, "%s %s\n", r.title.Render("Exported"), path)
	r.line("rows", result.Rows)
	if result.StoredPath != "" {
		r.line("archived", result.StoredPath)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
