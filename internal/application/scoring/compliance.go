package scoring

import (
	"math"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// NonManufacturerDrugTerm is the fixed drug validity term for roles that do
// not produce batches, and for manufacturers with no batches yet.
const NonManufacturerDrugTerm = 25

// ComplianceResult is the compliance sub-score and its evidence snapshot
type ComplianceResult struct {
	Score int
	Stats entity.ComplianceStats
}

// ScoreCompliance computes the compliance sub-score in [0,250]. It sums a
// signature validity term (max 100), an on-time task term (max 100) and a
// drug validity term (max 50). Drugs are only considered for manufacturers.
// A supplier with no compliance evidence at all gets the neutral default.
func ScoreCompliance(role entity.Role, signatures []*entity.Signature, tasks []*entity.Task, drugs []*entity.DrugBatch) ComplianceResult {
	var stats entity.ComplianceStats

	stats.TotalSignatures = len(signatures)
	for _, s := range signatures {
		if s.IsValid {
			stats.ValidSignatures++
		}
	}

	for _, t := range tasks {
		if !t.IsCompleted() {
			continue
		}
		stats.CompletedTasks++
		if t.IsOnTime() {
			stats.OnTimeTasks++
		}
	}

	isManufacturer := role == entity.RoleManufacturer
	if isManufacturer {
		stats.TotalDrugs = len(drugs)
		for _, d := range drugs {
			if d.IsValid() {
				stats.ValidDrugs++
			}
			if d.IsRecalled {
				stats.RecalledDrugs++
			}
		}
	}

	stats.SignatureValidityRate = round2(percent(stats.ValidSignatures, stats.TotalSignatures))
	stats.OnTimeRate = round2(percent(stats.OnTimeTasks, stats.CompletedTasks))

	if stats.TotalSignatures == 0 && stats.CompletedTasks == 0 && stats.TotalDrugs == 0 {
		return ComplianceResult{Score: entity.DefaultComplianceScore, Stats: stats}
	}

	signatureTerm := percent(stats.ValidSignatures, stats.TotalSignatures)
	onTimeTerm := percent(stats.OnTimeTasks, stats.CompletedTasks)

	drugTerm := float64(NonManufacturerDrugTerm)
	if isManufacturer && stats.TotalDrugs > 0 {
		drugTerm = math.Max(0,
			ratio(stats.ValidDrugs, stats.TotalDrugs)*50-ratio(stats.RecalledDrugs, stats.TotalDrugs)*50)
	}

	return ComplianceResult{
		Score: roundClamp(signatureTerm+onTimeTerm+drugTerm, entity.MaxComplianceScore),
		Stats: stats,
	}
}
