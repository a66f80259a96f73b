package scoring

import "github.com/pharmachain/trustscore/internal/domain/entity"

// EfficiencyResult is the efficiency sub-score and its evidence snapshot
type EfficiencyResult struct {
	Score int
	Stats entity.EfficiencyStats
}

// ScoreEfficiency computes the efficiency sub-score in [0,150] from the
// completion rate and the average quality rating of completed tasks.
func ScoreEfficiency(tasks []*entity.Task) EfficiencyResult {
	if len(tasks) == 0 {
		return EfficiencyResult{Score: entity.DefaultEfficiencyScore}
	}

	stats := entity.EfficiencyStats{TotalTasks: len(tasks)}
	ratingSum := 0.0
	for _, t := range tasks {
		if !t.IsCompleted() {
			continue
		}
		stats.CompletedTasks++
		if t.QualityRating != nil {
			stats.RatedTasks++
			ratingSum += *t.QualityRating
		}
	}

	score := percent(stats.CompletedTasks, stats.TotalTasks)
	stats.CompletionRate = round2(score)

	if stats.RatedTasks > 0 {
		avg := ratingSum / float64(stats.RatedTasks)
		stats.AverageTaskRating = round2(avg)
		score += (avg / 5) * 50
	}

	return EfficiencyResult{
		Score: roundClamp(score, entity.MaxEfficiencyScore),
		Stats: stats,
	}
}

// TimelinessResult is the timeliness sub-score and its evidence snapshot
type TimelinessResult struct {
	Score int
	Stats entity.TimelinessStats
}

// ScoreTimeliness computes the timeliness sub-score in [0,100] as the on-time
// share of completed tasks.
func ScoreTimeliness(tasks []*entity.Task) TimelinessResult {
	var stats entity.TimelinessStats
	for _, t := range tasks {
		if !t.IsCompleted() {
			continue
		}
		stats.CompletedTasks++
		if t.IsOnTime() {
			stats.OnTimeTasks++
		}
	}

	if stats.CompletedTasks == 0 {
		return TimelinessResult{Score: entity.DefaultTimelinessScore}
	}

	rate := percent(stats.OnTimeTasks, stats.CompletedTasks)
	stats.OnTimeRate = round2(rate)

	return TimelinessResult{
		Score: roundClamp(rate, entity.MaxTimelinessScore),
		Stats: stats,
	}
}
