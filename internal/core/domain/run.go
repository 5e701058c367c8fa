package domain

import "time"

type RunState string

const (
	RunInit       RunState = "init"
	RunTokenReady RunState = "token_ready"
	RunProcessing RunState = "processing"
	RunDone       RunState = "done"
	RunAborted    RunState = "aborted"
)

// RunResult is the ordered result set of one batch run.
type RunResult struct {
	RunID      string
	InputDir   string
	Rubric     Rubric
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []ResultRecord
}

type RunStats struct {
	Total        int
	Graded       int
	Failed       int
	TotalScore   int
	AverageScore float64
}

// Stats averages over graded records only; zero-scored failures would skew it.
func (r RunResult) Stats() RunStats {
	stats := RunStats{Total: len(r.Records)}
	for _, rec := range r.Records {
		if rec.Failed() {
			stats.Failed++
			continue
		}
		stats.Graded++
		stats.TotalScore += rec.Score
	}
	if stats.Graded > 0 {
		stats.AverageScore = float64(stats.TotalScore) / float64(stats.Graded)
	}
	return stats
}

func (r RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
