package runner

import "github.com/ssrsss/API-Check/internal/models"

// Fold appends one completed round to the rounds seen so far for a task and
// recomputes the rollup. It is pure and incremental: the scheduler calls it
// once per completed round, building the aggregate as rounds stream in
// rather than recomputing from scratch at the end.
//
// The average latency and success count are order-independent; only Message,
// which mirrors the newest round, depends on order.
func Fold(rounds []models.ProbeResult, next models.ProbeResult) ([]models.ProbeResult, models.AggregatedResult) {
	rounds = append(rounds, next)

	agg := models.AggregatedResult{
		Rounds:  len(rounds),
		Message: next.Message,
	}

	var latencySum int64
	toolMode := false
	anyError := false
	for _, r := range rounds {
		latencySum += r.LatencyMs
		if r.Status.OK() {
			agg.SuccessCount++
		}
		if r.Status == models.StatusError {
			anyError = true
		}
		if r.Kind == models.ProbeKindTool {
			toolMode = true
		}
	}

	n := int64(len(rounds))
	agg.AvgLatencyMs = (latencySum + n/2) / n // rounded to nearest

	switch {
	case toolMode && agg.SuccessCount > 0:
		agg.Status = models.StatusSupported
	case toolMode && anyError:
		agg.Status = models.StatusError
	case toolMode:
		agg.Status = models.StatusUnsupported
	case agg.SuccessCount > 0:
		agg.Status = models.StatusSuccess
	default:
		agg.Status = models.StatusError
	}

	return rounds, agg
}
