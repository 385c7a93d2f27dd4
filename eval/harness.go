package eval

import (
	"context"
	"fmt"
	"time"
)

// AskFunc produces an answer for one gold question.
type AskFunc func(ctx context.Context, question string) (string, error)

type Report struct {
	Total      int
	Hits       int
	Precision  float64
	AvgLatency time.Duration
}

// Run asks every gold question and measures hit rate and average latency.
func Run(ctx context.Context, ask AskFunc, gold []Case) (Report, error) {
	report := Report{Total: len(gold)}
	if len(gold) == 0 {
		return report, fmt.Errorf("gold set is empty")
	}

	var elapsed time.Duration
	for _, item := range gold {
		start := time.Now()
		answer, err := ask(ctx, item.Question)
		if err != nil {
			return report, fmt.Errorf("ask %q: %w", item.Question, err)
		}
		elapsed += time.Since(start)

		if AnswerMatches(answer, item.IdealAnswerContains) {
			report.Hits++
		}
	}

	report.Precision = float64(report.Hits) / float64(report.Total)
	report.AvgLatency = elapsed / time.Duration(report.Total)
	return report, nil
}

// AskWithParamsFunc asks one question under explicit retrieval parameters.
type AskWithParamsFunc func(ctx context.Context, question string, k int, threshold float64) (string, error)

type GridPoint struct {
	K         int
	Threshold float64
	Precision float64
}

// Calibrate sweeps every k/threshold combination over the gold set and
// returns all grid points plus the best one (ties keep the earlier point, so
// the sweep is reproducible).
func Calibrate(ctx context.Context, ask AskWithParamsFunc, gold []Case, ks []int, thresholds []float64) ([]GridPoint, GridPoint, error) {
	if len(gold) == 0 {
		return nil, GridPoint{}, fmt.Errorf("gold set is empty")
	}
	if len(ks) == 0 || len(thresholds) == 0 {
		return nil, GridPoint{}, fmt.Errorf("calibration grid is empty")
	}

	var (
		points []GridPoint
		best   GridPoint
	)

	for _, k := range ks {
		for _, threshold := range thresholds {
			hits := 0
			for _, item := range gold {
				answer, err := ask(ctx, item.Question, k, threshold)
				if err != nil {
					return points, best, fmt.Errorf("ask %q (k=%d thr=%.2f): %w", item.Question, k, threshold, err)
				}
				if AnswerMatches(answer, item.IdealAnswerContains) {
					hits++
				}
			}

			point := GridPoint{
				K:         k,
				Threshold: threshold,
				Precision: float64(hits) / float64(len(gold)),
			}
			points = append(points, point)
			if len(points) == 1 || point.Precision > best.Precision {
				best = point
			}
		}
	}

	return points, best, nil
}
