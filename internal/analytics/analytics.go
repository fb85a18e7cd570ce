// Package analytics computes the aggregate statistics shown on the admin
// dashboard. All aggregation runs over store snapshots; slightly stale
// numbers are acceptable for display.
package analytics

import (
	"waterqual/internal/safety"
	"waterqual/internal/sample"
	"waterqual/internal/store"
)

// Stats is the admin dashboard aggregate view.
type Stats struct {
	TotalUsers       int     `json:"total_users"`
	TotalPredictions int     `json:"total_predictions"`
	DrinkableCount   int     `json:"drinkable_count"`
	AvgConfidence    float64 `json:"avg_confidence"`

	// PredictionsByRegion counts submissions per free-text region value.
	PredictionsByRegion map[string]int `json:"predictions_by_region"`

	// ViolationsByParam counts, per parameter in table order, how many
	// stored samples fell outside the safe range.
	ViolationsByParam []ParamViolations `json:"violations_by_param"`
}

// ParamViolations is the unsafe-sample count for one parameter.
type ParamViolations struct {
	Parameter string `json:"parameter"`
	Count     int    `json:"count"`
}

// Compute aggregates users and predictions into dashboard statistics.
func Compute(users []store.User, preds []store.Prediction) Stats {
	st := Stats{
		TotalUsers:          len(users),
		TotalPredictions:    len(preds),
		PredictionsByRegion: make(map[string]int),
	}

	violations := make(map[string]int, len(sample.Params))
	confSum := 0.0

	for _, p := range preds {
		if p.Potability == 1 {
			st.DrinkableCount++
		}
		confSum += p.Confidence
		st.PredictionsByRegion[p.Region]++

		for _, row := range safety.Analyze(p.Sample) {
			if !row.Safe {
				violations[row.Parameter]++
			}
		}
	}

	if len(preds) > 0 {
		st.AvgConfidence = confSum / float64(len(preds))
	}

	for _, name := range sample.Params {
		st.ViolationsByParam = append(st.ViolationsByParam, ParamViolations{
			Parameter: name,
			Count:     violations[name],
		})
	}

	return st
}
