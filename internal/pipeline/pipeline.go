// Package pipeline orchestrates one prediction request end to end:
// validation, classifier inference, safety analysis and persistence. It is
// the only place those pieces compose, and it guarantees that nothing is
// persisted when any earlier step fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"waterqual/internal/model"
	"waterqual/internal/safety"
	"waterqual/internal/sample"
	"waterqual/internal/store"
)

var (
	ErrInvalidSample   = errors.New("invalid sample")
	ErrMissingLocation = errors.New("region and state must be non-empty")
	ErrUnknownUser     = errors.New("unknown user")
)

// Metrics is the subset of service metrics the pipeline reports to.
type Metrics interface {
	PredictionFailuresInc()
	StorageErrorInc()
}

// Outcome is the full result of one pipeline invocation.
type Outcome struct {
	PredictionID string        `json:"prediction_id"`
	Potable      bool          `json:"potable"`
	Confidence   float64       `json:"confidence"`
	Timestamp    time.Time     `json:"timestamp"`
	Analysis     []safety.Row  `json:"analysis"`
	Precautions  []string      `json:"precautions"`
	Sample       sample.Sample `json:"sample"`
}

// Pipeline wires the stores, the classifier and the analyzer together.
type Pipeline struct {
	store     *store.Store
	predictor *model.Predictor
	metrics   Metrics
	now       func() time.Time
}

func New(s *store.Store, p *model.Predictor, m Metrics) *Pipeline {
	return &Pipeline{store: s, predictor: p, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// Evaluate runs the full prediction pipeline for one sample submission.
// params must contain all nine sample parameters; region and state must be
// non-empty; userID must reference an existing user. On any failure no
// prediction record is persisted.
func (pl *Pipeline) Evaluate(ctx context.Context, userID, region, state string, params map[string]float64) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	smp, err := sample.FromMap(params)
	if err != nil {
		pl.failuresInc()
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	if err := smp.Validate(); err != nil {
		pl.failuresInc()
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}

	if region == "" || state == "" {
		pl.failuresInc()
		return Outcome{}, ErrMissingLocation
	}

	// The prediction table has no foreign-key mechanism; enforce the
	// user reference here instead.
	if _, found, err := pl.store.UserByID(userID); err != nil {
		pl.storageErrInc()
		return Outcome{}, err
	} else if !found {
		pl.failuresInc()
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	potable, confidence, err := pl.predictor.Predict(smp)
	if err != nil {
		return Outcome{}, err
	}

	analysis := safety.Analyze(smp)
	precautions := safety.Precautions(smp)

	potability := 0
	if potable {
		potability = 1
	}

	ts := pl.now()
	id, err := pl.store.AppendPrediction(store.Prediction{
		UserID:     userID,
		Region:     region,
		State:      state,
		Timestamp:  ts,
		Potability: potability,
		Confidence: confidence,
		Sample:     smp,
	})
	if err != nil {
		// A failed persist must surface; the caller gets no result.
		pl.storageErrInc()
		log.Error().Err(err).Str("user_id", userID).Msg("prediction persist failed")
		return Outcome{}, err
	}

	log.Info().
		Str("prediction_id", id).
		Str("user_id", userID).
		Str("region", region).
		Bool("potable", potable).
		Float64("confidence", confidence).
		Int("precautions", len(precautions)).
		Msg("prediction recorded")

	return Outcome{
		PredictionID: id,
		Potable:      potable,
		Confidence:   confidence,
		Timestamp:    ts,
		Analysis:     analysis,
		Precautions:  precautions,
		Sample:       smp,
	}, nil
}

func (pl *Pipeline) failuresInc() {
	if pl.metrics != nil {
		pl.metrics.PredictionFailuresInc()
	}
}

func (pl *Pipeline) storageErrInc() {
	if pl.metrics != nil {
		pl.metrics.StorageErrorInc()
	}
}
