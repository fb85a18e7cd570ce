package model

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"waterqual/internal/safety"
	"waterqual/internal/sample"
)

// MetricsInterface defines the metrics methods needed by the predictor.
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	FallbackUseInc()
	InferenceLatencyObserve(float64)
	ConfidenceObserve(float64)
	ModelAgeSet(float64)
}

// Config controls how the classifier artifact is located and loaded.
type Config struct {
	Path          string        // local artifact path
	URL           string        // optional remote artifact location
	FetchTimeout  time.Duration // timeout for the remote fetch
	AllowFallback bool          // serve heuristic predictions when no artifact exists
}

// Predictor runs potability inference. It is loaded once per process and is
// safe for concurrent use; there is no teardown.
type Predictor struct {
	mu           sync.RWMutex
	available    bool
	modelPath    string
	art          *Artifact
	modelCreated time.Time
	lastUsed     time.Time
	metrics      MetricsInterface
}

var (
	sharedOnce sync.Once
	sharedPred *Predictor
	sharedErr  error
)

// Shared lazily loads the process-wide predictor on first use and returns
// the same instance afterwards.
func Shared(cfg Config, metrics MetricsInterface) (*Predictor, error) {
	sharedOnce.Do(func() {
		sharedPred, sharedErr = Load(cfg, metrics)
	})
	return sharedPred, sharedErr
}

// Load reads the classifier artifact. A missing artifact is fatal unless
// cfg.AllowFallback is set, in which case the predictor serves rule-based
// heuristic predictions. A present but corrupt or incompatible artifact is
// always fatal.
func Load(cfg Config, metrics MetricsInterface) (*Predictor, error) {
	p := &Predictor{modelPath: cfg.Path, metrics: metrics}

	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) && cfg.URL != "" {
		if err := fetchArtifact(cfg.URL, cfg.Path, cfg.FetchTimeout); err != nil {
			log.Warn().Err(err).Str("url", cfg.URL).Msg("remote artifact fetch failed")
		}
	}

	if info, err := os.Stat(cfg.Path); err == nil {
		p.modelCreated = info.ModTime()
	} else if os.IsNotExist(err) {
		if !cfg.AllowFallback {
			return nil, fmt.Errorf("%w: artifact %s not found", ErrModelLoad, cfg.Path)
		}
		log.Warn().Str("model_path", cfg.Path).
			Msg("classifier artifact not found, serving rule-based fallback predictions")
		return p, nil
	} else {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrModelLoad, cfg.Path, err)
	}

	art, err := readArtifact(cfg.Path)
	if err != nil {
		return nil, err
	}

	p.art = art
	p.available = true

	log.Info().
		Str("model_path", cfg.Path).
		Str("version", art.Version).
		Int("trees", len(art.Trees)).
		Time("trained_at", art.TrainedAt).
		Msg("classifier artifact loaded")

	if metrics != nil && !p.modelCreated.IsZero() {
		metrics.ModelAgeSet(time.Since(p.modelCreated).Seconds())
	}

	return p, nil
}

// Available reports whether a trained artifact backs predictions, as
// opposed to the heuristic fallback.
func (p *Predictor) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

// Metadata returns the loaded artifact's metadata, or nil in fallback mode.
func (p *Predictor) Metadata() *Artifact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.art == nil {
		return nil
	}
	meta := *p.art
	meta.Trees = nil
	return &meta
}

// Predict classifies a sample. It returns the potability label and the
// probability of the predicted class as a percentage; the label rule is
// prob1 > 0.5, so an exact tie yields not-potable, and confidence is always
// within [50,100].
func (p *Predictor) Predict(s sample.Sample) (potable bool, confidence float64, err error) {
	if p == nil {
		return false, 0, fmt.Errorf("%w: predictor is nil", ErrInvalidFeatureSet)
	}

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.InferenceLatencyObserve(time.Since(start).Seconds())
		}
	}()

	if err := validateFeatures(s); err != nil {
		if p.metrics != nil {
			p.metrics.PredictionFailuresInc()
		}
		return false, 0, err
	}

	p.mu.Lock()
	p.lastUsed = time.Now()
	available := p.available
	art := p.art
	p.mu.Unlock()

	var prob1 float64
	if available {
		prob1 = forestProb1(art, s.Vector())
	} else {
		prob1 = fallbackProb1(s)
		if p.metrics != nil {
			p.metrics.FallbackUseInc()
		}
	}

	potable = prob1 > 0.5
	confidence = prob1 * 100
	if !potable {
		confidence = (1 - prob1) * 100
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.ConfidenceObserve(confidence)
	}

	log.Debug().
		Bool("potable", potable).
		Float64("confidence", confidence).
		Bool("fallback", !available).
		Msg("prediction complete")

	return potable, confidence, nil
}

// forestProb1 averages the class-1 probability over every tree.
func forestProb1(art *Artifact, vec []float64) float64 {
	sum := 0.0
	for _, t := range art.Trees {
		sum += t.prob1(vec)
	}
	return sum / float64(len(art.Trees))
}

// fallbackProb1 scores a sample by the training rule: a sample is potable
// when at least 7 of the 9 parameters sit inside their safe range. The
// score is shaped so the label flips exactly at that threshold while
// staying strictly inside (0,1).
func fallbackProb1(s sample.Sample) float64 {
	count := float64(safety.SafeCount(s))
	prob := 0.5 + (count-6.5)*0.08
	return math.Min(0.98, math.Max(0.02, prob))
}

func validateFeatures(s sample.Sample) error {
	for _, name := range sample.Params {
		v := s.Value(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: parameter %s is not numeric", ErrInvalidFeatureSet, name)
		}
	}
	return nil
}
