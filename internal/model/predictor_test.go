package model

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"waterqual/internal/sample"
)

func testSample(t *testing.T) sample.Sample {
	t.Helper()
	s, err := sample.FromMap(map[string]float64{
		"pH": 7.0, "Solids": 1000, "Sulfate": 200, "Organic_carbon": 10,
		"Turbidity": 4, "Hardness": 200, "Chloramines": 2,
		"Conductivity": 400, "Trihalomethanes": 50,
	})
	if err != nil {
		t.Fatalf("build sample: %v", err)
	}
	return s
}

// testArtifact is a two-tree forest splitting on pH at 7.5:
// pH <= 7.5 -> prob1 (0.9+0.7)/2 = 0.8, else (0.2+0.7)/2 = 0.45.
func testArtifact() Artifact {
	return Artifact{
		FormatVersion: FormatVersion,
		Version:       "test-1",
		TrainedAt:     time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Features:      append([]string(nil), sample.Params...),
		Trees: []Tree{
			{Nodes: []Node{
				{Feature: 0, Threshold: 7.5, Left: 1, Right: 2},
				{Leaf: true, Prob1: 0.9},
				{Leaf: true, Prob1: 0.2},
			}},
			{Nodes: []Node{
				{Leaf: true, Prob1: 0.7},
			}},
		},
	}
}

func writeArtifact(t *testing.T, art Artifact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	data, err := json.Marshal(art)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLoad_AndPredict(t *testing.T) {
	path := writeArtifact(t, testArtifact())

	p, err := Load(Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !p.Available() {
		t.Fatal("predictor should be backed by the artifact")
	}

	potable, conf, err := p.Predict(testSample(t))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !potable {
		t.Error("pH 7.0 should route to the potable leaf")
	}
	if math.Abs(conf-80) > 1e-9 {
		t.Errorf("confidence = %f, want 80", conf)
	}
}

func TestPredict_NotPotable(t *testing.T) {
	p, err := Load(Config{Path: writeArtifact(t, testArtifact())}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := testSample(t)
	s.PH = 9.0
	potable, conf, err := p.Predict(s)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if potable {
		t.Error("pH 9.0 should route to the non-potable leaf")
	}
	// prob1 = 0.45, so confidence is the class-0 probability.
	if math.Abs(conf-55) > 1e-9 {
		t.Errorf("confidence = %f, want 55", conf)
	}
}

func TestPredict_TieIsNotPotable(t *testing.T) {
	art := Artifact{
		FormatVersion: FormatVersion,
		Version:       "tie",
		Features:      append([]string(nil), sample.Params...),
		Trees:         []Tree{{Nodes: []Node{{Leaf: true, Prob1: 0.5}}}},
	}
	p, err := Load(Config{Path: writeArtifact(t, art)}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	potable, conf, err := p.Predict(testSample(t))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if potable {
		t.Error("exact 0.5/0.5 tie must resolve to not potable")
	}
	if conf != 50 {
		t.Errorf("confidence = %f, want 50", conf)
	}
}

func TestPredict_ConfidenceBounds(t *testing.T) {
	p, err := Load(Config{Path: writeArtifact(t, testArtifact())}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, ph := range []float64{0, 3, 6.5, 7, 8.5, 11, 14} {
		s := testSample(t)
		s.PH = ph
		_, conf, err := p.Predict(s)
		if err != nil {
			t.Fatalf("Predict(pH=%f) failed: %v", ph, err)
		}
		if conf < 50 || conf > 100 {
			t.Errorf("confidence %f out of [50,100] for pH %f", conf, ph)
		}
	}
}

func TestLoad_MissingArtifactFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	p, err := Load(Config{Path: path, AllowFallback: true}, nil)
	if err != nil {
		t.Fatalf("Load with fallback failed: %v", err)
	}
	if p.Available() {
		t.Error("predictor should be in fallback mode")
	}
	if p.Metadata() != nil {
		t.Error("fallback mode has no metadata")
	}

	// An all-safe sample satisfies the >=7-of-9 rule.
	potable, conf, err := p.Predict(testSample(t))
	if err != nil {
		t.Fatalf("fallback Predict failed: %v", err)
	}
	if !potable {
		t.Error("all-safe sample should be potable under the fallback rule")
	}
	if conf < 50 || conf > 100 {
		t.Errorf("fallback confidence %f out of [50,100]", conf)
	}
}

func TestLoad_MissingArtifactFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := Load(Config{Path: path, AllowFallback: false}, nil)
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestFallback_UnsafeSample(t *testing.T) {
	p, err := Load(Config{Path: filepath.Join(t.TempDir(), "absent.json"), AllowFallback: true}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Only 5 of 9 parameters in range: below the 7-of-9 threshold.
	s := testSample(t)
	s.PH = 12
	s.Turbidity = 9
	s.Sulfate = 900
	s.Chloramines = 6

	potable, conf, err := p.Predict(s)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if potable {
		t.Error("sample violating the 7-of-9 rule should not be potable")
	}
	if conf < 50 || conf > 100 {
		t.Errorf("confidence %f out of [50,100]", conf)
	}
}

func TestLoad_BadFormatVersion(t *testing.T) {
	art := testArtifact()
	art.FormatVersion = 99

	_, err := Load(Config{Path: writeArtifact(t, art)}, nil)
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoad_WrongFeatures(t *testing.T) {
	art := testArtifact()
	art.Features[0] = "temperature"

	_, err := Load(Config{Path: writeArtifact(t, art)}, nil)
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoad_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Load(Config{Path: path}, nil)
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoad_DanglingChild(t *testing.T) {
	art := testArtifact()
	art.Trees[0].Nodes[0].Right = 42

	_, err := Load(Config{Path: writeArtifact(t, art)}, nil)
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestPredict_InvalidFeatures(t *testing.T) {
	p, err := Load(Config{Path: writeArtifact(t, testArtifact())}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := testSample(t)
	s.Conductivity = math.NaN()
	if _, _, err := p.Predict(s); !errors.Is(err, ErrInvalidFeatureSet) {
		t.Errorf("expected ErrInvalidFeatureSet, got %v", err)
	}
}

func TestMetadata(t *testing.T) {
	p, err := Load(Config{Path: writeArtifact(t, testArtifact())}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	meta := p.Metadata()
	if meta == nil {
		t.Fatal("no metadata returned")
	}
	if meta.Version != "test-1" {
		t.Errorf("version = %q", meta.Version)
	}
	if meta.Trees != nil {
		t.Error("metadata should not carry the trees")
	}
}
