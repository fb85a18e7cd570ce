// Package model loads the pre-trained potability classifier and runs
// inference over nine-parameter water samples. The artifact is a decision
// forest exported by the offline training job; when no artifact is present
// the predictor degrades to a rule-based heuristic instead of failing.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"waterqual/internal/sample"
)

// FormatVersion is the artifact layout this build understands. Artifacts
// with any other version fail to load.
const FormatVersion = 1

var (
	ErrModelLoad         = errors.New("model artifact load failed")
	ErrInvalidFeatureSet = errors.New("invalid feature set")
)

// Node is one decision node. Leaf nodes carry the class-1 probability mass
// observed at the leaf during training; internal nodes route on
// vec[Feature] <= Threshold.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Prob1     float64 `json:"prob1,omitempty"`
}

// Tree is a single decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is the serialized classifier plus its training metadata.
type Artifact struct {
	FormatVersion int       `json:"format_version"`
	Version       string    `json:"version"`
	TrainedAt     time.Time `json:"trained_at"`
	Features      []string  `json:"features"`
	Accuracy      float64   `json:"accuracy,omitempty"`
	TrainingRows  int       `json:"training_rows,omitempty"`
	Trees         []Tree    `json:"trees"`
}

// prob1 walks the tree for one feature vector and returns the class-1
// probability at the reached leaf.
func (t Tree) prob1(vec []float64) float64 {
	i := 0
	// A forest exported from bounded-depth training can never loop, but a
	// corrupt artifact could; bound the walk by the node count.
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob1
		}
		if vec[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0.5
}

// readArtifact parses and validates an artifact file.
func readArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelLoad, path, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrModelLoad, path, err)
	}

	if art.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrModelLoad, art.FormatVersion)
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: artifact contains no trees", ErrModelLoad)
	}
	if len(art.Features) != len(sample.Params) {
		return nil, fmt.Errorf("%w: expected %d features, got %d",
			ErrModelLoad, len(sample.Params), len(art.Features))
	}
	for i, name := range sample.Params {
		if art.Features[i] != name {
			return nil, fmt.Errorf("%w: feature %d is %q, want %q",
				ErrModelLoad, i, art.Features[i], name)
		}
	}
	for ti, t := range art.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("%w: tree %d has no nodes", ErrModelLoad, ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if n.Prob1 < 0 || n.Prob1 > 1 {
					return nil, fmt.Errorf("%w: tree %d node %d prob1 %f out of range",
						ErrModelLoad, ti, ni, n.Prob1)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(sample.Params) {
				return nil, fmt.Errorf("%w: tree %d node %d references feature %d",
					ErrModelLoad, ti, ni, n.Feature)
			}
			if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("%w: tree %d node %d has dangling child",
					ErrModelLoad, ti, ni)
			}
		}
	}

	return &art, nil
}
