// Package sample defines the water-sample record shared by the classifier,
// the safety analyzer and the prediction stores. A sample always carries the
// same nine measured parameters in a fixed order.
package sample

import (
	"errors"
	"fmt"
	"math"
)

// Parameter names in canonical order. The classifier's feature vector and
// every tabular surface (analysis rows, CSV columns) follow this order.
var Params = []string{
	"pH",
	"Solids",
	"Sulfate",
	"Organic_carbon",
	"Turbidity",
	"Hardness",
	"Chloramines",
	"Conductivity",
	"Trihalomethanes",
}

var ErrMissingParam = errors.New("missing sample parameter")

// Sample holds one measurement of the nine water-quality parameters.
type Sample struct {
	PH              float64 `json:"pH"`
	Solids          float64 `json:"Solids"`
	Sulfate         float64 `json:"Sulfate"`
	OrganicCarbon   float64 `json:"Organic_carbon"`
	Turbidity       float64 `json:"Turbidity"`
	Hardness        float64 `json:"Hardness"`
	Chloramines     float64 `json:"Chloramines"`
	Conductivity    float64 `json:"Conductivity"`
	Trihalomethanes float64 `json:"Trihalomethanes"`
}

// FromMap builds a Sample from a name/value mapping. Every parameter in
// Params must be present; extra keys are ignored.
func FromMap(m map[string]float64) (Sample, error) {
	var s Sample
	for _, name := range Params {
		v, ok := m[name]
		if !ok {
			return Sample{}, fmt.Errorf("%w: %s", ErrMissingParam, name)
		}
		s.set(name, v)
	}
	return s, nil
}

// Value returns the named parameter. Unknown names return 0.
func (s Sample) Value(name string) float64 {
	switch name {
	case "pH":
		return s.PH
	case "Solids":
		return s.Solids
	case "Sulfate":
		return s.Sulfate
	case "Organic_carbon":
		return s.OrganicCarbon
	case "Turbidity":
		return s.Turbidity
	case "Hardness":
		return s.Hardness
	case "Chloramines":
		return s.Chloramines
	case "Conductivity":
		return s.Conductivity
	case "Trihalomethanes":
		return s.Trihalomethanes
	}
	return 0
}

func (s *Sample) set(name string, v float64) {
	switch name {
	case "pH":
		s.PH = v
	case "Solids":
		s.Solids = v
	case "Sulfate":
		s.Sulfate = v
	case "Organic_carbon":
		s.OrganicCarbon = v
	case "Turbidity":
		s.Turbidity = v
	case "Hardness":
		s.Hardness = v
	case "Chloramines":
		s.Chloramines = v
	case "Conductivity":
		s.Conductivity = v
	case "Trihalomethanes":
		s.Trihalomethanes = v
	}
}

// Vector returns the feature vector in canonical parameter order.
func (s Sample) Vector() []float64 {
	v := make([]float64, len(Params))
	for i, name := range Params {
		v[i] = s.Value(name)
	}
	return v
}

// Validate checks that every parameter is a finite, non-negative number.
func (s Sample) Validate() error {
	for _, name := range Params {
		v := s.Value(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("parameter %s is not a finite number", name)
		}
		if v < 0 {
			return fmt.Errorf("parameter %s must be non-negative, got %f", name, v)
		}
	}
	return nil
}

// ToMap returns the sample as a name/value mapping in no particular order.
func (s Sample) ToMap() map[string]float64 {
	m := make(map[string]float64, len(Params))
	for _, name := range Params {
		m[name] = s.Value(name)
	}
	return m
}
