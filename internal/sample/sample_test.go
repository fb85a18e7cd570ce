package sample

import (
	"errors"
	"math"
	"testing"
)

func validMap() map[string]float64 {
	return map[string]float64{
		"pH": 7.0, "Solids": 1000, "Sulfate": 200, "Organic_carbon": 10,
		"Turbidity": 4, "Hardness": 200, "Chloramines": 2,
		"Conductivity": 400, "Trihalomethanes": 50,
	}
}

func TestFromMap(t *testing.T) {
	s, err := FromMap(validMap())
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}
	if s.PH != 7.0 || s.Trihalomethanes != 50 {
		t.Errorf("unexpected values: pH=%f THM=%f", s.PH, s.Trihalomethanes)
	}
}

func TestFromMap_MissingParam(t *testing.T) {
	m := validMap()
	delete(m, "Sulfate")

	_, err := FromMap(m)
	if !errors.Is(err, ErrMissingParam) {
		t.Errorf("expected ErrMissingParam, got %v", err)
	}
}

func TestFromMap_IgnoresExtraKeys(t *testing.T) {
	m := validMap()
	m["Lead"] = 1.0

	if _, err := FromMap(m); err != nil {
		t.Errorf("extra keys should be ignored, got %v", err)
	}
}

func TestVectorOrder(t *testing.T) {
	s, _ := FromMap(validMap())
	vec := s.Vector()

	if len(vec) != len(Params) {
		t.Fatalf("expected %d features, got %d", len(Params), len(vec))
	}
	for i, name := range Params {
		if vec[i] != s.Value(name) {
			t.Errorf("vector[%d] = %f, want %s = %f", i, vec[i], name, s.Value(name))
		}
	}
}

func TestValidate(t *testing.T) {
	s, _ := FromMap(validMap())
	if err := s.Validate(); err != nil {
		t.Errorf("valid sample rejected: %v", err)
	}

	s.Sulfate = -1
	if err := s.Validate(); err == nil {
		t.Error("negative value accepted")
	}

	s.Sulfate = math.NaN()
	if err := s.Validate(); err == nil {
		t.Error("NaN accepted")
	}

	s.Sulfate = math.Inf(1)
	if err := s.Validate(); err == nil {
		t.Error("Inf accepted")
	}
}

func TestToMapRoundTrip(t *testing.T) {
	s, _ := FromMap(validMap())
	back, err := FromMap(s.ToMap())
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if back != s {
		t.Errorf("round trip mismatch: %+v != %+v", back, s)
	}
}
