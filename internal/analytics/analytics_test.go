package analytics

import (
	"testing"
	"time"

	"waterqual/internal/sample"
	"waterqual/internal/store"
)

func mkSample(over map[string]float64) sample.Sample {
	m := map[string]float64{
		"pH": 7.0, "Solids": 1000, "Sulfate": 200, "Organic_carbon": 10,
		"Turbidity": 4, "Hardness": 200, "Chloramines": 2,
		"Conductivity": 400, "Trihalomethanes": 50,
	}
	for k, v := range over {
		m[k] = v
	}
	s, _ := sample.FromMap(m)
	return s
}

func TestCompute_Empty(t *testing.T) {
	st := Compute(nil, nil)

	if st.TotalUsers != 0 || st.TotalPredictions != 0 || st.DrinkableCount != 0 {
		t.Errorf("empty input produced non-zero counts: %+v", st)
	}
	if st.AvgConfidence != 0 {
		t.Errorf("empty input avg confidence = %f", st.AvgConfidence)
	}
	if len(st.ViolationsByParam) != 9 {
		t.Errorf("expected 9 violation rows, got %d", len(st.ViolationsByParam))
	}
}

func TestCompute(t *testing.T) {
	users := []store.User{
		{UserID: "u1", Username: "alice"},
		{UserID: "u2", Username: "bob"},
	}
	ts := time.Now().UTC()
	preds := []store.Prediction{
		{UserID: "u1", Region: "North", Timestamp: ts, Potability: 1, Confidence: 90, Sample: mkSample(nil)},
		{UserID: "u1", Region: "North", Timestamp: ts, Potability: 0, Confidence: 70, Sample: mkSample(map[string]float64{"pH": 9.5})},
		{UserID: "u2", Region: "South", Timestamp: ts, Potability: 0, Confidence: 80, Sample: mkSample(map[string]float64{"pH": 10, "Turbidity": 8})},
	}

	st := Compute(users, preds)

	if st.TotalUsers != 2 || st.TotalPredictions != 3 {
		t.Errorf("counts: %+v", st)
	}
	if st.DrinkableCount != 1 {
		t.Errorf("drinkable = %d, want 1", st.DrinkableCount)
	}
	if st.AvgConfidence != 80 {
		t.Errorf("avg confidence = %f, want 80", st.AvgConfidence)
	}
	if st.PredictionsByRegion["North"] != 2 || st.PredictionsByRegion["South"] != 1 {
		t.Errorf("regions: %v", st.PredictionsByRegion)
	}

	byParam := map[string]int{}
	for _, v := range st.ViolationsByParam {
		byParam[v.Parameter] = v.Count
	}
	if byParam["pH"] != 2 {
		t.Errorf("pH violations = %d, want 2", byParam["pH"])
	}
	if byParam["Turbidity"] != 1 {
		t.Errorf("Turbidity violations = %d, want 1", byParam["Turbidity"])
	}
	if byParam["Sulfate"] != 0 {
		t.Errorf("Sulfate violations = %d, want 0", byParam["Sulfate"])
	}

	// Fixed parameter order for stable dashboard rendering.
	if st.ViolationsByParam[0].Parameter != "pH" || st.ViolationsByParam[8].Parameter != "Trihalomethanes" {
		t.Errorf("violation rows out of order: %+v", st.ViolationsByParam)
	}
}
