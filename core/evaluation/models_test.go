package evaluation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scores(p, c, r, i, impl int) Evaluation {
	return Evaluation{
		PresentationScore:   p,
		ContentScore:        c,
		ResearchScore:       r,
		InnovationScore:     i,
		ImplementationScore: impl,
	}
}

func TestEvaluation_AverageAndGrade(t *testing.T) {
	tests := []struct {
		name      string
		eval      Evaluation
		wantAvg   float64
		wantGrade string
	}{
		{name: "flat 80", eval: scores(80, 80, 80, 80, 80), wantAvg: 80, wantGrade: "B"},
		{name: "mixed A", eval: scores(95, 90, 92, 88, 91), wantAvg: 91.2, wantGrade: "A"},
		{name: "failing", eval: scores(50, 40, 60, 55, 45), wantAvg: 50, wantGrade: "F"},
		{name: "C band", eval: scores(70, 70, 70, 70, 70), wantAvg: 70, wantGrade: "C"},
		{name: "just under D", eval: scores(60, 60, 60, 60, 59), wantAvg: 59.8, wantGrade: "F"},
		{name: "D band", eval: scores(60, 65, 60, 62, 61), wantAvg: 61.6, wantGrade: "D"},
		{name: "perfect", eval: scores(100, 100, 100, 100, 100), wantAvg: 100, wantGrade: "A"},
		{name: "zero", eval: scores(0, 0, 0, 0, 0), wantAvg: 0, wantGrade: "F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantAvg, tt.eval.Average(), 1e-9)
			assert.Equal(t, tt.wantGrade, tt.eval.Grade())
		})
	}
}

func TestEvaluation_MarshalJSON(t *testing.T) {
	e := scores(95, 90, 92, 88, 91)
	e.ID = "ev1"
	e.EvaluationType = TypeFinal

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ev1", got["id"])
	assert.Equal(t, "final", got["evaluationType"])
	assert.Equal(t, 91.2, got["average"])
	assert.Equal(t, "A", got["grade"])
}
