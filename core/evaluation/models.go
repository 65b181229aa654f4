package evaluation

import (
	"encoding/json"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dissertrack/core"
)

// Types
const (
	TypeMidTerm = "mid-term"
	TypeFinal   = "final"
)

type Evaluation struct {
	ID                  string    `json:"id"`
	ProjectID           string    `json:"projectId"`
	StudentID           string    `json:"studentId"`
	GuideID             string    `json:"guideId"`
	EvaluationType      string    `json:"evaluationType"`
	PresentationScore   int       `json:"presentationScore"`
	ContentScore        int       `json:"contentScore"`
	ResearchScore       int       `json:"researchScore"`
	InnovationScore     int       `json:"innovationScore"`
	ImplementationScore int       `json:"implementationScore"`
	Comments            string    `json:"comments"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Average is the arithmetic mean of the five scores, rounded to one decimal.
func (e Evaluation) Average() float64 {
	sum := e.PresentationScore + e.ContentScore + e.ResearchScore + e.InnovationScore + e.ImplementationScore
	return math.Round(float64(sum)/5*10) / 10
}

func (e Evaluation) Grade() string { return GradeFor(e.Average()) }

// MarshalJSON adds the derived average and grade.
func (e Evaluation) MarshalJSON() ([]byte, error) {
	type alias Evaluation
	return json.Marshal(struct {
		alias
		Average float64 `json:"average"`
		Grade   string  `json:"grade"`
	}{alias(e), e.Average(), e.Grade()})
}

// GradeFor maps an average score to a letter grade.
func GradeFor(avg float64) string {
	switch {
	case avg >= 90:
		return "A"
	case avg >= 80:
		return "B"
	case avg >= 70:
		return "C"
	case avg >= 60:
		return "D"
	default:
		return "F"
	}
}

// NewEvaluation contains information needed to record an evaluation.
type NewEvaluation struct {
	ProjectID           string `json:"projectId" validate:"required,objectid"`
	EvaluationType      string `json:"evaluationType" validate:"required,oneof=mid-term final"`
	PresentationScore   *int   `json:"presentationScore" validate:"required,min=0,max=100"`
	ContentScore        *int   `json:"contentScore" validate:"required,min=0,max=100"`
	ResearchScore       *int   `json:"researchScore" validate:"required,min=0,max=100"`
	InnovationScore     *int   `json:"innovationScore" validate:"required,min=0,max=100"`
	ImplementationScore *int   `json:"implementationScore" validate:"required,min=0,max=100"`
	Comments            string `json:"comments" validate:"max=5000"`
}

func (ne *NewEvaluation) Validate(validate *validator.Validate) error {
	ne.ProjectID = core.CleanString(ne.ProjectID)
	ne.EvaluationType = core.CleanString(ne.EvaluationType, true /* lower */)
	ne.Comments = core.CleanString(ne.Comments)
	return validate.Struct(ne)
}

type QueryFilter struct {
	ProjectID string `query:"projectId"`
	StudentID string `query:"studentId"`
	GuideID   string `query:"guideId"`
}

func (qf *QueryFilter) Clean() {
	qf.ProjectID = core.CleanString(qf.ProjectID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.GuideID = core.CleanString(qf.GuideID)
}
