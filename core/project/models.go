package project

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dissertrack/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StudentID   string    `json:"studentId"`
	GuideID     string    `json:"guideId"` // empty until assigned
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CanScheduleMeetings reports whether guide meetings may be scheduled against the project.
func (p Project) CanScheduleMeetings() bool {
	return p.Status == StatusApproved && p.GuideID != ""
}

// NewProject contains information needed to submit a project proposal.
type NewProject struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

// Review is the HOD's decision on a pending proposal.
type Review struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (r *Review) Validate(validate *validator.Validate) error {
	r.Status = core.CleanString(r.Status, true /* lower */)
	return validate.Struct(r)
}

type GuideAssignment struct {
	GuideID string `json:"guideId" validate:"required,objectid"`
}

func (ga *GuideAssignment) Validate(validate *validator.Validate) error {
	ga.GuideID = core.CleanString(ga.GuideID)
	return validate.Struct(ga)
}

type QueryFilter struct {
	StudentID string   `query:"studentId"`
	GuideID   string   `query:"guideId"`
	Statuses  []string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.GuideID = core.CleanString(qf.GuideID)
}
