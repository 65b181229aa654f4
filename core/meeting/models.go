package meeting

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dissertrack/core"
)

// SlotCount is the number of guide meetings every project is expected to have.
const SlotCount = 4

// DefaultDuration of a meeting, in minutes.
const DefaultDuration = 60

type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
	StatusRescheduled  Status = "rescheduled"
	StatusRejected     Status = "rejected"
	StatusNotConducted Status = "not-conducted" // placeholder slots only, never persisted
)

// persisted reports whether s may be read from or written to storage.
func (s Status) persisted() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled, StatusRejected:
		return true
	}
	return false
}

type Type string

const (
	TypeOnline          Type = "online"
	TypeInPerson        Type = "in-person"
	TypeInitial         Type = "initial"
	TypeProgressReview  Type = "progress-review"
	TypeFinalDiscussion Type = "final-discussion"
)

func (t Type) valid() bool {
	switch t {
	case TypeOnline, TypeInPerson, TypeInitial, TypeProgressReview, TypeFinalDiscussion:
		return true
	}
	return false
}

// Meeting is the canonical meeting record. Content fields are never null on the wire.
type Meeting struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	StudentID      string    `json:"studentId"`
	FacultyID      string    `json:"facultyId"`
	ProjectID      string    `json:"projectId"`
	StudentName    string    `json:"studentName,omitempty"`
	FacultyName    string    `json:"facultyName,omitempty"`
	MeetingNumber  int       `json:"meetingNumber"`
	ScheduledDate  time.Time `json:"scheduledDate"`
	Duration       int       `json:"duration"`
	MeetingType    Type      `json:"meetingType"`
	Status         Status    `json:"status"`
	MeetingSummary string    `json:"meetingSummary"`
	StudentPoints  string    `json:"studentPoints"`
	GuideRemarks   string    `json:"guideRemarks"`
	IsPlaceholder  bool      `json:"isPlaceholder,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Involves reports whether userID is the meeting's student or guide.
func (m Meeting) Involves(userID string) bool {
	return userID != "" && (m.StudentID == userID || m.FacultyID == userID)
}

// NewMeeting contains information needed to schedule a meeting.
type NewMeeting struct {
	Title          string    `json:"title" validate:"required,max=255"`
	StudentID      string    `json:"studentId" validate:"required,objectid"`
	ProjectID      string    `json:"projectId" validate:"required,objectid"`
	MeetingNumber  int       `json:"meetingNumber" validate:"required,min=1,max=4"`
	ScheduledDate  time.Time `json:"scheduledDate" validate:"required"`
	MeetingSummary string    `json:"meetingSummary" validate:"max=5000"`
	MeetingType    Type      `json:"meetingType" validate:"omitempty,oneof=online in-person initial progress-review final-discussion"`
	Duration       int       `json:"duration" validate:"omitempty,min=1,max=600"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.StudentID = core.CleanString(nm.StudentID)
	nm.ProjectID = core.CleanString(nm.ProjectID)
	nm.MeetingSummary = core.CleanString(nm.MeetingSummary)
	nm.MeetingType = Type(core.CleanString(string(nm.MeetingType), true /* lower */))
	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.MeetingType == "" {
		nm.MeetingType = TypeProgressReview
	}
	if nm.Duration == 0 {
		nm.Duration = DefaultDuration
	}
	return nil
}

// StatusUpdate is the body of a status change request.
// A nil content field leaves the stored value unchanged; an empty one clears it.
type StatusUpdate struct {
	Status         Status     `json:"status" validate:"required"`
	MeetingSummary *string    `json:"meetingSummary" validate:"omitempty,max=5000"`
	StudentPoints  *string    `json:"studentPoints" validate:"omitempty,max=5000"`
	GuideRemarks   *string    `json:"guideRemarks" validate:"omitempty,max=5000"`
	ScheduledDate  *time.Time `json:"scheduledDate"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = Status(core.CleanString(string(su.Status), true /* lower */))
	return validate.Struct(su)
}

// Content converts the request's content fields to their tri-state form.
func (su StatusUpdate) Content() ContentUpdate {
	return ContentUpdate{
		MeetingSummary: textFromPtr(su.MeetingSummary),
		StudentPoints:  textFromPtr(su.StudentPoints),
		GuideRemarks:   textFromPtr(su.GuideRemarks),
	}
}

// Filter narrows meeting queries. Empty fields are ignored.
type Filter struct {
	StudentID string   `query:"studentId"`
	FacultyID string   `query:"facultyId"`
	ProjectID string   `query:"projectId"`
	Statuses  []string `query:"status"`
}

func (f *Filter) Clean() {
	f.StudentID = core.CleanString(f.StudentID)
	f.FacultyID = core.CleanString(f.FacultyID)
	f.ProjectID = core.CleanString(f.ProjectID)
	for i, s := range f.Statuses {
		f.Statuses[i] = core.CleanString(s, true /* lower */)
	}
}

// Matches reports whether m satisfies the filter.
func (f Filter) Matches(m Meeting) bool {
	if f.StudentID != "" && m.StudentID != f.StudentID {
		return false
	}
	if f.FacultyID != "" && m.FacultyID != f.FacultyID {
		return false
	}
	if f.ProjectID != "" && m.ProjectID != f.ProjectID {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if string(m.Status) == s {
				return true
			}
		}
		return false
	}
	return true
}
