package meeting

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
)

// Placeholders sent when a content field has no value to carry forward.
const (
	NoSummary = "No summary provided"
	NoPoints  = "No points provided"
	NoRemarks = "No remarks provided"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDateRequired      = errors.New("a new date is required to reschedule")

	transitions = map[Status][]Status{
		StatusScheduled:   {StatusCompleted, StatusCancelled, StatusRescheduled},
		StatusRescheduled: {StatusCompleted, StatusCancelled, StatusRescheduled},
		StatusCancelled:   {StatusScheduled},
		// completed and rejected are terminal
	}
)

// CanTransition reports whether a meeting may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Targets returns the statuses reachable from s.
func Targets(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

func (s Status) IsTerminal() bool { return s.persisted() && len(transitions[s]) == 0 }

// Text is a tri-state content field: left unset, set to a value, or explicitly cleared.
type Text struct {
	value string
	set   bool
	clear bool
}

// Keep leaves the field as it is.
func Keep() Text { return Text{} }

// Set sets the field. A blank value is treated like Keep.
func Set(s string) Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return Text{}
	}
	return Text{value: s, set: true}
}

// Clear empties the field.
func Clear() Text { return Text{clear: true} }

func textFromPtr(s *string) Text {
	switch {
	case s == nil:
		return Keep()
	case strings.TrimSpace(*s) == "":
		return Clear()
	default:
		return Set(*s)
	}
}

func (t Text) IsSet() bool     { return t.set }
func (t Text) IsCleared() bool { return t.clear }

// resolve returns the value to send for the field.
func (t Text) resolve(current, placeholder string) string {
	switch {
	case t.clear:
		return ""
	case t.set:
		return t.value
	case strings.TrimSpace(current) != "":
		return current
	default:
		return placeholder
	}
}

// ContentUpdate holds the requested changes to a meeting's content fields.
type ContentUpdate struct {
	MeetingSummary Text
	StudentPoints  Text
	GuideRemarks   Text
}

// UpdatePayload is the body sent to change a meeting's status. Every content field is present.
type UpdatePayload struct {
	Status         Status     `json:"status"`
	MeetingSummary string     `json:"meetingSummary"`
	StudentPoints  string     `json:"studentPoints"`
	GuideRemarks   string     `json:"guideRemarks"`
	ScheduledDate  *time.Time `json:"scheduledDate,omitempty"`
}

// ApplyTo returns m patched with the payload.
func (p UpdatePayload) ApplyTo(m Meeting, at time.Time) Meeting {
	m.Status = p.Status
	m.MeetingSummary = p.MeetingSummary
	m.StudentPoints = p.StudentPoints
	m.GuideRemarks = p.GuideRemarks
	if p.ScheduledDate != nil {
		m.ScheduledDate = p.ScheduledDate.UTC()
	}
	m.UpdatedAt = at
	return m
}

// RequestTransition checks that m may move to target and builds the update payload.
// Content fields left unset carry the meeting's current value forward, or a placeholder when it has none.
// Moving to rescheduled requires newDate.
func RequestTransition(m Meeting, target Status, content ContentUpdate, newDate *time.Time) (UpdatePayload, error) {
	if m.IsPlaceholder {
		return UpdatePayload{}, core.NewValidationError(
			ErrInvalidTransition,
			core.FieldError{Field: "status", Error: "meeting has not been scheduled yet"},
		)
	}
	if !CanTransition(m.Status, target) {
		return UpdatePayload{}, core.NewValidationError(
			ErrInvalidTransition,
			core.FieldError{Field: "status", Error: fmt.Sprintf("cannot move a %s meeting to %s", m.Status, target)},
		)
	}
	if target == StatusRescheduled && (newDate == nil || newDate.IsZero()) {
		return UpdatePayload{}, core.NewValidationError(
			ErrDateRequired,
			core.FieldError{Field: "scheduledDate", Error: ErrDateRequired.Error()},
		)
	}

	p := UpdatePayload{
		Status:         target,
		MeetingSummary: content.MeetingSummary.resolve(m.MeetingSummary, NoSummary),
		StudentPoints:  content.StudentPoints.resolve(m.StudentPoints, NoPoints),
		GuideRemarks:   content.GuideRemarks.resolve(m.GuideRemarks, NoRemarks),
	}
	if newDate != nil && !newDate.IsZero() {
		d := newDate.UTC()
		p.ScheduledDate = &d
	}
	return p, nil
}
