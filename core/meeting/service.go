package meeting

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
)

var (
	ErrNotFound       = errors.New("meeting not found")
	ErrSlotTaken      = errors.New("this meeting number is already scheduled")
	ErrNotSchedulable = errors.New("meetings cannot be scheduled for this project yet")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
		GetMeetingByID(ctx context.Context, id string) (Meeting, error)
		// QueryMeetings applies AND operation on available Filter fields.
		QueryMeetings(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Meeting, error)
		UpdateMeeting(ctx context.Context, m Meeting) (Meeting, error)
	}

	Service interface {
		Schedule(ctx context.Context, guide user.User, nm NewMeeting) (Meeting, error)
		UpdateStatus(ctx context.Context, actor user.User, id string, su StatusUpdate) (Meeting, error)
		Get(ctx context.Context, id string) (Meeting, error)
		Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Meeting, error)
		Slots(ctx context.Context, studentID, projectID string) ([]Meeting, error)
	}

	service struct {
		repo   Repository
		prjSvc project.Service
		usrSvc user.Service
		broker *Broker
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

// NewService returns the meeting service. Every change is published on broker.
func NewService(repo Repository, prjSvc project.Service, usrSvc user.Service, broker *Broker, logger core.Logger) Service {
	return &service{repo: repo, prjSvc: prjSvc, usrSvc: usrSvc, broker: broker, logger: logger}
}

func (svc *service) Schedule(ctx context.Context, guide user.User, nm NewMeeting) (Meeting, error) {
	if !guide.IsFaculty() {
		return Meeting{}, core.ErrForbidden
	}

	prj, err := svc.prjSvc.Get(ctx, nm.ProjectID)
	if err != nil {
		if errors.Cause(err) == project.ErrNotFound {
			return Meeting{}, core.NewValidationError(err, core.FieldError{Field: "projectId", Error: err.Error()})
		}
		return Meeting{}, errors.Wrap(err, "getting project")
	}
	if prj.StudentID != nm.StudentID {
		return Meeting{}, core.NewValidationError(
			ErrNotSchedulable,
			core.FieldError{Field: "studentId", Error: "student does not own this project"},
		)
	}
	if !prj.CanScheduleMeetings() {
		return Meeting{}, core.NewValidationError(
			ErrNotSchedulable,
			core.FieldError{Field: "projectId", Error: fmt.Sprintf("project is %s and must be approved with a guide", prj.Status)},
		)
	}
	if prj.GuideID != guide.ID {
		return Meeting{}, errors.Wrap(core.ErrForbidden, "not the project's guide")
	}

	// best effort: concurrent requests may both pass, GenerateSlots absorbs the duplicate
	existing, err := svc.repo.QueryMeetings(ctx, &Filter{StudentID: nm.StudentID, ProjectID: nm.ProjectID}, nil)
	if err != nil {
		return Meeting{}, errors.Wrap(err, "querying meetings")
	}
	for _, m := range existing {
		if m.MeetingNumber == nm.MeetingNumber && m.Status != StatusCancelled {
			return Meeting{}, core.NewValidationError(
				ErrSlotTaken,
				core.FieldError{Field: "meetingNumber", Error: ErrSlotTaken.Error()},
			)
		}
	}

	now := NowFunc()
	m := Meeting{
		Title:          nm.Title,
		StudentID:      nm.StudentID,
		FacultyID:      guide.ID,
		ProjectID:      nm.ProjectID,
		FacultyName:    guide.Name,
		MeetingNumber:  nm.MeetingNumber,
		ScheduledDate:  nm.ScheduledDate.UTC(),
		Duration:       nm.Duration,
		MeetingType:    nm.MeetingType,
		Status:         StatusScheduled,
		MeetingSummary: nm.MeetingSummary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if student, err := svc.usrSvc.GetByID(ctx, nm.StudentID); err == nil {
		m.StudentName = student.Name
	}

	m, err = svc.repo.CreateMeeting(ctx, m)
	if err != nil {
		return Meeting{}, errors.Wrap(err, "creating meeting")
	}
	svc.broker.Publish(NewEvent(EventCreated, m))
	return m, nil
}

// UpdateStatus moves a meeting to another status. Only the meeting's guide may do so.
func (svc *service) UpdateStatus(ctx context.Context, actor user.User, id string, su StatusUpdate) (Meeting, error) {
	m, err := svc.repo.GetMeetingByID(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if m.FacultyID != actor.ID {
		return Meeting{}, errors.Wrap(core.ErrForbidden, "not the meeting's guide")
	}

	p, err := RequestTransition(m, su.Status, su.Content(), su.ScheduledDate)
	if err != nil {
		return Meeting{}, err
	}
	m, err = svc.repo.UpdateMeeting(ctx, p.ApplyTo(m, NowFunc()))
	if err != nil {
		return Meeting{}, errors.Wrap(err, "updating meeting")
	}
	svc.broker.Publish(NewEvent(EventUpdated, m))
	return m, nil
}

func (svc *service) Get(ctx context.Context, id string) (Meeting, error) {
	return svc.repo.GetMeetingByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]Meeting, error) {
	return svc.repo.QueryMeetings(ctx, filter, ordering)
}

// Slots returns the student's four meeting slots for a project.
func (svc *service) Slots(ctx context.Context, studentID, projectID string) ([]Meeting, error) {
	meetings, err := svc.repo.QueryMeetings(ctx, &Filter{StudentID: studentID, ProjectID: projectID}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}

	slots, conflicts := GenerateSlots(meetings)
	for _, c := range conflicts {
		svc.logger.Warn(fmt.Sprintf("duplicate meeting slot for student %s: %s", studentID, c))
	}
	for i := range slots {
		if slots[i].IsPlaceholder {
			slots[i].StudentID = studentID
			slots[i].ProjectID = projectID
		}
	}
	return slots, nil
}
