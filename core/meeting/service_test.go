package meeting_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
	"github.com/trezcool/dissertrack/services/email"
	"github.com/trezcool/dissertrack/storage/database/inmem"
	"github.com/trezcool/dissertrack/tests"
)

type fixture struct {
	svc      meeting.Service
	usrSvc   user.Service
	mailSvc  core.EmailService
	repo     meeting.Repository
	broker   *meeting.Broker
	logger   core.Logger
	student  user.User
	guide    user.User
	other    user.User
	hod      user.User
	approved project.Project
	pending  project.Project
}

func setup(t *testing.T) *fixture {
	conf := testutil.NewConfig()
	core.Conf = conf
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	prjRepo := inmemdb.NewProjectRepository(db)
	repo := inmemdb.NewMeetingRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, logger, conf)
	prjSvc := project.NewService(prjRepo, usrSvc, logger)
	broker := meeting.NewBroker()

	f := &fixture{
		svc:     meeting.NewService(repo, prjSvc, usrSvc, broker, logger),
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		repo:    repo,
		broker:  broker,
		logger:  logger,
		student: testutil.CreateUser(t, usrRepo, "Ada Student", "ada", "ada@test.io", "", user.RoleStudent, true),
		guide:   testutil.CreateUser(t, usrRepo, "Bob Guide", "bob", "bob@test.io", "", user.RoleFaculty, true),
		other:   testutil.CreateUser(t, usrRepo, "Cid Guide", "cid", "cid@test.io", "", user.RoleFaculty, true),
		hod:     testutil.CreateUser(t, usrRepo, "Dee Head", "dee", "dee@test.io", "", user.RoleHOD, true),
	}
	f.approved = testutil.CreateProject(t, prjRepo, "Thesis", f.student.ID, f.guide.ID, project.StatusApproved)
	f.pending = testutil.CreateProject(t, prjRepo, "Draft", f.student.ID, f.guide.ID, project.StatusPending)
	return f
}

func (f *fixture) newMeeting(number int) meeting.NewMeeting {
	return meeting.NewMeeting{
		Title:         "Progress",
		StudentID:     f.student.ID,
		ProjectID:     f.approved.ID,
		MeetingNumber: number,
		ScheduledDate: time.Date(2024, 3, number, 10, 0, 0, 0, time.UTC),
		MeetingType:   meeting.TypeOnline,
		Duration:      45,
	}
}

func TestService_Schedule(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Schedule(ctx, f.guide, f.newMeeting(1))
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   user.User
		mutate  func(nm *meeting.NewMeeting)
		wantErr error
		field   string
	}{
		{name: "students cannot schedule", actor: f.student, wantErr: core.ErrForbidden},
		{name: "hod cannot schedule", actor: f.hod, wantErr: core.ErrForbidden},
		{
			name:    "unknown project",
			actor:   f.guide,
			mutate:  func(nm *meeting.NewMeeting) { nm.ProjectID = "nope" },
			wantErr: project.ErrNotFound,
			field:   "projectId",
		},
		{
			name:    "student does not own the project",
			actor:   f.guide,
			mutate:  func(nm *meeting.NewMeeting) { nm.StudentID = f.other.ID },
			wantErr: meeting.ErrNotSchedulable,
			field:   "studentId",
		},
		{
			name:    "project not approved",
			actor:   f.guide,
			mutate:  func(nm *meeting.NewMeeting) { nm.ProjectID = f.pending.ID },
			wantErr: meeting.ErrNotSchedulable,
			field:   "projectId",
		},
		{name: "not the project's guide", actor: f.other, wantErr: core.ErrForbidden},
		{
			name:    "slot already taken",
			actor:   f.guide,
			mutate:  func(nm *meeting.NewMeeting) { nm.MeetingNumber = 1 },
			wantErr: meeting.ErrSlotTaken,
			field:   "meetingNumber",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nm := f.newMeeting(2)
			if tt.mutate != nil {
				tt.mutate(&nm)
			}
			_, err := f.svc.Schedule(ctx, tt.actor, nm)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v; want %v", err, tt.wantErr)

			if tt.field != "" {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr))
				require.NotEmpty(t, vErr.Fields)
				assert.Equal(t, tt.field, vErr.Fields[0].Field)
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		sub := f.broker.Subscribe(1)
		defer sub.Unsubscribe()

		m, err := f.svc.Schedule(ctx, f.guide, f.newMeeting(2))
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, meeting.StatusScheduled, m.Status)
		assert.Equal(t, f.guide.ID, m.FacultyID)
		assert.Equal(t, "Ada Student", m.StudentName)
		assert.Equal(t, "Bob Guide", m.FacultyName)

		e := <-sub.C
		assert.Equal(t, meeting.EventCreated, e.Kind)
		assert.Equal(t, m.ID, e.Meeting.ID)
	})

	t.Run("a cancelled slot can be scheduled again", func(t *testing.T) {
		m, err := f.svc.Schedule(ctx, f.guide, f.newMeeting(3))
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, f.guide, m.ID, meeting.StatusUpdate{Status: meeting.StatusCancelled})
		require.NoError(t, err)

		_, err = f.svc.Schedule(ctx, f.guide, f.newMeeting(3))
		assert.NoError(t, err)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	m, err := f.svc.Schedule(ctx, f.guide, f.newMeeting(1))
	require.NoError(t, err)

	strPtr := func(s string) *string { return &s }

	t.Run("only the meeting's guide", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.other, m.ID, meeting.StatusUpdate{Status: meeting.StatusCompleted})
		assert.True(t, errors.Is(err, core.ErrForbidden))
	})

	t.Run("unknown meeting", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.guide, "nope", meeting.StatusUpdate{Status: meeting.StatusCompleted})
		assert.True(t, errors.Is(err, meeting.ErrNotFound))
	})

	t.Run("reschedule needs a date", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.guide, m.ID, meeting.StatusUpdate{Status: meeting.StatusRescheduled})
		assert.True(t, errors.Is(err, meeting.ErrDateRequired))
	})

	t.Run("reschedule", func(t *testing.T) {
		date := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
		got, err := f.svc.UpdateStatus(ctx, f.guide, m.ID, meeting.StatusUpdate{
			Status:         meeting.StatusRescheduled,
			MeetingSummary: strPtr("moved"),
			ScheduledDate:  &date,
		})
		require.NoError(t, err)
		assert.Equal(t, meeting.StatusRescheduled, got.Status)
		assert.True(t, date.Equal(got.ScheduledDate))
		assert.Equal(t, "moved", got.MeetingSummary)
		assert.Equal(t, meeting.NoRemarks, got.GuideRemarks)
	})

	t.Run("complete carries content forward", func(t *testing.T) {
		got, err := f.svc.UpdateStatus(ctx, f.guide, m.ID, meeting.StatusUpdate{
			Status:       meeting.StatusCompleted,
			GuideRemarks: strPtr("good progress"),
		})
		require.NoError(t, err)
		assert.Equal(t, meeting.StatusCompleted, got.Status)
		assert.Equal(t, "moved", got.MeetingSummary)
		assert.Equal(t, "good progress", got.GuideRemarks)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.guide, m.ID, meeting.StatusUpdate{Status: meeting.StatusScheduled})
		assert.True(t, errors.Is(err, meeting.ErrInvalidTransition))
	})
}

func TestService_Slots(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	m2, err := f.svc.Schedule(ctx, f.guide, f.newMeeting(2))
	require.NoError(t, err)
	// a duplicate slipping past the check is absorbed
	testutil.CreateMeeting(t, f.repo, f.approved, 2, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	slots, err := f.svc.Slots(ctx, f.student.ID, f.approved.ID)
	require.NoError(t, err)
	require.Len(t, slots, meeting.SlotCount)

	for i, s := range slots {
		assert.Equal(t, i+1, s.MeetingNumber)
		assert.Equal(t, f.student.ID, s.StudentID)
		assert.Equal(t, f.approved.ID, s.ProjectID)
	}
	assert.Equal(t, m2.ID, slots[1].ID)
	assert.True(t, slots[0].IsPlaceholder)
	assert.Equal(t, meeting.StatusNotConducted, slots[0].Status)
	assert.True(t, slots[3].IsPlaceholder)
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	n := meeting.StartNotifier(f.broker, f.usrSvc, f.mailSvc, f.logger, 8)
	m, err := f.svc.Schedule(ctx, f.guide, f.newMeeting(1))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.guide, m.ID, meeting.StatusUpdate{Status: meeting.StatusCancelled})
	require.NoError(t, err)
	n.Stop()

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 2)

	assert.Equal(t, "ada@test.io", sent[0].To[0].Address)
	assert.Equal(t, "Meeting 1 scheduled", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Bob Guide scheduled meeting 1 of 4")

	assert.Equal(t, "Meeting 1 cancelled", sent[1].Subject)
	assert.Contains(t, sent[1].TextContent, "is now cancelled")
}
