package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
	logsvc "github.com/trezcool/dissertrack/services/logger"
)

// NewConfig returns a test-mode config without touching the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Dissertrack",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Meetings: core.MeetingsConfig{
			CacheTTL:         time.Minute,
			PollInterval:     time.Second,
			SubscriberBuffer: 16,
		},
	}
}

// NewLogger returns a logger that discards everything.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateProject stores a project of student, guided by guideID ("" for none).
func CreateProject(t *testing.T, repo project.Repository, title, studentID, guideID, status string) project.Project {
	now := time.Now().UTC()
	p, err := repo.CreateProject(context.Background(), project.Project{
		Title:     title,
		StudentID: studentID,
		GuideID:   guideID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return p
}

// CreateMeeting stores a scheduled meeting for the project's student and guide.
func CreateMeeting(t *testing.T, repo meeting.Repository, prj project.Project, number int, date time.Time) meeting.Meeting {
	now := time.Now().UTC()
	m, err := repo.CreateMeeting(context.Background(), meeting.Meeting{
		Title:         "Meeting",
		StudentID:     prj.StudentID,
		FacultyID:     prj.GuideID,
		ProjectID:     prj.ID,
		MeetingNumber: number,
		ScheduledDate: date.UTC(),
		Duration:      meeting.DefaultDuration,
		MeetingType:   meeting.TypeProgressReview,
		Status:        meeting.StatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateMeeting() failed: %v", err)
	}
	return m
}
