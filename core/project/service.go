package project

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

var (
	ErrNotFound          = errors.New("project not found")
	ErrInvalidTransition = errors.New("project status cannot change this way")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project) (Project, error)
		GetProjectByID(ctx context.Context, id string) (Project, error)
		QueryProjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Project, error)
		UpdateProject(ctx context.Context, p Project) (Project, error)
	}

	Service interface {
		Create(ctx context.Context, student user.User, np NewProject) (Project, error)
		Get(ctx context.Context, id string) (Project, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Project, error)
		Review(ctx context.Context, hod user.User, id string, r Review) (Project, error)
		AssignGuide(ctx context.Context, hod user.User, id, guideID string) (Project, error)
		Complete(ctx context.Context, guide user.User, id string) (Project, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, logger core.Logger) Service {
	return &service{repo: repo, usrSvc: usrSvc, logger: logger}
}

func invalidStatus(from, to string) error {
	msg := fmt.Sprintf("cannot move a %s project to %s", from, to)
	return core.NewValidationError(ErrInvalidTransition, core.FieldError{Field: "status", Error: msg})
}

// Create submits a proposal. The student's assigned guide, if any, is pre-filled.
func (svc *service) Create(ctx context.Context, student user.User, np NewProject) (Project, error) {
	if !student.IsStudent() {
		return Project{}, core.ErrForbidden
	}
	now := NowFunc()
	p := Project{
		Title:       np.Title,
		Description: np.Description,
		StudentID:   student.ID,
		GuideID:     student.AssignedGuideID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateProject(ctx, p)
}

func (svc *service) Get(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProjectByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Project, error) {
	return svc.repo.QueryProjects(ctx, filter, ordering)
}

func (svc *service) Review(ctx context.Context, hod user.User, id string, r Review) (Project, error) {
	if !hod.IsHOD() {
		return Project{}, core.ErrForbidden
	}
	p, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if p.Status != StatusPending {
		return Project{}, invalidStatus(p.Status, r.Status)
	}
	p.Status = r.Status
	p.UpdatedAt = NowFunc()
	return svc.repo.UpdateProject(ctx, p)
}

// AssignGuide sets the project's guide and makes them the student's assigned guide.
func (svc *service) AssignGuide(ctx context.Context, hod user.User, id, guideID string) (Project, error) {
	if !hod.IsHOD() {
		return Project{}, core.ErrForbidden
	}
	p, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if p.Status == StatusRejected || p.Status == StatusCompleted {
		return Project{}, core.NewValidationError(
			ErrInvalidTransition,
			core.FieldError{Field: "guideId", Error: fmt.Sprintf("cannot assign a guide to a %s project", p.Status)},
		)
	}
	if _, err := svc.usrSvc.AssignGuide(ctx, p.StudentID, guideID); err != nil {
		return Project{}, errors.Wrap(err, "assigning guide to student")
	}
	p.GuideID = guideID
	p.UpdatedAt = NowFunc()
	return svc.repo.UpdateProject(ctx, p)
}

func (svc *service) Complete(ctx context.Context, guide user.User, id string) (Project, error) {
	p, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if p.GuideID != guide.ID {
		return Project{}, core.ErrForbidden
	}
	if p.Status != StatusApproved {
		return Project{}, invalidStatus(p.Status, StatusCompleted)
	}
	p.Status = StatusCompleted
	p.UpdatedAt = NowFunc()
	return svc.repo.UpdateProject(ctx, p)
}
