package evaluation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
)

var (
	ErrNotFound      = errors.New("evaluation not found")
	ErrNotEvaluable  = errors.New("project must be approved or completed to be evaluated")
	ErrNotGuideOfPrj = errors.New("only the project's guide can evaluate it")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateEvaluation(ctx context.Context, e Evaluation) (Evaluation, error)
		GetEvaluationByID(ctx context.Context, id string) (Evaluation, error)
		QueryEvaluations(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Evaluation, error)
	}

	Service interface {
		Create(ctx context.Context, guide user.User, ne NewEvaluation) (Evaluation, error)
		Get(ctx context.Context, id string) (Evaluation, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Evaluation, error)
	}

	service struct {
		repo   Repository
		prjSvc project.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, prjSvc project.Service) Service {
	return &service{repo: repo, prjSvc: prjSvc}
}

func (svc *service) Create(ctx context.Context, guide user.User, ne NewEvaluation) (Evaluation, error) {
	prj, err := svc.prjSvc.Get(ctx, ne.ProjectID)
	if err != nil {
		if errors.Cause(err) == project.ErrNotFound {
			return Evaluation{}, core.NewValidationError(err, core.FieldError{Field: "projectId", Error: err.Error()})
		}
		return Evaluation{}, errors.Wrap(err, "getting project")
	}
	if prj.GuideID == "" || prj.GuideID != guide.ID {
		return Evaluation{}, errors.Wrap(core.ErrForbidden, ErrNotGuideOfPrj.Error())
	}
	if prj.Status != project.StatusApproved && prj.Status != project.StatusCompleted {
		return Evaluation{}, core.NewValidationError(ErrNotEvaluable, core.FieldError{Field: "projectId", Error: ErrNotEvaluable.Error()})
	}

	now := NowFunc()
	e := Evaluation{
		ProjectID:           prj.ID,
		StudentID:           prj.StudentID,
		GuideID:             guide.ID,
		EvaluationType:      ne.EvaluationType,
		PresentationScore:   *ne.PresentationScore,
		ContentScore:        *ne.ContentScore,
		ResearchScore:       *ne.ResearchScore,
		InnovationScore:     *ne.InnovationScore,
		ImplementationScore: *ne.ImplementationScore,
		Comments:            ne.Comments,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return svc.repo.CreateEvaluation(ctx, e)
}

func (svc *service) Get(ctx context.Context, id string) (Evaluation, error) {
	return svc.repo.GetEvaluationByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Evaluation, error) {
	return svc.repo.QueryEvaluations(ctx, filter, ordering)
}
