package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/evaluation"
)

const evaluationColumns = `id, project_id, student_id, guide_id, evaluation_type, presentation_score, content_score,
	research_score, innovation_score, implementation_score, comments, created_at, updated_at`

var evaluationOrderColumns = map[string]string{
	"evaluationType": "evaluation_type",
	"createdAt":      "created_at",
}

type evaluationRow struct {
	ID                  string    `db:"id"`
	ProjectID           string    `db:"project_id"`
	StudentID           string    `db:"student_id"`
	GuideID             string    `db:"guide_id"`
	EvaluationType      string    `db:"evaluation_type"`
	PresentationScore   int       `db:"presentation_score"`
	ContentScore        int       `db:"content_score"`
	ResearchScore       int       `db:"research_score"`
	InnovationScore     int       `db:"innovation_score"`
	ImplementationScore int       `db:"implementation_score"`
	Comments            string    `db:"comments"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

type evaluationRepository struct {
	db sqlx.ExtContext
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db sqlx.ExtContext) *evaluationRepository {
	return &evaluationRepository{db: db}
}

func (repo evaluationRepository) CreateEvaluation(ctx context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	e.ID = uuid.New().String()
	row := evaluationRow(e)
	q := `INSERT INTO evaluation (` + evaluationColumns + `) VALUES (:id, :project_id, :student_id, :guide_id,
		:evaluation_type, :presentation_score, :content_score, :research_score, :innovation_score,
		:implementation_score, :comments, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, row); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "inserting evaluation")
	}
	return e, nil
}

func (repo evaluationRepository) GetEvaluationByID(ctx context.Context, id string) (evaluation.Evaluation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	var row evaluationRow
	q := repo.db.Rebind(`SELECT ` + evaluationColumns + ` FROM evaluation WHERE id = ?`)
	if err := sqlx.GetContext(ctx, repo.db, &row, q, id); err != nil {
		return evaluation.Evaluation{}, trapNoRows(err, evaluation.ErrNotFound, "getting evaluation")
	}
	return evaluation.Evaluation(row), nil
}

func (repo evaluationRepository) QueryEvaluations(ctx context.Context, filter *evaluation.QueryFilter, ordering []core.DBOrdering) ([]evaluation.Evaluation, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.ProjectID != "" {
			where = append(where, "project_id = ?")
			args = append(args, filter.ProjectID)
		}
		if filter.StudentID != "" {
			where = append(where, "student_id = ?")
			args = append(args, filter.StudentID)
		}
		if filter.GuideID != "" {
			where = append(where, "guide_id = ?")
			args = append(args, filter.GuideID)
		}
	}

	q := `SELECT ` + evaluationColumns + ` FROM evaluation` + whereClause(where) + core.OrderByClause(ordering, evaluationOrderColumns, "created_at DESC")
	var rows []evaluationRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying evaluations")
	}

	evals := make([]evaluation.Evaluation, 0, len(rows))
	for _, r := range rows {
		evals = append(evals, evaluation.Evaluation(r))
	}
	return evals, nil
}
