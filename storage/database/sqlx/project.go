package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/project"
)

const projectColumns = "id, title, description, student_id, guide_id, status, created_at, updated_at"

var projectOrderColumns = map[string]string{
	"title":     "title",
	"status":    "status",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type projectRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	StudentID   string      `db:"student_id"`
	GuideID     null.String `db:"guide_id"`
	Status      string      `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toProjectRow(p project.Project) projectRow {
	return projectRow{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		StudentID:   p.StudentID,
		GuideID:     null.NewString(p.GuideID, p.GuideID != ""),
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func (r projectRow) toProject() project.Project {
	return project.Project{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StudentID:   r.StudentID,
		GuideID:     r.GuideID.String,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type projectRepository struct {
	db sqlx.ExtContext
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db sqlx.ExtContext) *projectRepository {
	return &projectRepository{db: db}
}

func (repo projectRepository) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO project (` + projectColumns + `)
		VALUES (:id, :title, :description, :student_id, :guide_id, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, toProjectRow(p)); err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	return p, nil
}

func (repo projectRepository) GetProjectByID(ctx context.Context, id string) (project.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return project.Project{}, project.ErrNotFound
	}
	var row projectRow
	q := repo.db.Rebind(`SELECT ` + projectColumns + ` FROM project WHERE id = ?`)
	if err := sqlx.GetContext(ctx, repo.db, &row, q, id); err != nil {
		return project.Project{}, trapNoRows(err, project.ErrNotFound, "getting project")
	}
	return row.toProject(), nil
}

func (repo projectRepository) QueryProjects(ctx context.Context, filter *project.QueryFilter, ordering []core.DBOrdering) ([]project.Project, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.StudentID != "" {
			where = append(where, "student_id = ?")
			args = append(args, filter.StudentID)
		}
		if filter.GuideID != "" {
			where = append(where, "guide_id = ?")
			args = append(args, filter.GuideID)
		}
		if len(filter.Statuses) > 0 {
			where = append(where, "status = ANY(?)")
			args = append(args, pq.Array(filter.Statuses))
		}
	}

	q := `SELECT ` + projectColumns + ` FROM project` + whereClause(where) + core.OrderByClause(ordering, projectOrderColumns, "created_at DESC")
	var rows []projectRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}

	projects := make([]project.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.toProject())
	}
	return projects, nil
}

func (repo projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	q := `UPDATE project SET title = :title, description = :description, guide_id = :guide_id, status = :status,
		updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, toProjectRow(p))
	if err != nil {
		return project.Project{}, errors.Wrap(err, "updating project")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}
