package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/project"
)

type projectRepository struct {
	db *projectTable
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.project}
}

func (repo *projectRepository) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = newID()
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *projectRepository) GetProjectByID(_ context.Context, id string) (project.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryProjects(_ context.Context, filter *project.QueryFilter, ordering []core.DBOrdering) ([]project.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	projects := make([]project.Project, 0)
	for _, p := range repo.db.table {
		if filter != nil {
			if filter.StudentID != "" && p.StudentID != filter.StudentID {
				continue
			}
			if filter.GuideID != "" && p.GuideID != filter.GuideID {
				continue
			}
			if len(filter.Statuses) > 0 && !contains(filter.Statuses, p.Status) {
				continue
			}
		}
		projects = append(projects, *p)
	}

	sort.SliceStable(projects, less(ordering, map[string]compare{
		"title":     func(i, j int) int { return cmpString(projects[i].Title, projects[j].Title) },
		"status":    func(i, j int) int { return cmpString(projects[i].Status, projects[j].Status) },
		"createdAt": func(i, j int) int { return cmpTime(projects[i].CreatedAt, projects[j].CreatedAt) },
		"updatedAt": func(i, j int) int { return cmpTime(projects[i].UpdatedAt, projects[j].UpdatedAt) },
	}, core.DBOrdering{Field: "createdAt"}))
	return projects, nil
}

func (repo *projectRepository) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[p.ID]; !ok {
		return project.Project{}, project.ErrNotFound
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
