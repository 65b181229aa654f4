package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/evaluation"
)

type evaluationRepository struct {
	db *evaluationTable
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db.evaluation}
}

func (repo *evaluationRepository) CreateEvaluation(_ context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = newID()
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *evaluationRepository) GetEvaluationByID(_ context.Context, id string) (evaluation.Evaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return *e, nil
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) QueryEvaluations(_ context.Context, filter *evaluation.QueryFilter, ordering []core.DBOrdering) ([]evaluation.Evaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	evals := make([]evaluation.Evaluation, 0)
	for _, e := range repo.db.table {
		if filter != nil {
			if filter.ProjectID != "" && e.ProjectID != filter.ProjectID {
				continue
			}
			if filter.StudentID != "" && e.StudentID != filter.StudentID {
				continue
			}
			if filter.GuideID != "" && e.GuideID != filter.GuideID {
				continue
			}
		}
		evals = append(evals, *e)
	}

	sort.SliceStable(evals, less(ordering, map[string]compare{
		"evaluationType": func(i, j int) int { return cmpString(evals[i].EvaluationType, evals[j].EvaluationType) },
		"createdAt":      func(i, j int) int { return cmpTime(evals[i].CreatedAt, evals[j].CreatedAt) },
	}, core.DBOrdering{Field: "createdAt"}))
	return evals, nil
}
