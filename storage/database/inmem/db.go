package inmemdb

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/evaluation"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
)

type (
	DB struct {
		user       *userTable
		project    *projectTable
		meeting    *meetingTable
		evaluation *evaluationTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	projectTable struct {
		table map[string]*project.Project
		mutex sync.RWMutex
	}

	meetingTable struct {
		table map[string]*meeting.Meeting
		mutex sync.RWMutex
	}

	evaluationTable struct {
		table map[string]*evaluation.Evaluation
		mutex sync.RWMutex
	}
)

func NewDB() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		project:    &projectTable{table: make(map[string]*project.Project)},
		meeting:    &meetingTable{table: make(map[string]*meeting.Meeting)},
		evaluation: &evaluationTable{table: make(map[string]*evaluation.Evaluation)},
	}
}

func newID() string { return uuid.New().String() }

// compare returns -1, 0 or 1.
type compare func(i, j int) int

func cmpString(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// less builds a sort.Slice less function from orderings on known fields, falling back to def.
func less(ordering []core.DBOrdering, fields map[string]compare, def core.DBOrdering) func(i, j int) bool {
	var ords []core.DBOrdering
	for _, ord := range ordering {
		if _, ok := fields[ord.Field]; ok {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = []core.DBOrdering{def}
	}

	return func(i, j int) bool {
		for _, ord := range ords {
			c := fields[ord.Field](i, j)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}
}
