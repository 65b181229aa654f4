package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
	"github.com/trezcool/dissertrack/tests"
)

func Test_projectApi_create(t *testing.T) {
	f := setup(t)

	runHTTPTests(t, f, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/projects", body: []byte(`{"title": "Thesis"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "students only", method: http.MethodPost, path: "/v1/projects", token: f.token(t, f.guide),
			body: []byte(`{"title": "Thesis"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "title required", method: http.MethodPost, path: "/v1/projects", token: f.token(t, f.student),
			body:     []byte(`{"title": "  "}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
	})

	rec := f.serve(http.MethodPost, "/v1/projects", f.token(t, f.student), []byte(`{"title": " Graph coloring ", "description": "On greedy bounds"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p project.Project
	unmarshal(t, rec, &p)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Graph coloring", p.Title)
	assert.Equal(t, project.StatusPending, p.Status)
	assert.Equal(t, f.student.ID, p.StudentID)
	assert.Equal(t, f.guide.ID, p.GuideID, "assigned guide pre-filled")
}

func Test_projectApi_queryAndRetrieve(t *testing.T) {
	f := setup(t)
	lonerPrj := testutil.CreateProject(t, f.prjRepo, "Alone", f.loner.ID, "", project.StatusPending)

	count := func(usr user.User) int {
		rec := f.serve(http.MethodGet, "/v1/projects", f.token(t, usr))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var projects []project.Project
		unmarshal(t, rec, &projects)
		return len(projects)
	}
	assert.Equal(t, 1, count(f.student))
	assert.Equal(t, 1, count(f.loner))
	assert.Equal(t, 1, count(f.guide))
	assert.Equal(t, 0, count(f.other))
	assert.Equal(t, 2, count(f.hod))

	runHTTPTests(t, f, []httpTest{
		{name: "own project", path: "/v1/projects/" + f.approved.ID, token: f.token(t, f.student), wantCode: http.StatusOK},
		{name: "guided project", path: "/v1/projects/" + f.approved.ID, token: f.token(t, f.guide), wantCode: http.StatusOK},
		{name: "hod", path: "/v1/projects/" + lonerPrj.ID, token: f.token(t, f.hod), wantCode: http.StatusOK},
		{name: "someone else's", path: "/v1/projects/" + f.approved.ID, token: f.token(t, f.loner), wantCode: http.StatusNotFound},
		{name: "not guided", path: "/v1/projects/" + f.approved.ID, token: f.token(t, f.other), wantCode: http.StatusNotFound},
		{name: "unknown", path: "/v1/projects/nope", token: f.token(t, f.hod), wantCode: http.StatusNotFound},
	})
}

func Test_projectApi_lifecycle(t *testing.T) {
	f := setup(t)
	prj := testutil.CreateProject(t, f.prjRepo, "Alone", f.loner.ID, "", project.StatusPending)
	path := "/v1/projects/" + prj.ID
	hodToken := f.token(t, f.hod)

	runHTTPTests(t, f, []httpTest{
		{
			name: "review: hod only", method: http.MethodPut, path: path + "/review", token: f.token(t, f.loner),
			body: []byte(`{"status": "approved"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "review: bad status", method: http.MethodPut, path: path + "/review", token: hodToken,
			body: []byte(`{"status": "completed"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "guide: not faculty", method: http.MethodPut, path: path + "/guide", token: hodToken,
			body: marchallObj(t, project.GuideAssignment{GuideID: f.student.ID}), wantCode: http.StatusBadRequest,
		},
		{
			name: "complete: not guided", method: http.MethodPut, path: "/v1/projects/" + f.approved.ID + "/complete",
			token: f.token(t, f.other), wantCode: http.StatusNotFound,
		},
	})

	rec := f.serve(http.MethodPut, path+"/review", hodToken, []byte(`{"status": "Approved"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.serve(http.MethodPut, path+"/review", hodToken, []byte(`{"status": "rejected"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "only pending projects are reviewed")

	rec = f.serve(http.MethodPut, path+"/guide", hodToken, marchallObj(t, project.GuideAssignment{GuideID: f.other.ID}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p project.Project
	unmarshal(t, rec, &p)
	assert.Equal(t, f.other.ID, p.GuideID)
	assert.True(t, p.CanScheduleMeetings())

	loner, err := f.usrRepo.GetUserByID(context.Background(), f.loner.ID)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, loner.AssignedGuideID)

	// the new guide completes it
	rec = f.serve(http.MethodPut, path+"/complete", f.token(t, f.guide))
	assert.Equal(t, http.StatusNotFound, rec.Code, "not their project")
	rec = f.serve(http.MethodPut, path+"/complete", f.token(t, f.other))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &p)
	assert.Equal(t, project.StatusCompleted, p.Status)

	rec = f.serve(http.MethodPut, path+"/complete", f.token(t, f.other))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
