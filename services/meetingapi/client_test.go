package meetingapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/tests"
)

func newTestClient(t *testing.T, url string, timeout ...time.Duration) *Client {
	conf := core.ClientConfig{BaseURL: url, Token: "tkn"}
	if len(timeout) > 0 {
		conf.Timeout = timeout[0]
	}
	c, err := NewClient(conf, testutil.NewLogger(testutil.NewConfig()))
	require.NoError(t, err)
	return c
}

func TestNewClient_requiresBaseURL(t *testing.T) {
	_, err := NewClient(core.ClientConfig{}, testutil.NewLogger(testutil.NewConfig()))
	assert.Error(t, err)
}

func TestClient_ListMeetings(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/meetings", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[
			{"_id": "m1", "student": {"_id": "s1", "name": "Ada"}, "guide": "g1", "number": 2, "date": "2024-03-01", "notes": "kickoff"},
			{"title": "no student, no date"},
			{"id": "m2", "studentId": "s1", "facultyId": "g1", "meetingNumber": 1, "scheduledDate": "2024-02-01T10:00:00Z", "status": "COMPLETED"}
		]`)
	}))
	defer srv.Close()

	meetings, err := newTestClient(t, srv.URL).ListMeetings(context.Background(), meeting.Filter{
		StudentID: "s1",
		Statuses:  []string{"scheduled", "completed"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tkn", gotAuth)
	assert.Equal(t, "status=scheduled&status=completed&studentId=s1", gotQuery)

	require.Len(t, meetings, 2)
	assert.Equal(t, "m1", meetings[0].ID)
	assert.Equal(t, "Ada", meetings[0].StudentName)
	assert.Equal(t, "g1", meetings[0].FacultyID)
	assert.Equal(t, "kickoff", meetings[0].MeetingSummary)
	assert.Equal(t, meeting.StatusScheduled, meetings[0].Status)
	assert.Equal(t, meeting.StatusCompleted, meetings[1].Status)
}

func TestClient_UpdateMeetingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/meetings/m1/status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// every content field is sent, even empty
		assert.Equal(t, "", body["studentPoints"])
		assert.Equal(t, meeting.NoRemarks, body["guideRemarks"])

		_, _ = io.WriteString(w, `{"id": "m1", "studentId": "s1", "status": "completed", "scheduledDate": "2024-03-01T10:00:00Z"}`)
	}))
	defer srv.Close()

	m, err := newTestClient(t, srv.URL).UpdateMeetingStatus(context.Background(), "m1", meeting.UpdatePayload{
		Status:         meeting.StatusCompleted,
		MeetingSummary: "done",
		StudentPoints:  "",
		GuideRemarks:   meeting.NoRemarks,
	})
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusCompleted, m.Status)
}

func TestClient_failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind core.FailureKind
		wantMsg  string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"error": "meeting not found"}`, wantKind: core.NotFoundFailure, wantMsg: "meeting not found"},
		{name: "field errors", status: http.StatusBadRequest, body: `{"status": "cannot move a completed meeting to scheduled"}`, wantKind: core.ValidationFailure, wantMsg: "status: cannot move a completed meeting to scheduled"},
		{name: "conflict", status: http.StatusConflict, body: `{"error": "taken"}`, wantKind: core.ValidationFailure, wantMsg: "taken"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error": "permission denied"}`, wantKind: core.ValidationFailure, wantMsg: "permission denied"},
		{name: "server", status: http.StatusBadGateway, body: "upstream down", wantKind: core.ServerFailure, wantMsg: "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).GetMeeting(context.Background(), "m1")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, core.FailureKindOf(err))

			var f *core.Failure
			require.True(t, errors.As(err, &f))
			assert.Equal(t, tt.status, f.Status)
			assert.Equal(t, tt.wantMsg, f.Message)
		})
	}

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestClient(t, url).ListMeetings(context.Background(), meeting.Filter{})
		assert.Equal(t, core.NetworkFailure, core.FailureKindOf(err))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		_, err := newTestClient(t, srv.URL, 50*time.Millisecond).ListMeetings(context.Background(), meeting.Filter{})
		assert.Equal(t, core.NetworkFailure, core.FailureKindOf(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).GetMeeting(context.Background(), "m1")
		assert.Equal(t, core.ServerFailure, core.FailureKindOf(err))
	})
}

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"token": "abc"}`)
	}))
	defer srv.Close()

	token, err := newTestClient(t, srv.URL).WithToken("").Login(context.Background(), "ada", "pwd")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
