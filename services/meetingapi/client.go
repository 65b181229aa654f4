// Package meetingapi is the HTTP client of the Dissertrack API, as used by the portal.
package meetingapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/user"
)

const defaultTimeout = 15 * time.Second

// Client talks to the API. Every error it returns carries a *core.Failure.
type Client struct {
	baseURL string
	token   string
	rc      *rest.Client
	logger  core.Logger
}

var _ meeting.Gateway = (*Client)(nil)

func NewClient(conf core.ClientConfig, logger core.Logger) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.BaseURL, "baseURL"),
		core.IsSet(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}

	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		token:   conf.Token,
		rc:      &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		logger:  logger,
	}, nil
}

// WithToken returns a copy of the client authenticating with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) send(ctx context.Context, method rest.Method, path string, query url.Values, body interface{}) ([]byte, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if len(query) > 0 {
		req.BaseURL += "?" + query.Encode()
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, core.NewFailure(core.ValidationFailure, 0, "", errors.Wrap(err, "encoding request body"))
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.rc.SendWithContext(ctx, req)
	if err != nil {
		c.logger.Debug(fmt.Sprintf("%s %s: %v", method, path, err))
		return nil, core.NewFailure(core.NetworkFailure, 0, "", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, classify(res.StatusCode, res.Body)
	}
	return []byte(res.Body), nil
}

func classify(status int, body string) error {
	var kind core.FailureKind
	switch {
	case status == http.StatusNotFound:
		kind = core.NotFoundFailure
	case status >= http.StatusInternalServerError:
		kind = core.ServerFailure
	default:
		kind = core.ValidationFailure
	}
	return core.NewFailure(kind, status, errorMessage(body), nil)
}

// errorMessage extracts the message from an API error body:
// either {"error": "..."} or a map of field errors.
func errorMessage(body string) string {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return strings.TrimSpace(body)
	}
	if msg, ok := payload["error"].(string); ok {
		return msg
	}

	parts := make([]string, 0, len(payload))
	for field, msg := range payload {
		parts = append(parts, fmt.Sprintf("%s: %v", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func malformed(err error) error {
	return core.NewFailure(core.ServerFailure, 0, "malformed response", err)
}

func decodeMeeting(data []byte) (meeting.Meeting, error) {
	var doc meeting.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return meeting.Meeting{}, malformed(err)
	}
	m, ok := meeting.Normalize(doc)
	if !ok {
		return meeting.Meeting{}, malformed(errors.New("meeting document without student or date"))
	}
	return m, nil
}

func decodeMeetings(data []byte) ([]meeting.Meeting, error) {
	docs, err := meeting.DecodeDocuments(data)
	if err != nil {
		return nil, malformed(err)
	}
	return meeting.NormalizeAll(docs), nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	data, err := c.send(ctx, rest.Post, "/v1/users/login", nil, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &res); err != nil || res.Token == "" {
		return "", malformed(err)
	}
	return res.Token, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (user.User, error) {
	data, err := c.send(ctx, rest.Get, "/v1/users/me", nil, nil)
	if err != nil {
		return user.User{}, err
	}
	var usr user.User
	if err := json.Unmarshal(data, &usr); err != nil {
		return user.User{}, malformed(err)
	}
	return usr, nil
}

func (c *Client) ListMeetings(ctx context.Context, filter meeting.Filter) ([]meeting.Meeting, error) {
	q := make(url.Values)
	if filter.StudentID != "" {
		q.Set("studentId", filter.StudentID)
	}
	if filter.FacultyID != "" {
		q.Set("facultyId", filter.FacultyID)
	}
	if filter.ProjectID != "" {
		q.Set("projectId", filter.ProjectID)
	}
	for _, s := range filter.Statuses {
		q.Add("status", s)
	}

	data, err := c.send(ctx, rest.Get, "/v1/meetings", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeMeetings(data)
}

func (c *Client) GetMeeting(ctx context.Context, id string) (meeting.Meeting, error) {
	data, err := c.send(ctx, rest.Get, "/v1/meetings/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return meeting.Meeting{}, err
	}
	return decodeMeeting(data)
}

func (c *Client) CreateMeeting(ctx context.Context, nm meeting.NewMeeting) (meeting.Meeting, error) {
	data, err := c.send(ctx, rest.Post, "/v1/meetings", nil, nm)
	if err != nil {
		return meeting.Meeting{}, err
	}
	return decodeMeeting(data)
}

func (c *Client) UpdateMeetingStatus(ctx context.Context, id string, p meeting.UpdatePayload) (meeting.Meeting, error) {
	data, err := c.send(ctx, rest.Put, "/v1/meetings/"+url.PathEscape(id)+"/status", nil, p)
	if err != nil {
		return meeting.Meeting{}, err
	}
	return decodeMeeting(data)
}

// Slots returns a student's four meeting slots for a project, as computed by the server.
func (c *Client) Slots(ctx context.Context, studentID, projectID string) ([]meeting.Meeting, error) {
	q := make(url.Values)
	if projectID != "" {
		q.Set("projectId", projectID)
	}
	data, err := c.send(ctx, rest.Get, "/v1/students/"+url.PathEscape(studentID)+"/meeting-slots", q, nil)
	if err != nil {
		return nil, err
	}
	var slots []meeting.Meeting
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, malformed(err)
	}
	return slots, nil
}
