package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/dissertrack/apps/api/echo"
	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/evaluation"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
	"github.com/trezcool/dissertrack/services/email"
	"github.com/trezcool/dissertrack/storage/database/inmem"
	"github.com/trezcool/dissertrack/tests"
)

const testPassword = "Str0ng-Passw0rd!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app     *Server
	conf    *core.Config
	broker  *meeting.Broker
	usrRepo user.Repository
	prjRepo project.Repository
	mtgRepo meeting.Repository
	evlRepo evaluation.Repository

	student  user.User
	loner    user.User // student without a guide
	guide    user.User
	other    user.User // faculty guiding nobody
	hod      user.User
	approved project.Project
}

func setup(t *testing.T) *fixture {
	conf := testutil.NewConfig()
	core.Conf = conf
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)
	emailsvc.ResetSentMessages()

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.NewDB()
	f := &fixture{
		conf:    conf,
		broker:  meeting.NewBroker(),
		usrRepo: inmemdb.NewUserRepository(db),
		prjRepo: inmemdb.NewProjectRepository(db),
		mtgRepo: inmemdb.NewMeetingRepository(db),
		evlRepo: inmemdb.NewEvaluationRepository(db),
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(f.usrRepo, mailSvc, logger, conf)
	prjSvc := project.NewService(f.prjRepo, usrSvc, logger)

	// set up server
	f.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Broker:         f.broker,
		UserSvc:        usrSvc,
		ProjectSvc:     prjSvc,
		MeetingSvc:     meeting.NewService(f.mtgRepo, prjSvc, usrSvc, f.broker, logger),
		EvaluationSvc:  evaluation.NewService(f.evlRepo, prjSvc),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	f.guide = testutil.CreateUser(t, f.usrRepo, "Bob Guide", "bob", "bob@test.io", testPassword, user.RoleFaculty, true)
	f.other = testutil.CreateUser(t, f.usrRepo, "Cid Guide", "cid", "cid@test.io", testPassword, user.RoleFaculty, true)
	f.hod = testutil.CreateUser(t, f.usrRepo, "Dee Head", "dee", "dee@test.io", testPassword, user.RoleHOD, true)
	f.loner = testutil.CreateUser(t, f.usrRepo, "Eve Alone", "eve", "eve@test.io", testPassword, user.RoleStudent, true)
	student := testutil.CreateUser(t, f.usrRepo, "Ada Student", "ada", "ada@test.io", testPassword, user.RoleStudent, true)
	student.AssignedGuideID = f.guide.ID
	f.student = updateUser(t, f.usrRepo, student)
	f.approved = testutil.CreateProject(t, f.prjRepo, "Thesis", f.student.ID, f.guide.ID, project.StatusApproved)
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (f *fixture) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, f.conf), f.conf.SecretKey)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func updateUser(t *testing.T, repo user.Repository, usr user.User) user.User {
	usr, err := repo.UpdateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("updateUser() failed: %v", err)
	}
	return usr
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, f *fixture, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, f.serve(method, tt.path, tt.token, tt.body))
		})
	}
}
