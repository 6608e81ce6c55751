package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/BruceGoodGuy/moodle/apps/api/echo"
	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/settings"
	"github.com/BruceGoodGuy/moodle/core/user"
	emailsvc "github.com/BruceGoodGuy/moodle/services/email"
	logsvc "github.com/BruceGoodGuy/moodle/services/logger"
	sessioncache "github.com/BruceGoodGuy/moodle/storage/cache"
	inmemdb "github.com/BruceGoodGuy/moodle/storage/database/inmem"
	"github.com/BruceGoodGuy/moodle/widget"
)

type testApp struct {
	conf     *core.Config
	server   echoapi.Server
	db       *inmemdb.DB
	usrRepo  user.Repository
	groupSvc group.ServiceInterface
	cache    sessioncache.Cache
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		AppName:   "moodle-test",
		SecretKey: "secret",
		WorkDir:   core.Getwd(),
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(conf, usrRepo, mailSvc)
	groupSvc := group.NewService(inmemdb.NewGroupRepository(db))
	quizSvc := quiz.NewService(inmemdb.NewQuizRepository(db))
	settingsSvc := settings.NewService(inmemdb.NewSettingsRepository(db))
	cache := sessioncache.NewCacheMock()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		GroupSvc:    groupSvc,
		QuizSvc:     quizSvc,
		SettingsSvc: settingsSvc,
		Renderer:    widget.NewRenderer(conf, groupSvc, usrSvc),
		Cache:       cache,
		Validate:    validate,
		Translator:  translator,
	})

	return &testApp{
		conf:     conf,
		server:   server,
		db:       db,
		usrRepo:  usrRepo,
		groupSvc: groupSvc,
		cache:    cache,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (app *testApp) createUser(t *testing.T, first, last, uname, email string, roles []string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		FirstName: first,
		LastName:  last,
		Username:  uname,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("v3ryS3cre7!"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := app.usrRepo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()

	claims := echoapi.GetUserClaims(app.conf, usr)
	token, err := echoapi.GenerateToken(app.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
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
	extra    interface{}
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
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
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
