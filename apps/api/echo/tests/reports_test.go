package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/BruceGoodGuy/moodle/apps/api/echo"
	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/user"
)

type reportFixture struct {
	course  group.Course
	module  group.CourseModule
	blue    group.Group
	red     group.Group
	teacher user.User
	alice   user.User
	kofi    user.User
}

func seedReport(t *testing.T, app *testApp, mode group.Mode) reportFixture {
	t.Helper()

	crs := app.db.AddCourse(group.Course{ShortName: "ANAT101", FullName: "Human Anatomy"})
	cm := app.db.AddCourseModule(group.CourseModule{CourseID: crs.ID, Name: "Final quiz", GroupMode: mode})

	blue, err := app.groupSvc.Create(group.NewGroup{CourseID: crs.ID, Name: "Blue"})
	require.NoError(t, err)
	red, err := app.groupSvc.Create(group.NewGroup{CourseID: crs.ID, Name: "Red"})
	require.NoError(t, err)

	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	alice := app.createUser(t, "Alice", "Kabila", "alice01", "alice@test.cd", user.StudentRoles)
	kofi := app.createUser(t, "Kofi", "Mensah", "kofi01", "kofi@test.cd", user.StudentRoles)

	for _, usr := range []user.User{teacher, alice, kofi} {
		require.NoError(t, app.groupSvc.Enrol(crs.ID, usr.ID))
	}
	require.NoError(t, app.groupSvc.AddMember(blue.ID, alice.ID))
	require.NoError(t, app.groupSvc.AddMember(red.ID, kofi.ID))

	return reportFixture{course: crs, module: cm, blue: blue, red: red, teacher: teacher, alice: alice, kofi: kofi}
}

func decodeFragment(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp echoapi.FragmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.HTML
}

func Test_reportApi_groupSelector(t *testing.T) {
	app := setup(t)
	fix := seedReport(t, app, group.ModeVisible)
	token := app.getToken(t, fix.teacher)

	path := fmt.Sprintf("/v1/reports/modules/%d/group-selector", fix.module.ID)

	t.Run("auth required", func(t *testing.T) {
		tests := []httpTest{
			{name: "no token", method: http.MethodGet, path: path,
				wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "student forbidden", method: http.MethodGet, path: path, token: app.getToken(t, fix.alice),
				wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
			{name: "unknown module", method: http.MethodGet, path: "/v1/reports/modules/999/group-selector", token: token,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, tt.token)
				app.server.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("renders all groups", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		html := decodeFragment(t, rec)
		assert.Contains(t, html, "Visible groups")
		assert.Contains(t, html, "All participants")
		assert.Contains(t, html, "Blue")
		assert.Contains(t, html, "Red")
	})

	t.Run("selection is remembered", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("%s?group=%d", path, fix.blue.ID), token)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		groupID, err := app.cache.ActiveGroup(fix.teacher.ID, fix.module.ID)
		require.NoError(t, err)
		assert.Equal(t, fix.blue.ID, groupID)

		// the next render without a param restores the selection
		req, rec = newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		html := decodeFragment(t, rec)
		assert.Contains(t, html, `aria-selected="true"`)
	})
}

func Test_reportApi_userSearch(t *testing.T) {
	app := setup(t)
	fix := seedReport(t, app, group.ModeNone)
	token := app.getToken(t, fix.teacher)

	path := fmt.Sprintf("/v1/reports/modules/%d/user-search", fix.module.ID)

	t.Run("all participants", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		html := decodeFragment(t, rec)
		assert.Contains(t, html, "Alice Kabila")
		assert.Contains(t, html, "Kofi Mensah")
	})

	t.Run("narrowed by search", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?search=ali", token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		html := decodeFragment(t, rec)
		assert.Contains(t, html, "Alice Kabila")
		assert.NotContains(t, html, "Kofi Mensah")
	})
}

func Test_reportApi_initialsBars(t *testing.T) {
	app := setup(t)
	fix := seedReport(t, app, group.ModeNone)
	token := app.getToken(t, fix.teacher)

	path := fmt.Sprintf("/v1/reports/modules/%d/initials-bars", fix.module.ID)

	decode := func(rec *httptest.ResponseRecorder) echoapi.InitialsBarsResponse {
		var resp echoapi.InitialsBarsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	t.Run("none active", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode(rec)
		assert.Contains(t, resp.FirstInitialsBar, "First name")
		assert.Contains(t, resp.FirstInitialsBar, `class="all active"`)
		assert.Contains(t, resp.LastInitialsBar, "Last name")
		assert.Contains(t, resp.LastInitialsBar, `class="all active"`)
	})

	t.Run("last initial active", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?last=k", token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode(rec)
		assert.Contains(t, resp.FirstInitialsBar, `class="all active"`)
		assert.Contains(t, resp.LastInitialsBar, `class="active" data-initial="K"`)
		assert.Equal(t, 1, strings.Count(resp.LastInitialsBar, `class="active"`))
	})
}

func Test_reportApi_exportGradingWorksheet(t *testing.T) {
	app := setup(t)
	fix := seedReport(t, app, group.ModeNone)
	token := app.getToken(t, fix.teacher)

	qz := app.db.AddQuiz(quiz.Quiz{CourseModuleID: fix.module.ID, Name: "Anatomy final", MaxGrade: 10})
	sec := app.db.AddSection(quiz.Section{QuizID: qz.ID, Heading: "Skeleton", FirstSlot: 1})
	app.db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec.ID, SlotNumber: 1, QuestionName: "Femur", MaxMark: 2})

	t.Run("unknown quiz", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/quizzes/999/export", token)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/reports/quizzes/%d/export", qz.ID), token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		disposition := rec.Header().Get("Content-Disposition")
		assert.Contains(t, disposition, "attachment")
		assert.Contains(t, disposition, ".xlsx")
		assert.NotZero(t, rec.Body.Len())
	})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
