package tests

import (
	"net/http"
	"testing"

	echoapi "github.com/BruceGoodGuy/moodle/apps/api/echo"
	"github.com/BruceGoodGuy/moodle/core/settings"
	"github.com/BruceGoodGuy/moodle/core/user"
)

func Test_settingsApi_markerMatchFilters(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Ada", "Admin", "admin01", "ada@test.cd", user.AdminRoles)
	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	adminToken := app.getToken(t, admin)

	path := "/v1/settings/marker-match-filters"
	response := func(filters ...string) []byte {
		if filters == nil {
			filters = []string{}
		}
		return marchallObj(t, echoapi.MarkerMatchFiltersResponse{
			Filters: filters,
			Known:   settings.KnownFilters,
		})
	}

	tests := []httpTest{
		{name: "get no token", method: http.MethodGet, path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "get teacher forbidden", method: http.MethodGet, path: path, token: app.getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "get unset", method: http.MethodGet, path: path, token: adminToken,
			wantCode: http.StatusOK, wantData: response()},
		{name: "put teacher forbidden", method: http.MethodPut, path: path, token: app.getToken(t, teacher),
			body:     marchallObj(t, echoapi.MarkerMatchFiltersRequest{Filters: []string{"mathjax"}}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "put cleans and sorts", method: http.MethodPut, path: path, token: adminToken,
			body:     marchallObj(t, echoapi.MarkerMatchFiltersRequest{Filters: []string{" MathJax ", "glossary"}}),
			wantCode: http.StatusOK, wantData: response("glossary", "mathjax")},
		{name: "put unknown filter", method: http.MethodPut, path: path, token: adminToken,
			body:     marchallObj(t, echoapi.MarkerMatchFiltersRequest{Filters: []string{"glossary", "nope"}}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"filters[1]": "unknown content filter"})},
		{name: "get keeps previous value after rejected put", method: http.MethodGet, path: path, token: adminToken,
			wantCode: http.StatusOK, wantData: response("glossary", "mathjax")},
		{name: "put clears", method: http.MethodPut, path: path, token: adminToken,
			body:     marchallObj(t, echoapi.MarkerMatchFiltersRequest{Filters: []string{}}),
			wantCode: http.StatusOK, wantData: response()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
