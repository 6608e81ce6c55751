package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/BruceGoodGuy/moodle/apps/api/echo"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/user"
)

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) quiz.EditorPayload {
	t.Helper()

	var payload quiz.EditorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func Test_quizApi_gradeItems(t *testing.T) {
	app := setup(t)
	fix := seedQuiz(app)

	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	student := app.createUser(t, "Stu", "Student", "student01", "stu@test.cd", user.StudentRoles)
	token := app.getToken(t, teacher)

	path := fmt.Sprintf("/v1/quizzes/%d/grade-items", fix.quiz.ID)

	t.Run("auth required", func(t *testing.T) {
		tests := []httpTest{
			{name: "no token", method: http.MethodGet, path: path,
				wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "student forbidden", method: http.MethodPost, path: path, token: app.getToken(t, student),
				wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
			{name: "unknown quiz", method: http.MethodGet, path: "/v1/quizzes/999/grade-items", token: token,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
				app.server.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	var kneesID, elbowsID int64

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, echoapi.GradeItemsRequest{GradeItems: []quiz.NewGradeItem{
			{Name: " Knees "}, {Name: "Elbows"},
		}})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		payload := decodePayload(t, rec)
		require.Len(t, payload.GradeItems, 2)
		assert.Equal(t, "Knees", payload.GradeItems[0].Name)
		assert.Equal(t, "Elbows", payload.GradeItems[1].Name)
		assert.Equal(t, float64(0), payload.GradeItems[0].SummedMarks)
		kneesID = payload.GradeItems[0].ID
		elbowsID = payload.GradeItems[1].ID

		// fresh payload was cached
		cached, err := app.cache.EditorPayload(fix.quiz.ID)
		require.NoError(t, err)
		assert.Len(t, cached.GradeItems, 2)
	})

	t.Run("create blank name", func(t *testing.T) {
		body := marchallObj(t, echoapi.GradeItemsRequest{GradeItems: []quiz.NewGradeItem{{Name: "  "}}})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		wantData := marchallObj(t, map[string]string{"gradeitems[0].name": "a grade item name is required"})
		if ok, _ := jsonBytesEqual(rec.Body.Bytes(), wantData); !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(wantData))
		}
	})

	t.Run("rename", func(t *testing.T) {
		body := marchallObj(t, echoapi.UpdateGradeItemsRequest{GradeItems: []quiz.UpdateGradeItem{
			{ID: kneesID, Name: "Kneecaps"},
		}})
		req, rec := newAuthRequest(http.MethodPut, path, token, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		payload := decodePayload(t, rec)
		assert.Equal(t, "Kneecaps", payload.GradeItems[0].Name)
	})

	t.Run("assign slots", func(t *testing.T) {
		body := marchallObj(t, echoapi.SlotAssignmentsRequest{Slots: []quiz.SlotAssignment{
			{SlotID: fix.slots[0].ID, GradeItemID: &kneesID},
			{SlotID: fix.slots[1].ID, GradeItemID: &kneesID},
			{SlotID: fix.slots[2].ID, GradeItemID: &elbowsID},
		}})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/quizzes/%d/slots", fix.quiz.ID), token, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		payload := decodePayload(t, rec)
		assert.Equal(t, 5.0, payload.GradeItems[0].SummedMarks) // Femur 2 + Tibia 3
		assert.Equal(t, 5.0, payload.GradeItems[1].SummedMarks) // Biceps 5
	})

	t.Run("assign foreign slot", func(t *testing.T) {
		body := marchallObj(t, echoapi.SlotAssignmentsRequest{Slots: []quiz.SlotAssignment{
			{SlotID: 999, GradeItemID: &kneesID},
		}})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/quizzes/%d/slots", fix.quiz.ID), token, body)
		app.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		wantData := marchallObj(t, map[string]string{"slots[0].slot_id": "the slot does not belong to this quiz"})
		if ok, _ := jsonBytesEqual(rec.Body.Bytes(), wantData); !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(wantData))
		}
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("%s?id=%d", path, kneesID), token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		payload := decodePayload(t, rec)
		require.Len(t, payload.GradeItems, 1)
		assert.Equal(t, "Elbows", payload.GradeItems[0].Name)

		// the deleted item's slots were unassigned
		for _, sec := range payload.Sections {
			for _, slot := range sec.Slots {
				if slot.GradeItemID != nil {
					assert.Equal(t, elbowsID, *slot.GradeItemID)
				}
			}
		}
	})

	t.Run("auto setup", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path+"/auto-setup", token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		payload := decodePayload(t, rec)
		require.Len(t, payload.GradeItems, 2)
		assert.Equal(t, "Skeleton", payload.GradeItems[0].Name)
		assert.Equal(t, "Muscles", payload.GradeItems[1].Name)
		assert.Equal(t, 5.0, payload.GradeItems[0].SummedMarks)
		assert.Equal(t, 5.0, payload.GradeItems[1].SummedMarks)
	})
}

func Test_quizApi_overallFeedback(t *testing.T) {
	app := setup(t)
	fix := seedQuiz(app)

	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	token := app.getToken(t, teacher)

	path := fmt.Sprintf("/v1/quizzes/%d/overall-feedback", fix.quiz.ID)

	// one grade item to attach feedback to
	body := marchallObj(t, echoapi.GradeItemsRequest{GradeItems: []quiz.NewGradeItem{{Name: "Overall"}}})
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/quizzes/%d/grade-items", fix.quiz.ID), token, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	itemID := decodePayload(t, rec).GradeItems[0].ID

	t.Run("empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("save", func(t *testing.T) {
		body := marchallObj(t, quiz.OverallFeedbackData{
			Boundaries: []string{"90%", "5"},
			Texts: []quiz.BandTexts{
				{itemID: "Excellent!"},
				{itemID: "Good effort."},
				{itemID: "Keep trying."},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var bands []quiz.FeedbackBand
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bands))
		require.Len(t, bands, 3)
		assert.Equal(t, "Excellent!", bands[0].Text)
		assert.Equal(t, 9.0, bands[0].MinGrade)
		assert.Equal(t, 10.0, bands[0].MaxGrade)
		assert.Equal(t, "Keep trying.", bands[2].Text)
		assert.Equal(t, 0.0, bands[2].MinGrade)
	})

	t.Run("save invalid boundary", func(t *testing.T) {
		body := marchallObj(t, quiz.OverallFeedbackData{
			Boundaries: []string{"lol"},
			Texts:      []quiz.BandTexts{{itemID: "Excellent!"}, {itemID: "Keep trying."}},
		})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		wantData := marchallObj(t, map[string]string{
			"feedbackboundaries[0]": "the boundary must be a number or a percentage",
		})
		if ok, _ := jsonBytesEqual(rec.Body.Bytes(), wantData); !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(wantData))
		}
	})

	t.Run("save unknown grade item", func(t *testing.T) {
		body := marchallObj(t, quiz.OverallFeedbackData{
			Boundaries: []string{"50%"},
			Texts:      []quiz.BandTexts{{999: "Excellent!"}, {itemID: "Keep trying."}},
		})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		wantData := marchallObj(t, map[string]string{"feedbacktext[0][999]": "unknown grade item"})
		if ok, _ := jsonBytesEqual(rec.Body.Bytes(), wantData); !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(wantData))
		}
	})
}
