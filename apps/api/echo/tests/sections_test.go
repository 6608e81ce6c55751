package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/user"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type quizFixture struct {
	quiz     quiz.Quiz
	sections []quiz.Section
	slots    []quiz.Slot
}

func seedQuiz(app *testApp) quizFixture {
	qz := app.db.AddQuiz(quiz.Quiz{Name: "Anatomy final", MaxGrade: 10})
	sec1 := app.db.AddSection(quiz.Section{QuizID: qz.ID, Heading: "Skeleton", FirstSlot: 1})
	sec2 := app.db.AddSection(quiz.Section{QuizID: qz.ID, Heading: "Muscles", FirstSlot: 3})
	slots := []quiz.Slot{
		app.db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec1.ID, SlotNumber: 1, QuestionName: "Femur", MaxMark: 2}),
		app.db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec1.ID, SlotNumber: 2, QuestionName: "Tibia", MaxMark: 3}),
		app.db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec2.ID, SlotNumber: 3, QuestionName: "Biceps", MaxMark: 5}),
	}
	return quizFixture{quiz: qz, sections: []quiz.Section{sec1, sec2}, slots: slots}
}

func Test_quizApi_sections(t *testing.T) {
	app := setup(t)
	fix := seedQuiz(app)

	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	student := app.createUser(t, "Stu", "Student", "student01", "stu@test.cd", user.StudentRoles)
	teacherToken := app.getToken(t, teacher)

	path := fmt.Sprintf("/v1/quizzes/%d/sections", fix.quiz.ID)
	wantSections := marchallObj(t, []quiz.SectionSlots{
		{Section: fix.sections[0], Slots: fix.slots[:2]},
		{Section: fix.sections[1], Slots: fix.slots[2:]},
	})

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student forbidden", method: http.MethodGet, path: path, token: app.getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "unknown quiz", method: http.MethodGet, path: "/v1/quizzes/999/sections", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "ok", method: http.MethodGet, path: path, token: teacherToken,
			wantCode: http.StatusOK, wantData: wantSections},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_updateSectionHeading(t *testing.T) {
	app := setup(t)
	fix := seedQuiz(app)

	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	token := app.getToken(t, teacher)

	path := func(sectionID int64) string {
		return fmt.Sprintf("/v1/quizzes/%d/sections/%d/heading", fix.quiz.ID, sectionID)
	}
	body := func(heading string) []byte {
		return marchallObj(t, map[string]string{"heading": heading})
	}

	tests := []httpTest{
		{name: "no token", method: http.MethodPut, path: path(fix.sections[0].ID), body: body("Bones"),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown section", method: http.MethodPut, path: path(999), body: body("Bones"), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "blank heading", method: http.MethodPut, path: path(fix.sections[0].ID), body: body("   "), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"heading": "a section heading is required"})},
		{name: "duplicate heading", method: http.MethodPut, path: path(fix.sections[0].ID), body: body("Muscles"), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"heading": "this section heading is already used in this quiz"})},
		{name: "ok", method: http.MethodPut, path: path(fix.sections[0].ID), body: body("  Bones  "), token: token,
			wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var sec quiz.Section
				if err := json.Unmarshal(rec.Body.Bytes(), &sec); err != nil {
					t.Fatalf("unmarshalling section: %v", err)
				}
				if sec.Heading != "Bones" {
					t.Errorf("heading = %q; want %q", sec.Heading, "Bones")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_setSectionShuffle(t *testing.T) {
	app := setup(t)
	fix := seedQuiz(app)

	teacher := app.createUser(t, "Tess", "Teacher", "teacher01", "tess@test.cd", user.TeacherRoles)
	token := app.getToken(t, teacher)

	path := fmt.Sprintf("/v1/quizzes/%d/sections/%d/shuffle", fix.quiz.ID, fix.sections[0].ID)

	for _, shuffle := range []bool{true, false} {
		body := marchallObj(t, map[string]bool{"shuffle": shuffle})
		req, rec := newAuthRequest(http.MethodPut, path, token, body)
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusOK)
		}
		var sec quiz.Section
		if err := json.Unmarshal(rec.Body.Bytes(), &sec); err != nil {
			t.Fatalf("unmarshalling section: %v", err)
		}
		if sec.ShuffleQuestions != shuffle {
			t.Errorf("shuffle_questions = %v; want %v", sec.ShuffleQuestions, shuffle)
		}
	}
}
