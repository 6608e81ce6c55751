package quiz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	inmemdb "github.com/BruceGoodGuy/moodle/storage/database/inmem"
)

type fixture struct {
	db   *inmemdb.DB
	repo quiz.Repository
	svc  quiz.ServiceInterface

	quiz     quiz.Quiz
	sections []quiz.Section
	slots    []quiz.Slot
}

// setup seeds a quiz with two sections and three slots.
func setup(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.NewDB()
	repo := inmemdb.NewQuizRepository(db)

	qz := db.AddQuiz(quiz.Quiz{Name: "Anatomy final", MaxGrade: 10})
	sec1 := db.AddSection(quiz.Section{QuizID: qz.ID, Heading: "Skeleton", FirstSlot: 1})
	sec2 := db.AddSection(quiz.Section{QuizID: qz.ID, Heading: "Muscles", FirstSlot: 3})
	slots := []quiz.Slot{
		db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec1.ID, SlotNumber: 1, QuestionName: "Femur", MaxMark: 2}),
		db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec1.ID, SlotNumber: 2, QuestionName: "Tibia", MaxMark: 3}),
		db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec2.ID, SlotNumber: 3, QuestionName: "Biceps", MaxMark: 5}),
	}

	return &fixture{
		db:       db,
		repo:     repo,
		svc:      quiz.NewService(repo),
		quiz:     qz,
		sections: []quiz.Section{sec1, sec2},
		slots:    slots,
	}
}

func TestService_CreateGradeItems(t *testing.T) {
	fix := setup(t)

	payload, err := fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "Theory"}, {Name: "Practice"}})
	require.NoError(t, err)
	require.Len(t, payload.GradeItems, 2)
	assert.Equal(t, "Theory", payload.GradeItems[0].Name)
	assert.Equal(t, 1, payload.GradeItems[0].SortOrder)
	assert.Equal(t, "Practice", payload.GradeItems[1].Name)
	assert.Equal(t, 2, payload.GradeItems[1].SortOrder)

	// sort order continues from the existing maximum
	payload, err = fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "Bonus"}})
	require.NoError(t, err)
	require.Len(t, payload.GradeItems, 3)
	assert.Equal(t, 3, payload.GradeItems[2].SortOrder)

	// blank names are rejected
	_, err = fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "  "}})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "gradeitems[0].name", vErr.Fields[0].Field)

	// unknown quiz
	_, err = fix.svc.CreateGradeItems(999, []quiz.NewGradeItem{{Name: "Theory"}})
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestService_UpdateSlots(t *testing.T) {
	fix := setup(t)

	payload, err := fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "Theory"}})
	require.NoError(t, err)
	itemID := payload.GradeItems[0].ID

	payload, err = fix.svc.UpdateSlots(fix.quiz.ID, []quiz.SlotAssignment{
		{SlotID: fix.slots[0].ID, GradeItemID: &itemID},
		{SlotID: fix.slots[1].ID, GradeItemID: &itemID},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, payload.GradeItems[0].SummedMarks)

	// unassign
	payload, err = fix.svc.UpdateSlots(fix.quiz.ID, []quiz.SlotAssignment{
		{SlotID: fix.slots[1].ID, GradeItemID: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, payload.GradeItems[0].SummedMarks)

	// slot from another quiz
	other := fix.db.AddQuiz(quiz.Quiz{Name: "Other", MaxGrade: 10})
	otherSec := fix.db.AddSection(quiz.Section{QuizID: other.ID, FirstSlot: 1})
	otherSlot := fix.db.AddSlot(quiz.Slot{QuizID: other.ID, SectionID: otherSec.ID, SlotNumber: 1, MaxMark: 1})
	_, err = fix.svc.UpdateSlots(fix.quiz.ID, []quiz.SlotAssignment{{SlotID: otherSlot.ID, GradeItemID: &itemID}})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "slots[0].slot_id", vErr.Fields[0].Field)

	// item from another quiz
	otherPayload, err := fix.svc.CreateGradeItems(other.ID, []quiz.NewGradeItem{{Name: "Foreign"}})
	require.NoError(t, err)
	foreignID := otherPayload.GradeItems[0].ID
	_, err = fix.svc.UpdateSlots(fix.quiz.ID, []quiz.SlotAssignment{{SlotID: fix.slots[0].ID, GradeItemID: &foreignID}})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "slots[0].grade_item_id", vErr.Fields[0].Field)
}

func TestService_DeleteGradeItems(t *testing.T) {
	fix := setup(t)

	payload, err := fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "Theory"}})
	require.NoError(t, err)
	itemID := payload.GradeItems[0].ID

	_, err = fix.svc.UpdateSlots(fix.quiz.ID, []quiz.SlotAssignment{{SlotID: fix.slots[0].ID, GradeItemID: &itemID}})
	require.NoError(t, err)

	payload, err = fix.svc.DeleteGradeItems(fix.quiz.ID, []int64{itemID})
	require.NoError(t, err)
	assert.Empty(t, payload.GradeItems)

	// deleting an item unassigns its slots
	for _, sec := range payload.Sections {
		for _, slot := range sec.Slots {
			assert.Nil(t, slot.GradeItemID)
		}
	}
}

func TestService_AutoSetup(t *testing.T) {
	fix := setup(t)

	// pre-existing items are wiped
	_, err := fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "Old"}})
	require.NoError(t, err)

	payload, err := fix.svc.AutoSetup(fix.quiz.ID)
	require.NoError(t, err)

	require.Len(t, payload.GradeItems, 2)
	assert.Equal(t, "Skeleton", payload.GradeItems[0].Name)
	assert.Equal(t, 5.0, payload.GradeItems[0].SummedMarks)
	assert.Equal(t, "Muscles", payload.GradeItems[1].Name)
	assert.Equal(t, 5.0, payload.GradeItems[1].SummedMarks)

	// every slot is assigned to its section's item
	require.Len(t, payload.Sections, 2)
	for i, sec := range payload.Sections {
		for _, slot := range sec.Slots {
			require.NotNil(t, slot.GradeItemID)
			assert.Equal(t, payload.GradeItems[i].ID, *slot.GradeItemID)
		}
	}
}

func TestService_AutoSetup_blankHeading(t *testing.T) {
	db := inmemdb.NewDB()
	svc := quiz.NewService(inmemdb.NewQuizRepository(db))

	qz := db.AddQuiz(quiz.Quiz{Name: "Quick check", MaxGrade: 5})
	sec := db.AddSection(quiz.Section{QuizID: qz.ID, Heading: "  ", FirstSlot: 1})
	db.AddSlot(quiz.Slot{QuizID: qz.ID, SectionID: sec.ID, SlotNumber: 1, MaxMark: 5})

	payload, err := svc.AutoSetup(qz.ID)
	require.NoError(t, err)
	require.Len(t, payload.GradeItems, 1)
	assert.Equal(t, "Section 1", payload.GradeItems[0].Name)
}

func TestService_UpdateSectionHeading(t *testing.T) {
	fix := setup(t)

	sec, err := fix.svc.UpdateSectionHeading(fix.quiz.ID, fix.sections[0].ID, "  Bones  ")
	require.NoError(t, err)
	assert.Equal(t, "Bones", sec.Heading)

	// blank heading
	_, err = fix.svc.UpdateSectionHeading(fix.quiz.ID, fix.sections[0].ID, "   ")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "heading", vErr.Fields[0].Field)

	// duplicate heading within the quiz
	_, err = fix.svc.UpdateSectionHeading(fix.quiz.ID, fix.sections[0].ID, "Muscles")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "heading", vErr.Fields[0].Field)

	// section from another quiz
	other := fix.db.AddQuiz(quiz.Quiz{Name: "Other", MaxGrade: 10})
	otherSec := fix.db.AddSection(quiz.Section{QuizID: other.ID, FirstSlot: 1})
	_, err = fix.svc.UpdateSectionHeading(fix.quiz.ID, otherSec.ID, "Bones")
	assert.ErrorIs(t, err, quiz.ErrSectionNotFound)
}

func TestService_SetShuffle(t *testing.T) {
	fix := setup(t)

	sec, err := fix.svc.SetShuffle(fix.quiz.ID, fix.sections[0].ID, true)
	require.NoError(t, err)
	assert.True(t, sec.ShuffleQuestions)

	sec, err = fix.svc.SetShuffle(fix.quiz.ID, fix.sections[0].ID, false)
	require.NoError(t, err)
	assert.False(t, sec.ShuffleQuestions)
}

func TestService_SaveOverallFeedback(t *testing.T) {
	fix := setup(t)

	payload, err := fix.svc.CreateGradeItems(fix.quiz.ID, []quiz.NewGradeItem{{Name: "Theory"}})
	require.NoError(t, err)
	itemID := payload.GradeItems[0].ID

	data := quiz.OverallFeedbackData{
		Boundaries: []string{"90%", "50%"},
		Texts: []quiz.BandTexts{
			{itemID: "excellent"},
			{itemID: "good"},
			{itemID: "keep trying"},
		},
	}
	_, err = fix.svc.SaveOverallFeedback(fix.quiz.ID, data)
	require.NoError(t, err)

	bands, err := fix.svc.OverallFeedback(fix.quiz.ID)
	require.NoError(t, err)
	require.Len(t, bands, 3)

	// FeedbackForGrade picks the right band; the maximum grade falls in the
	// top band and a band's lower boundary falls in that band
	for _, tc := range []struct {
		grade float64
		want  string
	}{
		{10, "excellent"},
		{9, "excellent"},
		{8.9, "good"},
		{5, "good"},
		{4.9, "keep trying"},
		{0, "keep trying"},
	} {
		text, err := fix.svc.FeedbackForGrade(fix.quiz.ID, itemID, tc.grade)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, text, "grade %v", tc.grade)
	}

	// unknown grade item in the texts
	bad := quiz.OverallFeedbackData{
		Boundaries: []string{"50%"},
		Texts:      []quiz.BandTexts{{999: "whose item is this"}, {}},
	}
	_, err = fix.svc.SaveOverallFeedback(fix.quiz.ID, bad)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "feedbacktext[0][999]", vErr.Fields[0].Field)
}
