package quiz

import "time"

type Quiz struct {
	ID             int64     `json:"id"`
	CourseModuleID int64     `json:"course_module_id"`
	Name           string    `json:"name"`
	MaxGrade       float64   `json:"max_grade"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Section groups consecutive slots under a heading. FirstSlot orders the
// sections within the quiz.
type Section struct {
	ID               int64  `json:"id"`
	QuizID           int64  `json:"quiz_id"`
	Heading          string `json:"heading"`
	FirstSlot        int    `json:"first_slot"`
	ShuffleQuestions bool   `json:"shuffle_questions"`
}

// Slot is one question position in a quiz. A slot's marks count towards its
// assigned grade item, if any.
type Slot struct {
	ID           int64   `json:"id"`
	QuizID       int64   `json:"quiz_id"`
	SectionID    int64   `json:"section_id"`
	SlotNumber   int     `json:"slot_number"`
	QuestionName string  `json:"question_name"`
	MaxMark      float64 `json:"max_mark"`
	GradeItemID  *int64  `json:"grade_item_id"`
}

// GradeItem is a named scoring bucket within a quiz that one or more
// questions contribute marks to.
type GradeItem struct {
	ID        int64  `json:"id"`
	QuizID    int64  `json:"quiz_id"`
	SortOrder int    `json:"sort_order"`
	Name      string `json:"name"`
}

// Editor request payloads.

type NewGradeItem struct {
	Name string `json:"name"`
}

type UpdateGradeItem struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

// SlotAssignment maps a slot to a grade item; a nil GradeItemID unassigns it.
type SlotAssignment struct {
	SlotID      int64  `json:"slot_id" validate:"required"`
	GradeItemID *int64 `json:"grade_item_id"`
}

// Re-render payload returned by every editor operation.

type GradeItemSummary struct {
	GradeItem
	// SummedMarks is the total max mark of the slots assigned to this item.
	SummedMarks float64 `json:"summed_marks"`
}

type SectionSlots struct {
	Section
	Slots []Slot `json:"slots"`
}

// EditorPayload is the full state of the grade-item editor page, returned by
// each editor operation so the caller can re-render the page region.
type EditorPayload struct {
	Quiz       Quiz               `json:"quiz"`
	GradeItems []GradeItemSummary `json:"grade_items"`
	Sections   []SectionSlots     `json:"sections"`
}
