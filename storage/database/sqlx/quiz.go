package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core/quiz"
)

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo quizRepository) GetQuizByID(id int64) (quiz.Quiz, error) {
	var qz quiz.Quiz
	err := repo.db.QueryRow(
		`SELECT id, course_module_id, name, max_grade, created_at, updated_at FROM quiz WHERE id = $1`, id,
	).Scan(&qz.ID, &qz.CourseModuleID, &qz.Name, &qz.MaxGrade, &qz.CreatedAt, &qz.UpdatedAt)
	if err != nil {
		return quiz.Quiz{}, repo.trapNoRowsErr(err, quiz.ErrNotFound, "getting quiz")
	}
	return qz, nil
}

func (repo quizRepository) UpdateQuiz(qz quiz.Quiz) (quiz.Quiz, error) {
	res, err := repo.db.Exec(
		`UPDATE quiz SET name = $1, max_grade = $2, updated_at = $3 WHERE id = $4`,
		qz.Name, qz.MaxGrade, qz.UpdatedAt, qz.ID,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return qz, nil
}

func (repo quizRepository) CreateGradeItem(gi quiz.GradeItem) (quiz.GradeItem, error) {
	err := repo.db.QueryRow(
		`INSERT INTO quiz_grade_item (quiz_id, sort_order, name) VALUES ($1, $2, $3) RETURNING id`,
		gi.QuizID, gi.SortOrder, gi.Name,
	).Scan(&gi.ID)
	if err != nil {
		return quiz.GradeItem{}, errors.Wrap(err, "inserting grade item")
	}
	return gi, nil
}

func (repo quizRepository) UpdateGradeItem(gi quiz.GradeItem) (quiz.GradeItem, error) {
	res, err := repo.db.Exec(
		`UPDATE quiz_grade_item SET sort_order = $1, name = $2 WHERE id = $3 AND quiz_id = $4`,
		gi.SortOrder, gi.Name, gi.ID, gi.QuizID,
	)
	if err != nil {
		return quiz.GradeItem{}, errors.Wrap(err, "updating grade item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.GradeItem{}, quiz.ErrGradeItemNotFound
	}
	return gi, nil
}

func (repo quizRepository) DeleteGradeItems(quizID int64, ids ...int64) error {
	// slot references are dropped by ON DELETE SET NULL
	_, err := repo.db.Exec(
		`DELETE FROM quiz_grade_item WHERE quiz_id = $1 AND id = ANY($2)`,
		quizID, pq.Array(ids),
	)
	return errors.Wrap(err, "deleting grade items")
}

func (repo quizRepository) QueryGradeItems(quizID int64) ([]quiz.GradeItem, error) {
	rows, err := repo.db.Query(
		`SELECT id, quiz_id, sort_order, name FROM quiz_grade_item WHERE quiz_id = $1 ORDER BY sort_order, id`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying grade items")
	}
	defer rows.Close()

	var items []quiz.GradeItem
	for rows.Next() {
		var gi quiz.GradeItem
		if err := rows.Scan(&gi.ID, &gi.QuizID, &gi.SortOrder, &gi.Name); err != nil {
			return nil, errors.Wrap(err, "scanning grade item")
		}
		items = append(items, gi)
	}
	return items, errors.Wrap(rows.Err(), "querying grade items")
}

func (repo quizRepository) QuerySections(quizID int64) ([]quiz.Section, error) {
	rows, err := repo.db.Query(
		`SELECT id, quiz_id, heading, first_slot, shuffle_questions FROM quiz_section WHERE quiz_id = $1 ORDER BY first_slot`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	defer rows.Close()

	var sections []quiz.Section
	for rows.Next() {
		var sec quiz.Section
		if err := rows.Scan(&sec.ID, &sec.QuizID, &sec.Heading, &sec.FirstSlot, &sec.ShuffleQuestions); err != nil {
			return nil, errors.Wrap(err, "scanning section")
		}
		sections = append(sections, sec)
	}
	return sections, errors.Wrap(rows.Err(), "querying sections")
}

func (repo quizRepository) GetSectionByID(id int64) (quiz.Section, error) {
	var sec quiz.Section
	err := repo.db.QueryRow(
		`SELECT id, quiz_id, heading, first_slot, shuffle_questions FROM quiz_section WHERE id = $1`, id,
	).Scan(&sec.ID, &sec.QuizID, &sec.Heading, &sec.FirstSlot, &sec.ShuffleQuestions)
	if err != nil {
		return quiz.Section{}, repo.trapNoRowsErr(err, quiz.ErrSectionNotFound, "getting section")
	}
	return sec, nil
}

func (repo quizRepository) UpdateSection(sec quiz.Section) (quiz.Section, error) {
	res, err := repo.db.Exec(
		`UPDATE quiz_section SET heading = $1, shuffle_questions = $2 WHERE id = $3`,
		sec.Heading, sec.ShuffleQuestions, sec.ID,
	)
	if err != nil {
		return quiz.Section{}, errors.Wrap(err, "updating section")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.Section{}, quiz.ErrSectionNotFound
	}
	return sec, nil
}

func (repo quizRepository) QuerySlots(quizID int64) ([]quiz.Slot, error) {
	rows, err := repo.db.Query(`
SELECT id, quiz_id, section_id, slot_number, question_name, max_mark, grade_item_id
FROM quiz_slot WHERE quiz_id = $1 ORDER BY slot_number`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	defer rows.Close()

	var slots []quiz.Slot
	for rows.Next() {
		var (
			slot   quiz.Slot
			itemID sql.NullInt64
		)
		if err := rows.Scan(&slot.ID, &slot.QuizID, &slot.SectionID, &slot.SlotNumber,
			&slot.QuestionName, &slot.MaxMark, &itemID); err != nil {
			return nil, errors.Wrap(err, "scanning slot")
		}
		if itemID.Valid {
			slot.GradeItemID = &itemID.Int64
		}
		slots = append(slots, slot)
	}
	return slots, errors.Wrap(rows.Err(), "querying slots")
}

func (repo quizRepository) GetSlotByID(id int64) (quiz.Slot, error) {
	var (
		slot   quiz.Slot
		itemID sql.NullInt64
	)
	err := repo.db.QueryRow(`
SELECT id, quiz_id, section_id, slot_number, question_name, max_mark, grade_item_id
FROM quiz_slot WHERE id = $1`, id,
	).Scan(&slot.ID, &slot.QuizID, &slot.SectionID, &slot.SlotNumber, &slot.QuestionName, &slot.MaxMark, &itemID)
	if err != nil {
		return quiz.Slot{}, repo.trapNoRowsErr(err, quiz.ErrSlotNotFound, "getting slot")
	}
	if itemID.Valid {
		slot.GradeItemID = &itemID.Int64
	}
	return slot, nil
}

func (repo quizRepository) UpdateSlotGradeItem(slotID int64, gradeItemID *int64) error {
	var itemID sql.NullInt64
	if gradeItemID != nil {
		itemID = sql.NullInt64{Int64: *gradeItemID, Valid: true}
	}
	res, err := repo.db.Exec(`UPDATE quiz_slot SET grade_item_id = $1 WHERE id = $2`, itemID, slotID)
	if err != nil {
		return errors.Wrap(err, "updating slot")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.ErrSlotNotFound
	}
	return nil
}

func (repo quizRepository) ReplaceFeedbackBands(quizID int64, bands []quiz.FeedbackBand) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM quiz_feedback_band WHERE quiz_id = $1`, quizID); err != nil {
		return errors.Wrap(err, "deleting feedback bands")
	}
	for _, band := range bands {
		_, err = tx.Exec(`
INSERT INTO quiz_feedback_band (quiz_id, grade_item_id, min_grade, max_grade, text, text_format)
VALUES ($1, $2, $3, $4, $5, $6)`,
			quizID, band.GradeItemID, band.MinGrade, band.MaxGrade, band.Text, band.TextFormat,
		)
		if err != nil {
			return errors.Wrap(err, "inserting feedback band")
		}
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo quizRepository) QueryFeedbackBands(quizID int64) ([]quiz.FeedbackBand, error) {
	rows, err := repo.db.Query(`
SELECT id, quiz_id, grade_item_id, min_grade, max_grade, text, text_format
FROM quiz_feedback_band WHERE quiz_id = $1 ORDER BY grade_item_id, max_grade DESC`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback bands")
	}
	defer rows.Close()

	var bands []quiz.FeedbackBand
	for rows.Next() {
		var band quiz.FeedbackBand
		if err := rows.Scan(&band.ID, &band.QuizID, &band.GradeItemID, &band.MinGrade,
			&band.MaxGrade, &band.Text, &band.TextFormat); err != nil {
			return nil, errors.Wrap(err, "scanning feedback band")
		}
		bands = append(bands, band)
	}
	return bands, errors.Wrap(rows.Err(), "querying feedback bands")
}
