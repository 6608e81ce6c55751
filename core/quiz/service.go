package quiz

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
)

var (
	// errors
	ErrNotFound          = errors.New("quiz not found")
	ErrGradeItemNotFound = errors.New("grade item not found")
	ErrSectionNotFound   = errors.New("section not found")
	ErrSlotNotFound      = errors.New("slot not found")

	errNameRequired     = "a grade item name is required"
	errSlotWrongQuiz    = "the slot does not belong to this quiz"
	errItemWrongQuiz    = "the grade item does not belong to this quiz"
	errHeadingRequired  = "a section heading is required"
	errHeadingDuplicate = "this section heading is already used in this quiz"
)

type (
	Repository interface {
		GetQuizByID(id int64) (Quiz, error)
		UpdateQuiz(qz Quiz) (Quiz, error)

		CreateGradeItem(gi GradeItem) (GradeItem, error)
		UpdateGradeItem(gi GradeItem) (GradeItem, error)
		// DeleteGradeItems removes the items and unassigns any slot
		// referencing them.
		DeleteGradeItems(quizID int64, ids ...int64) error
		// QueryGradeItems returns a quiz's grade items ordered by sort order.
		QueryGradeItems(quizID int64) ([]GradeItem, error)

		// QuerySections returns a quiz's sections ordered by first slot.
		QuerySections(quizID int64) ([]Section, error)
		GetSectionByID(id int64) (Section, error)
		UpdateSection(s Section) (Section, error)

		// QuerySlots returns a quiz's slots ordered by slot number.
		QuerySlots(quizID int64) ([]Slot, error)
		GetSlotByID(id int64) (Slot, error)
		UpdateSlotGradeItem(slotID int64, gradeItemID *int64) error

		// ReplaceFeedbackBands atomically swaps a quiz's feedback bands.
		ReplaceFeedbackBands(quizID int64, bands []FeedbackBand) error
		QueryFeedbackBands(quizID int64) ([]FeedbackBand, error)
	}

	ServiceInterface interface {
		GetByID(id int64) (Quiz, error)
		PageData(quizID int64) (EditorPayload, error)
		CreateGradeItems(quizID int64, items []NewGradeItem) (EditorPayload, error)
		UpdateGradeItems(quizID int64, items []UpdateGradeItem) (EditorPayload, error)
		DeleteGradeItems(quizID int64, ids []int64) (EditorPayload, error)
		UpdateSlots(quizID int64, assignments []SlotAssignment) (EditorPayload, error)
		AutoSetup(quizID int64) (EditorPayload, error)

		Sections(quizID int64) ([]SectionSlots, error)
		UpdateSectionHeading(quizID, sectionID int64, heading string) (Section, error)
		SetShuffle(quizID, sectionID int64, shuffle bool) (Section, error)

		SaveOverallFeedback(quizID int64, data OverallFeedbackData) (EditorPayload, error)
		OverallFeedback(quizID int64) ([]FeedbackBand, error)
		// FeedbackForGrade picks the feedback text for a grade on one item.
		FeedbackForGrade(quizID, gradeItemID int64, grade float64) (string, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) GetByID(id int64) (Quiz, error) {
	return svc.repo.GetQuizByID(id)
}

// PageData assembles the full editor re-render payload for a quiz.
func (svc *service) PageData(quizID int64) (EditorPayload, error) {
	qz, err := svc.repo.GetQuizByID(quizID)
	if err != nil {
		return EditorPayload{}, err
	}

	items, err := svc.repo.QueryGradeItems(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying grade items")
	}
	slots, err := svc.repo.QuerySlots(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying slots")
	}
	sections, err := svc.repo.QuerySections(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying sections")
	}

	// marks summed per assigned grade item
	summed := make(map[int64]float64, len(items))
	for _, slot := range slots {
		if slot.GradeItemID != nil {
			summed[*slot.GradeItemID] += slot.MaxMark
		}
	}

	payload := EditorPayload{Quiz: qz}
	payload.GradeItems = make([]GradeItemSummary, 0, len(items))
	for _, gi := range items {
		payload.GradeItems = append(payload.GradeItems, GradeItemSummary{
			GradeItem:   gi,
			SummedMarks: summed[gi.ID],
		})
	}

	payload.Sections = make([]SectionSlots, 0, len(sections))
	for _, sec := range sections {
		ss := SectionSlots{Section: sec, Slots: []Slot{}}
		for _, slot := range slots {
			if slot.SectionID == sec.ID {
				ss.Slots = append(ss.Slots, slot)
			}
		}
		payload.Sections = append(payload.Sections, ss)
	}
	return payload, nil
}

func (svc *service) CreateGradeItems(quizID int64, items []NewGradeItem) (EditorPayload, error) {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return EditorPayload{}, err
	}

	existing, err := svc.repo.QueryGradeItems(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying grade items")
	}
	sortOrder := 0
	for _, gi := range existing {
		if gi.SortOrder > sortOrder {
			sortOrder = gi.SortOrder
		}
	}

	for i, item := range items {
		name := core.CleanString(item.Name)
		if name == "" {
			return EditorPayload{}, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("gradeitems[%d].name", i), Error: errNameRequired,
			})
		}
		sortOrder++
		if _, err = svc.repo.CreateGradeItem(GradeItem{
			QuizID:    quizID,
			SortOrder: sortOrder,
			Name:      name,
		}); err != nil {
			return EditorPayload{}, errors.Wrap(err, "creating grade item")
		}
	}
	return svc.PageData(quizID)
}

func (svc *service) UpdateGradeItems(quizID int64, items []UpdateGradeItem) (EditorPayload, error) {
	existing, err := svc.repo.QueryGradeItems(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying grade items")
	}
	byID := make(map[int64]GradeItem, len(existing))
	for _, gi := range existing {
		byID[gi.ID] = gi
	}

	for i, item := range items {
		gi, ok := byID[item.ID]
		if !ok {
			return EditorPayload{}, core.NewValidationError(ErrGradeItemNotFound, core.FieldError{
				Field: fmt.Sprintf("gradeitems[%d].id", i), Error: errItemWrongQuiz,
			})
		}
		name := core.CleanString(item.Name)
		if name == "" {
			return EditorPayload{}, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("gradeitems[%d].name", i), Error: errNameRequired,
			})
		}
		gi.Name = name
		if _, err = svc.repo.UpdateGradeItem(gi); err != nil {
			return EditorPayload{}, errors.Wrap(err, "updating grade item")
		}
	}
	return svc.PageData(quizID)
}

func (svc *service) DeleteGradeItems(quizID int64, ids []int64) (EditorPayload, error) {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return EditorPayload{}, err
	}
	if len(ids) > 0 {
		if err := svc.repo.DeleteGradeItems(quizID, ids...); err != nil {
			return EditorPayload{}, errors.Wrap(err, "deleting grade items")
		}
	}
	return svc.PageData(quizID)
}

func (svc *service) UpdateSlots(quizID int64, assignments []SlotAssignment) (EditorPayload, error) {
	items, err := svc.repo.QueryGradeItems(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying grade items")
	}
	itemIDs := make(map[int64]bool, len(items))
	for _, gi := range items {
		itemIDs[gi.ID] = true
	}

	for i, asg := range assignments {
		slot, err := svc.repo.GetSlotByID(asg.SlotID)
		if err != nil || slot.QuizID != quizID {
			return EditorPayload{}, core.NewValidationError(ErrSlotNotFound, core.FieldError{
				Field: fmt.Sprintf("slots[%d].slot_id", i), Error: errSlotWrongQuiz,
			})
		}
		if asg.GradeItemID != nil && !itemIDs[*asg.GradeItemID] {
			return EditorPayload{}, core.NewValidationError(ErrGradeItemNotFound, core.FieldError{
				Field: fmt.Sprintf("slots[%d].grade_item_id", i), Error: errItemWrongQuiz,
			})
		}
		if err = svc.repo.UpdateSlotGradeItem(asg.SlotID, asg.GradeItemID); err != nil {
			return EditorPayload{}, errors.Wrap(err, "updating slot")
		}
	}
	return svc.PageData(quizID)
}

// AutoSetup wipes the existing grade items and recreates one per section,
// named after the section heading, with each section's slots assigned to it.
func (svc *service) AutoSetup(quizID int64) (EditorPayload, error) {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return EditorPayload{}, err
	}

	existing, err := svc.repo.QueryGradeItems(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying grade items")
	}
	if len(existing) > 0 {
		ids := make([]int64, 0, len(existing))
		for _, gi := range existing {
			ids = append(ids, gi.ID)
		}
		if err = svc.repo.DeleteGradeItems(quizID, ids...); err != nil {
			return EditorPayload{}, errors.Wrap(err, "deleting grade items")
		}
	}

	sections, err := svc.repo.QuerySections(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying sections")
	}
	slots, err := svc.repo.QuerySlots(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying slots")
	}

	for i, sec := range sections {
		name := core.CleanString(sec.Heading)
		if name == "" {
			name = fmt.Sprintf("Section %d", i+1)
		}
		gi, err := svc.repo.CreateGradeItem(GradeItem{
			QuizID:    quizID,
			SortOrder: i + 1,
			Name:      name,
		})
		if err != nil {
			return EditorPayload{}, errors.Wrap(err, "creating grade item")
		}
		for _, slot := range slots {
			if slot.SectionID != sec.ID {
				continue
			}
			id := gi.ID
			if err = svc.repo.UpdateSlotGradeItem(slot.ID, &id); err != nil {
				return EditorPayload{}, errors.Wrap(err, "updating slot")
			}
		}
	}
	return svc.PageData(quizID)
}

func (svc *service) Sections(quizID int64) ([]SectionSlots, error) {
	payload, err := svc.PageData(quizID)
	if err != nil {
		return nil, err
	}
	return payload.Sections, nil
}

func (svc *service) getQuizSection(quizID, sectionID int64) (Section, error) {
	sec, err := svc.repo.GetSectionByID(sectionID)
	if err != nil {
		return Section{}, err
	}
	if sec.QuizID != quizID {
		return Section{}, ErrSectionNotFound
	}
	return sec, nil
}

func (svc *service) UpdateSectionHeading(quizID, sectionID int64, heading string) (Section, error) {
	sec, err := svc.getQuizSection(quizID, sectionID)
	if err != nil {
		return Section{}, err
	}

	heading = core.CleanString(heading)
	if heading == "" {
		return Section{}, core.NewValidationError(nil, core.FieldError{Field: "heading", Error: errHeadingRequired})
	}

	sections, err := svc.repo.QuerySections(quizID)
	if err != nil {
		return Section{}, errors.Wrap(err, "querying sections")
	}
	for _, other := range sections {
		if other.ID != sectionID && other.Heading == heading {
			return Section{}, core.NewValidationError(nil, core.FieldError{Field: "heading", Error: errHeadingDuplicate})
		}
	}

	sec.Heading = heading
	return svc.repo.UpdateSection(sec)
}

func (svc *service) SetShuffle(quizID, sectionID int64, shuffle bool) (Section, error) {
	sec, err := svc.getQuizSection(quizID, sectionID)
	if err != nil {
		return Section{}, err
	}
	sec.ShuffleQuestions = shuffle
	return svc.repo.UpdateSection(sec)
}

// SaveOverallFeedback validates the submitted boundaries and texts and, when
// valid, replaces the quiz's feedback bands.
func (svc *service) SaveOverallFeedback(quizID int64, data OverallFeedbackData) (EditorPayload, error) {
	qz, err := svc.repo.GetQuizByID(quizID)
	if err != nil {
		return EditorPayload{}, err
	}

	boundaries, fldErrs := data.ValidateBoundaries(qz.MaxGrade)

	// every referenced grade item must belong to this quiz
	items, err := svc.repo.QueryGradeItems(quizID)
	if err != nil {
		return EditorPayload{}, errors.Wrap(err, "querying grade items")
	}
	itemIDs := make(map[int64]bool, len(items))
	for _, gi := range items {
		itemIDs[gi.ID] = true
	}
	for n, texts := range data.Texts {
		for itemID := range texts {
			if !itemIDs[itemID] {
				fldErrs = append(fldErrs, core.FieldError{
					Field: fmt.Sprintf("feedbacktext[%d][%d]", n, itemID),
					Error: unknownGradeItemText,
				})
			}
		}
	}

	if len(fldErrs) > 0 {
		sort.Slice(fldErrs, func(i, j int) bool { return fldErrs[i].Field < fldErrs[j].Field })
		return EditorPayload{}, core.NewValidationError(errInvalidFeedback, fldErrs...)
	}

	if err = svc.repo.ReplaceFeedbackBands(quizID, data.bands(qz, boundaries)); err != nil {
		return EditorPayload{}, errors.Wrap(err, "replacing feedback bands")
	}

	qz.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateQuiz(qz); err != nil {
		return EditorPayload{}, errors.Wrap(err, "updating quiz")
	}
	return svc.PageData(quizID)
}

func (svc *service) OverallFeedback(quizID int64) ([]FeedbackBand, error) {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return nil, err
	}
	return svc.repo.QueryFeedbackBands(quizID)
}

func (svc *service) FeedbackForGrade(quizID, gradeItemID int64, grade float64) (string, error) {
	bands, err := svc.OverallFeedback(quizID)
	if err != nil {
		return "", err
	}
	// a band covers [MinGrade, MaxGrade); the maximum grade itself falls into
	// the top band
	var topMax float64
	for _, band := range bands {
		if band.MaxGrade > topMax {
			topMax = band.MaxGrade
		}
	}
	for _, band := range bands {
		if band.GradeItemID != gradeItemID {
			continue
		}
		if grade >= band.MinGrade && (grade < band.MaxGrade || (band.MaxGrade == topMax && grade == band.MaxGrade)) {
			return band.Text, nil
		}
	}
	return "", nil
}
