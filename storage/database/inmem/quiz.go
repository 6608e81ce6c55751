package inmemdb

import (
	"sort"

	"github.com/BruceGoodGuy/moodle/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) GetQuizByID(id int64) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if qz, ok := repo.db.quizzes[id]; ok {
		return *qz, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) UpdateQuiz(qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[qz.ID]; !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	repo.db.quizzes[qz.ID] = &qz
	return qz, nil
}

func (repo *quizRepository) CreateGradeItem(gi quiz.GradeItem) (quiz.GradeItem, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	gi.ID = repo.db.nextPK()
	repo.db.gradeItems[gi.ID] = &gi
	return gi, nil
}

func (repo *quizRepository) UpdateGradeItem(gi quiz.GradeItem) (quiz.GradeItem, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.gradeItems[gi.ID]
	if !ok || orig.QuizID != gi.QuizID {
		return quiz.GradeItem{}, quiz.ErrGradeItemNotFound
	}
	repo.db.gradeItems[gi.ID] = &gi
	return gi, nil
}

func (repo *quizRepository) DeleteGradeItems(quizID int64, ids ...int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		gi, ok := repo.db.gradeItems[id]
		if !ok || gi.QuizID != quizID {
			continue
		}
		delete(repo.db.gradeItems, id)
		for _, slot := range repo.db.slots {
			if slot.GradeItemID != nil && *slot.GradeItemID == id {
				slot.GradeItemID = nil
			}
		}
	}
	return nil
}

func (repo *quizRepository) QueryGradeItems(quizID int64) ([]quiz.GradeItem, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]quiz.GradeItem, 0)
	for _, gi := range repo.db.gradeItems {
		if gi.QuizID == quizID {
			items = append(items, *gi)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (repo *quizRepository) QuerySections(quizID int64) ([]quiz.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sections := make([]quiz.Section, 0)
	for _, sec := range repo.db.sections {
		if sec.QuizID == quizID {
			sections = append(sections, *sec)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].FirstSlot < sections[j].FirstSlot })
	return sections, nil
}

func (repo *quizRepository) GetSectionByID(id int64) (quiz.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sec, ok := repo.db.sections[id]; ok {
		return *sec, nil
	}
	return quiz.Section{}, quiz.ErrSectionNotFound
}

func (repo *quizRepository) UpdateSection(sec quiz.Section) (quiz.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sections[sec.ID]; !ok {
		return quiz.Section{}, quiz.ErrSectionNotFound
	}
	repo.db.sections[sec.ID] = &sec
	return sec, nil
}

func (repo *quizRepository) QuerySlots(quizID int64) ([]quiz.Slot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	slots := make([]quiz.Slot, 0)
	for _, slot := range repo.db.slots {
		if slot.QuizID == quizID {
			slots = append(slots, *slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotNumber < slots[j].SlotNumber })
	return slots, nil
}

func (repo *quizRepository) GetSlotByID(id int64) (quiz.Slot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if slot, ok := repo.db.slots[id]; ok {
		return *slot, nil
	}
	return quiz.Slot{}, quiz.ErrSlotNotFound
}

func (repo *quizRepository) UpdateSlotGradeItem(slotID int64, gradeItemID *int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	slot, ok := repo.db.slots[slotID]
	if !ok {
		return quiz.ErrSlotNotFound
	}
	slot.GradeItemID = gradeItemID
	return nil
}

func (repo *quizRepository) ReplaceFeedbackBands(quizID int64, bands []quiz.FeedbackBand) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := make([]quiz.FeedbackBand, 0, len(bands))
	for _, band := range bands {
		band.ID = repo.db.nextPK()
		band.QuizID = quizID
		stored = append(stored, band)
	}
	repo.db.feedbackBands[quizID] = stored
	return nil
}

func (repo *quizRepository) QueryFeedbackBands(quizID int64) ([]quiz.FeedbackBand, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	bands := make([]quiz.FeedbackBand, len(repo.db.feedbackBands[quizID]))
	copy(bands, repo.db.feedbackBands[quizID])
	sort.Slice(bands, func(i, j int) bool {
		if bands[i].GradeItemID != bands[j].GradeItemID {
			return bands[i].GradeItemID < bands[j].GradeItemID
		}
		return bands[i].MaxGrade > bands[j].MaxGrade
	})
	return bands, nil
}
