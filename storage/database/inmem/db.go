package inmemdb

import (
	"sync"

	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/user"
)

type membership struct {
	groupID int64
	userID  int64
}

type enrolment struct {
	courseID int64
	userID   int64
}

// DB is an in-memory database used in tests.
type DB struct {
	mutex sync.RWMutex

	pkCount int64

	users         map[int64]*user.User
	courses       map[int64]*group.Course
	courseModules map[int64]*group.CourseModule
	groups        map[int64]*group.Group
	memberships   []membership
	enrolments    []enrolment

	quizzes       map[int64]*quiz.Quiz
	sections      map[int64]*quiz.Section
	slots         map[int64]*quiz.Slot
	gradeItems    map[int64]*quiz.GradeItem
	feedbackBands map[int64][]quiz.FeedbackBand // by quiz ID

	settings map[string]string
}

func NewDB() *DB {
	return &DB{
		users:         make(map[int64]*user.User),
		courses:       make(map[int64]*group.Course),
		courseModules: make(map[int64]*group.CourseModule),
		groups:        make(map[int64]*group.Group),
		quizzes:       make(map[int64]*quiz.Quiz),
		sections:      make(map[int64]*quiz.Section),
		slots:         make(map[int64]*quiz.Slot),
		gradeItems:    make(map[int64]*quiz.GradeItem),
		feedbackBands: make(map[int64][]quiz.FeedbackBand),
		settings:      make(map[string]string),
	}
}

func (db *DB) nextPK() int64 {
	db.pkCount++
	return db.pkCount
}

// test fixture helpers; they bypass the repositories

func (db *DB) AddCourse(crs group.Course) group.Course {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if crs.ID == 0 {
		crs.ID = db.nextPK()
	}
	db.courses[crs.ID] = &crs
	return crs
}

func (db *DB) AddCourseModule(cm group.CourseModule) group.CourseModule {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if cm.ID == 0 {
		cm.ID = db.nextPK()
	}
	db.courseModules[cm.ID] = &cm
	return cm
}

func (db *DB) AddQuiz(qz quiz.Quiz) quiz.Quiz {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if qz.ID == 0 {
		qz.ID = db.nextPK()
	}
	db.quizzes[qz.ID] = &qz
	return qz
}

func (db *DB) AddSection(sec quiz.Section) quiz.Section {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if sec.ID == 0 {
		sec.ID = db.nextPK()
	}
	db.sections[sec.ID] = &sec
	return sec
}

func (db *DB) AddSlot(slot quiz.Slot) quiz.Slot {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if slot.ID == 0 {
		slot.ID = db.nextPK()
	}
	db.slots[slot.ID] = &slot
	return slot
}
