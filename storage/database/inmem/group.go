package inmemdb

import (
	"sort"

	"github.com/BruceGoodGuy/moodle/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) GetCourseByID(id int64) (group.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return group.Course{}, group.ErrCourseNotFound
}

func (repo *groupRepository) GetCourseModuleByID(id int64) (group.CourseModule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cm, ok := repo.db.courseModules[id]; ok {
		return *cm, nil
	}
	return group.CourseModule{}, group.ErrModuleNotFound
}

func (repo *groupRepository) CreateGroup(grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grp.ID = repo.db.nextPK()
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) GetGroupByID(id int64) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grp, ok := repo.db.groups[id]; ok {
		return *grp, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryCourseGroups(courseID int64) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]group.Group, 0)
	for _, grp := range repo.db.groups {
		if grp.CourseID == courseID {
			groups = append(groups, *grp)
		}
	}
	sortGroups(groups)
	return groups, nil
}

func (repo *groupRepository) QueryMemberGroups(courseID, userID int64) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]group.Group, 0)
	for _, mbr := range repo.db.memberships {
		if mbr.userID != userID {
			continue
		}
		if grp, ok := repo.db.groups[mbr.groupID]; ok && grp.CourseID == courseID {
			groups = append(groups, *grp)
		}
	}
	sortGroups(groups)
	return groups, nil
}

func sortGroups(groups []group.Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
}

func (repo *groupRepository) AddMember(groupID, userID int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, mbr := range repo.db.memberships {
		if mbr.groupID == groupID && mbr.userID == userID {
			return nil
		}
	}
	repo.db.memberships = append(repo.db.memberships, membership{groupID: groupID, userID: userID})
	return nil
}

func (repo *groupRepository) RemoveMember(groupID, userID int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, mbr := range repo.db.memberships {
		if mbr.groupID == groupID && mbr.userID == userID {
			repo.db.memberships = append(repo.db.memberships[:i], repo.db.memberships[i+1:]...)
			return nil
		}
	}
	return nil
}

func (repo *groupRepository) QueryMembers(groupID int64) ([]int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]int64, 0)
	for _, mbr := range repo.db.memberships {
		if mbr.groupID == groupID {
			ids = append(ids, mbr.userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *groupRepository) EnrolUser(courseID, userID int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, enr := range repo.db.enrolments {
		if enr.courseID == courseID && enr.userID == userID {
			return nil
		}
	}
	repo.db.enrolments = append(repo.db.enrolments, enrolment{courseID: courseID, userID: userID})
	return nil
}
