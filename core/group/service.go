package group

import (
	"time"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("group not found")
	ErrModuleNotFound = errors.New("course module not found")
	ErrCourseNotFound = errors.New("course not found")
)

type (
	Repository interface {
		GetCourseByID(id int64) (Course, error)
		GetCourseModuleByID(id int64) (CourseModule, error)
		CreateGroup(grp Group) (Group, error)
		GetGroupByID(id int64) (Group, error)
		// QueryCourseGroups returns all groups of a course ordered by name.
		QueryCourseGroups(courseID int64) ([]Group, error)
		// QueryMemberGroups returns the course groups a user belongs to, ordered by name.
		QueryMemberGroups(courseID, userID int64) ([]Group, error)
		AddMember(groupID, userID int64) error
		RemoveMember(groupID, userID int64) error
		// QueryMembers returns the user IDs belonging to a group.
		QueryMembers(groupID int64) ([]int64, error)
		EnrolUser(courseID, userID int64) error
	}

	ServiceInterface interface {
		Create(ng NewGroup) (Group, error)
		GetByID(id int64) (Group, error)
		GetCourseModule(id int64) (CourseModule, error)
		CourseGroups(courseID int64) ([]Group, error)
		// AllowedGroups computes the groups a user may see in an activity.
		AllowedGroups(cm CourseModule, usr user.User) ([]Group, error)
		AddMember(groupID, userID int64) error
		RemoveMember(groupID, userID int64) error
		Members(groupID int64) ([]int64, error)
		Enrol(courseID, userID int64) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ng NewGroup) (Group, error) {
	now := time.Now().UTC()
	grp := Group{
		CourseID:  ng.CourseID,
		Name:      core.CleanString(ng.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateGroup(grp)
}

func (svc *service) GetByID(id int64) (Group, error) {
	return svc.repo.GetGroupByID(id)
}

func (svc *service) GetCourseModule(id int64) (CourseModule, error) {
	return svc.repo.GetCourseModuleByID(id)
}

func (svc *service) CourseGroups(courseID int64) ([]Group, error) {
	return svc.repo.QueryCourseGroups(courseID)
}

// AllowedGroups computes the set of groups visible to usr in the activity cm:
// no group mode -> nil; visible mode or the access-all-groups capability ->
// all course groups; separate mode -> only the groups usr belongs to.
func (svc *service) AllowedGroups(cm CourseModule, usr user.User) ([]Group, error) {
	switch {
	case cm.GroupMode == ModeNone:
		return nil, nil
	case cm.GroupMode == ModeVisible || usr.CanAccessAllGroups():
		return svc.repo.QueryCourseGroups(cm.CourseID)
	default:
		return svc.repo.QueryMemberGroups(cm.CourseID, usr.ID)
	}
}

func (svc *service) AddMember(groupID, userID int64) error {
	if _, err := svc.repo.GetGroupByID(groupID); err != nil {
		return err
	}
	return svc.repo.AddMember(groupID, userID)
}

func (svc *service) RemoveMember(groupID, userID int64) error {
	return svc.repo.RemoveMember(groupID, userID)
}

func (svc *service) Members(groupID int64) ([]int64, error) {
	return svc.repo.QueryMembers(groupID)
}

func (svc *service) Enrol(courseID, userID int64) error {
	if _, err := svc.repo.GetCourseByID(courseID); err != nil {
		return err
	}
	return svc.repo.EnrolUser(courseID, userID)
}
