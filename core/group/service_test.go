package group_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/user"
	inmemdb "github.com/BruceGoodGuy/moodle/storage/database/inmem"
)

func TestService_AllowedGroups(t *testing.T) {
	db := inmemdb.NewDB()
	svc := group.NewService(inmemdb.NewGroupRepository(db))

	crs := db.AddCourse(group.Course{ShortName: "ANAT101", FullName: "Anatomy"})

	red, err := svc.Create(group.NewGroup{CourseID: crs.ID, Name: "Red"})
	require.NoError(t, err)
	_, err = svc.Create(group.NewGroup{CourseID: crs.ID, Name: "Blue"})
	require.NoError(t, err)

	student := user.User{ID: 100, Roles: []string{user.RoleStudent}}
	teacher := user.User{ID: 101, Roles: []string{user.RoleTeacher}}
	require.NoError(t, svc.AddMember(red.ID, student.ID))

	cm := func(mode group.Mode) group.CourseModule {
		return group.CourseModule{ID: 1, CourseID: crs.ID, GroupMode: mode}
	}
	names := func(groups []group.Group) []string {
		res := make([]string, 0, len(groups))
		for _, grp := range groups {
			res = append(res, grp.Name)
		}
		return res
	}

	tests := []struct {
		name string
		cm   group.CourseModule
		usr  user.User
		want []string
	}{
		{name: "no group mode", cm: cm(group.ModeNone), usr: student, want: nil},
		{name: "no group mode for teacher", cm: cm(group.ModeNone), usr: teacher, want: nil},
		{name: "visible groups", cm: cm(group.ModeVisible), usr: student, want: []string{"Blue", "Red"}},
		{name: "separate groups: member groups only", cm: cm(group.ModeSeparate), usr: student, want: []string{"Red"}},
		{name: "separate groups: teacher sees all", cm: cm(group.ModeSeparate), usr: teacher, want: []string{"Blue", "Red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := svc.AllowedGroups(tt.cm, tt.usr)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, groups)
				return
			}
			assert.Equal(t, tt.want, names(groups))
		})
	}
}

func TestService_Members(t *testing.T) {
	db := inmemdb.NewDB()
	svc := group.NewService(inmemdb.NewGroupRepository(db))

	crs := db.AddCourse(group.Course{ShortName: "ANAT101", FullName: "Anatomy"})
	grp, err := svc.Create(group.NewGroup{CourseID: crs.ID, Name: "Red"})
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(grp.ID, 7))
	require.NoError(t, svc.AddMember(grp.ID, 3))
	require.NoError(t, svc.AddMember(grp.ID, 3)) // idempotent

	members, err := svc.Members(grp.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, members)

	require.NoError(t, svc.RemoveMember(grp.ID, 3))
	members, err = svc.Members(grp.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, members)

	// unknown group
	err = svc.AddMember(999, 7)
	assert.ErrorIs(t, err, group.ErrNotFound)
}

func TestService_Enrol(t *testing.T) {
	db := inmemdb.NewDB()
	svc := group.NewService(inmemdb.NewGroupRepository(db))

	crs := db.AddCourse(group.Course{ShortName: "ANAT101", FullName: "Anatomy"})

	require.NoError(t, svc.Enrol(crs.ID, 7))
	require.NoError(t, svc.Enrol(crs.ID, 7)) // idempotent

	err := svc.Enrol(999, 7)
	assert.ErrorIs(t, err, group.ErrCourseNotFound)
}
