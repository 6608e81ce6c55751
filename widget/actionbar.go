package widget

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/user"
)

type (
	groupOption struct {
		ID     int64
		Name   string
		Active bool
	}

	groupSelectorData struct {
		Label           string
		ModuleID        int64
		AllParticipants bool // include the "All participants" option
		Groups          []groupOption
	}

	userOption struct {
		ID       int64
		FullName string
		Email    string
	}

	userSearchData struct {
		CourseID int64
		Search   string
		Users    []userOption
	}

	initial struct {
		Letter string
		Active bool
	}

	initialsBarData struct {
		Label   string
		Param   string
		AllURL  bool // whether the "All" reset entry is active
		Letters []initial
	}
)

// GroupSelector renders the labelled group dropdown trigger plus searchable
// body for an activity. When the activity has no group mode it emits nothing.
func (r *Renderer) GroupSelector(cm group.CourseModule, usr user.User, activeGroupID int64) (string, error) {
	if cm.GroupMode == group.ModeNone {
		return "", nil
	}

	groups, err := r.groupSvc.AllowedGroups(cm, usr)
	if err != nil {
		return "", errors.Wrap(err, "computing allowed groups")
	}

	label := "Separate groups"
	if cm.GroupMode == group.ModeVisible {
		label = "Visible groups"
	}

	data := groupSelectorData{
		Label:           label,
		ModuleID:        cm.ID,
		AllParticipants: cm.GroupMode == group.ModeVisible || usr.CanAccessAllGroups(),
	}
	data.Groups = make([]groupOption, 0, len(groups))
	for _, grp := range groups {
		data.Groups = append(data.Groups, groupOption{
			ID:     grp.ID,
			Name:   grp.Name,
			Active: grp.ID == activeGroupID,
		})
	}
	return r.render("group_selector", data)
}

// UserSearchCombobox renders the participant search combobox with the users
// matching the current search.
func (r *Renderer) UserSearchCombobox(courseID int64, search string) (string, error) {
	users, err := r.usrSvc.Query(
		&user.QueryFilter{Search: search, CourseID: courseID},
		[]core.DBOrdering{{Field: "last_name", Ascending: true}},
	)
	if err != nil {
		return "", errors.Wrap(err, "querying users")
	}

	data := userSearchData{CourseID: courseID, Search: search}
	data.Users = make([]userOption, 0, len(users))
	for _, usr := range users {
		data.Users = append(data.Users, userOption{
			ID:       usr.ID,
			FullName: usr.FullName(),
			Email:    usr.Email,
		})
	}
	return r.render("user_search", data)
}

// InitialsBar renders one initials filter row. param is the query parameter
// the bar controls ("first_initial" or "last_initial"); active is the
// currently selected letter, empty for all.
func (r *Renderer) InitialsBar(label, param, active string) (string, error) {
	active = strings.ToUpper(core.CleanString(active))

	data := initialsBarData{
		Label:  label,
		Param:  param,
		AllURL: active == "",
	}
	for c := 'A'; c <= 'Z'; c++ {
		letter := string(c)
		data.Letters = append(data.Letters, initial{
			Letter: letter,
			Active: letter == active,
		})
	}
	return r.render("initials_bar", data)
}
