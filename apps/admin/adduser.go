package main

import (
	"time"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if isAdmin {
			usr.Roles = user.AllRoles
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(usr)
		return err
	}

	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	isActive := true
	_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	return err
}
