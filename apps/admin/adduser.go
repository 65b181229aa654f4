package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

// addUser updates or creates an active user.User with the given role.
func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	if !user.IsValidRole(role) {
		return errors.Errorf("%q: no such role", role)
	}

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, lookup)
	exists := err == nil
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{Username: uname, Email: email, CreatedAt: now}
	}
	if name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = lookup
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
