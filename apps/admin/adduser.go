package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
)

// addUser updates or creates an active user.User, then assigns its role.
func (cli *commandLine) addUser(uname, email, pwd string, role user.Role) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	switch errors.Cause(err) {
	case nil:
		if email != "" {
			usr.Email = email
		}
	case user.ErrNotFound:
		usr = user.User{
			Username: uname,
			Email:    email,
		}
	default:
		return err
	}

	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Save(ctx, usr); err != nil {
		return errors.Wrap(err, "saving user")
	}

	_, err = cli.usrSvc.AssignRole(ctx, usr.ID, role)
	return errors.Wrap(err, "assigning role")
}
