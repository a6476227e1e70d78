package main

import (
	"context"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/user"
)

func (cli *commandLine) addUser(uname, email, pwd string) error {
	ctx := context.Background()
	_, err := cli.usrSvc.Register(ctx, user.NewUser{
		Username: core.CleanString(uname, true /* lower */),
		Email:    core.CleanString(email, true /* lower */),
		Password: pwd,
	})
	return err
}
