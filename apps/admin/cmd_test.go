package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registro/core/user"
	"github.com/trezcool/registro/storage/database/inmem"
	"github.com/trezcool/registro/testutil"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	return &commandLine{
		usrSvc: user.NewService(usrRepo),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var ran []string
	orig := runMigrationFunc
	runMigrationFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}
	defer func() { runMigrationFunc = orig }()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "grades", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, []string{"up", "up-to", "down", "status", "create"}, ran)
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []struct {
		cliTest
		pwd      string
		wantRole user.Role
	}{
		{cliTest: cliTest{name: "no args", args: []string{"adduser"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "bad role", args: []string{"adduser", "-username", "ana", "-role", "admin"}, wantErr: errHelp}, pwd: "x"},
		{cliTest: cliTest{name: "no password", args: []string{"adduser", "-username", "ana"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "create student", args: []string{"adduser", "-username", "Ana", "-email", "ana@registro.test"}}, pwd: "clave-1", wantRole: user.RoleStudent},
		{cliTest: cliTest{name: "update to teacher", args: []string{"adduser", "-username", "ana", "-role", "teacher"}}, pwd: "clave-2", wantRole: user.RoleTeacher},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			usr, err := cli.usrSvc.GetByUsername(ctx, "ana")
			require.NoError(t, err)
			assert.True(t, usr.IsActive)
			assert.Equal(t, "ana@registro.test", usr.Email, "email kept when not given")
			assert.NoError(t, usr.CheckPassword(tt.pwd))

			p, err := cli.usrSvc.GetPrincipal(ctx, usr.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, p.Role)
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset (case insensitive)", args: []string{"resetpassword", "-username", "AWE"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		var pwd string
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, pwd)
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}
