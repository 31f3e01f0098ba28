package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registro/core"
)

func Test_dsn(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          5432,
		Name:          "registro",
		User:          "app",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "root",
	}}

	u, err := url.Parse(dsn(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "app", u.User.Username())
	pwd, _ := u.User.Password()
	assert.Equal(t, "p@ss", pwd)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/registro", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "utc", u.Query().Get("timezone"))

	conf.Database.DisableTLS = true
	u, err = url.Parse(dsn("postgres", true, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.User.Username())
	assert.Equal(t, "/postgres", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestRun(t *testing.T) {
	origRun := gooseRunFunc
	defer func() { gooseRunFunc = origRun }()

	var gotCommand, gotDir string
	var gotArgs []string
	gooseRunFunc = func(_ context.Context, command string, _ *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		return nil
	}

	db := sqlx.NewDb(&sql.DB{}, "postgres")
	require.NoError(t, Run(context.Background(), db, "up-to", "1"))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, migrationsDir, gotDir)
	assert.Equal(t, []string{"1"}, gotArgs)

	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, "up", gotCommand)

	gooseRunFunc = func(context.Context, string, *sql.DB, string, ...string) error {
		return errors.New("no migrations")
	}
	err := Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running goose up: no migrations")
}
