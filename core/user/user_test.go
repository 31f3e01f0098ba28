package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
	"github.com/trezcool/registro/storage/database/inmem"
	"github.com/trezcool/registro/testutil"
)

func newService(t *testing.T) (*user.Service, user.Repository) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo), repo
}

func TestNewUser_Validate(t *testing.T) {
	validate, translator := testutil.NewValidator()
	svc, repo := newService(t)
	testutil.CreateUser(t, repo, "taken", "", user.RoleStudent, true)

	nu := func(uname, email, pwd1, pwd2 string, role user.Role) user.NewUser {
		return user.NewUser{Username: uname, Email: email, Password: pwd1, PasswordConfirm: pwd2, Role: role}
	}
	pwd := testutil.Password

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
		wantMsg   string
	}{
		{name: "ok", nu: nu("ana", "ana@registro.test", pwd, pwd, user.RoleStudent)},
		{name: "ok without email", nu: nu("ana", "", pwd, pwd, user.RoleTeacher)},
		{name: "missing username", nu: nu(" ", "", pwd, pwd, user.RoleStudent), wantField: "username"},
		{name: "bad username", nu: nu("ana pérez", "", pwd, pwd, user.RoleStudent), wantField: "username"},
		{name: "bad email", nu: nu("ana", "ana@", pwd, pwd, user.RoleStudent), wantField: "email"},
		{name: "missing role", nu: nu("ana", "", pwd, pwd, ""), wantField: "role"},
		{name: "unknown role", nu: nu("ana", "", pwd, pwd, "admin"), wantField: "role"},
		{
			name: "mismatch", nu: nu("ana", "", pwd, pwd+"x", user.RoleStudent),
			wantField: "password2", wantMsg: "Los dos campos de contraseña no coinciden.",
		},
		{
			name: "too short", nu: nu("ana", "", "a1-b2", "a1-b2", user.RoleStudent),
			wantField: "password1", wantMsg: "La contraseña es demasiado corta. Debe contener al menos 8 caracteres.",
		},
		{
			name: "all numeric", nu: nu("ana", "", "4815162342", "4815162342", user.RoleStudent),
			wantField: "password1", wantMsg: "La contraseña no puede ser completamente numérica.",
		},
		{
			name: "similar to username", nu: nu("gabriel.garcia", "", "gabriel.garcia1", "gabriel.garcia1", user.RoleStudent),
			wantField: "password1", wantMsg: "La contraseña es demasiado similar a los datos del usuario.",
		},
		{
			name: "similar to email", nu: nu("gg", "marquez.gabo@registro.test", "gabo.marquez", "gabo.marquez", user.RoleStudent),
			wantField: "password1", wantMsg: "La contraseña es demasiado similar a los datos del usuario.",
		},
		{
			name: "common", nu: nu("ana", "", "Password123", "Password123", user.RoleStudent),
			wantField: "password1", wantMsg: "La contraseña es demasiado común.",
		},
		{name: "username taken", nu: nu(" TAKEN ", "", pwd, pwd, user.RoleStudent), wantField: "username", wantMsg: user.ErrUsernameExists.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(context.Background(), validate, svc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var fldErrs map[string]string
			switch vErr := err.(type) {
			case validator.ValidationErrors:
				fldErrs = make(map[string]string)
				for _, fe := range vErr {
					fldErrs[fe.Field()] = fe.Translate(translator)
				}
			case *core.ValidationError:
				fldErrs = vErr.FieldErrors()
			default:
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			require.Contains(t, fldErrs, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, fldErrs[tt.wantField])
			}
		})
	}
}

func TestService_Register(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.NewUser{Username: "ana", Email: "ana@registro.test", Password: testutil.Password, Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.False(t, usr.DateJoined.IsZero())
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	prof, err := repo.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, prof.Role)

	_, err = svc.Register(ctx, user.NewUser{Username: "ana", Password: testutil.Password, Role: user.RoleStudent})
	assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))
}

func TestService_Register_noUserWithoutProfile(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, user.NewUser{Username: "ana", Password: testutil.Password, Role: "admin"})
	assert.Equal(t, user.ErrInvalidRole, err)
	_, err = svc.GetByUsername(ctx, "ana")
	assert.Equal(t, user.ErrNotFound, err)

	// the repository refuses to store a user whose profile cannot be stored
	_, _, err = repo.CreateUserWithProfile(ctx, user.User{Username: "ana"}, user.RoleNone)
	assert.Equal(t, user.ErrInvalidRole, err)
	_, err = svc.GetByUsername(ctx, "ana")
	assert.Equal(t, user.ErrNotFound, err)

	// the username stays free
	usr, err := svc.Register(ctx, user.NewUser{Username: "ana", Password: testutil.Password, Role: user.RoleStudent})
	require.NoError(t, err)
	p, err := svc.GetPrincipal(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, p.Role)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	active := testutil.CreateUser(t, repo, "ana", "", user.RoleStudent, true)
	testutil.CreateUser(t, repo, "luis", "", user.RoleStudent, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown", uname: "nadie", pwd: testutil.Password, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", uname: "ana", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "inactive", uname: "luis", pwd: testutil.Password, wantErr: user.ErrInactive},
		{name: "ok", uname: " ANA ", pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, usr.ID)
			assert.True(t, usr.LastLogin.Valid)
		})
	}
}

func TestService_GetPrincipal(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	teacher := testutil.CreateUser(t, repo, "profe", "profe@registro.test", user.RoleTeacher, true)
	norole := testutil.CreateUser(t, repo, "sinrol", "", user.RoleNone, true)
	inactive := testutil.CreateUser(t, repo, "dormido", "", user.RoleStudent, false)

	p, err := svc.GetPrincipal(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Principal{ID: teacher.ID, Username: "profe", Email: "profe@registro.test", Role: user.RoleTeacher}, p)
	assert.True(t, p.IsTeacher())
	assert.False(t, p.IsStudent())

	p, err = svc.GetPrincipal(ctx, norole.ID)
	require.NoError(t, err)
	assert.True(t, p.IsAuthenticated())
	assert.False(t, p.HasProfile())
	assert.False(t, p.HasRole(user.RoleNone), "no profile never matches a role")

	_, err = svc.GetPrincipal(ctx, inactive.ID)
	assert.Equal(t, user.ErrInactive, err)

	_, err = svc.GetPrincipal(ctx, 99)
	assert.Equal(t, user.ErrNotFound, err)

	assert.False(t, user.Principal{}.IsAuthenticated())
}

func TestService_AssignRole(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "ana", "", user.RoleNone, true)

	_, err := svc.AssignRole(ctx, usr.ID, "admin")
	assert.Equal(t, user.ErrInvalidRole, err)

	_, err = svc.AssignRole(ctx, usr.ID, user.RoleStudent)
	require.NoError(t, err)
	_, err = svc.AssignRole(ctx, usr.ID, user.RoleTeacher)
	require.NoError(t, err)

	p, err := svc.GetPrincipal(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, p.Role, "one profile per user")
}
