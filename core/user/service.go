package user

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registro/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound           = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrUsernameExists     = errors.New("Ya existe un usuario con este nombre.")
	ErrInvalidCredentials = errors.New("Usuario o contraseña incorrectos.")
	ErrInactive           = errors.New("Esta cuenta está inactiva.")
	ErrInvalidRole        = errors.New("invalid role")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// CreateUserWithProfile creates usr and its Profile atomically: on error neither is stored.
		CreateUserWithProfile(ctx context.Context, usr User, role Role) (User, Profile, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// SaveProfile inserts the profile or updates the role of the user's existing one.
		SaveProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfile(ctx context.Context, userID int64) (Profile, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, username string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, username, password string) (User, error)
		GetByID(ctx context.Context, id int64) (User, error)
		GetByUsername(ctx context.Context, username string) (User, error)
		GetPrincipal(ctx context.Context, id int64) (Principal, error)
		AssignRole(ctx context.Context, userID int64, role Role) (Profile, error)
		Save(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclUsers...); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates the User together with its Profile of the chosen role.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if !nu.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	usr := User{
		Username:   nu.Username,
		Email:      nu.Email,
		IsActive:   true,
		DateJoined: nowFunc().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, _, err := svc.repo.CreateUserWithProfile(ctx, usr, nu.Role)
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}
	usr.LastLogin = null.TimeFrom(nowFunc().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

// GetPrincipal returns the Principal of an active user; a missing Profile yields RoleNone.
func (svc *Service) GetPrincipal(ctx context.Context, id int64) (Principal, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	if !usr.IsActive {
		return Principal{}, ErrInactive
	}
	prof, err := svc.repo.GetProfile(ctx, usr.ID)
	switch err {
	case nil:
		return NewPrincipal(usr, prof.Role), nil
	case ErrProfileNotFound:
		return NewPrincipal(usr, RoleNone), nil
	default:
		return Principal{}, err
	}
}

func (svc *Service) AssignRole(ctx context.Context, userID int64, role Role) (Profile, error) {
	if !role.Valid() {
		return Profile{}, ErrInvalidRole
	}
	return svc.repo.SaveProfile(ctx, Profile{UserID: userID, Role: role})
}

// Save creates usr when it has no ID yet, updates it otherwise.
func (svc *Service) Save(ctx context.Context, usr User) (User, error) {
	if usr.ID == 0 {
		if usr.DateJoined.IsZero() {
			usr.DateJoined = nowFunc().UTC()
		}
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateUser(ctx, usr)
}
