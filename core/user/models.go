package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/registro/core"
)

// Role is the role tag carried by a Profile.
type Role string

// Roles
const (
	RoleNone    Role = "" // user without Profile
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type RoleChoice struct {
	Value Role
	Label string
}

var Roles = []RoleChoice{
	{Value: RoleTeacher, Label: "Docente"},
	{Value: RoleStudent, Label: "Estudiante"},
}

func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

func (r Role) Label() string {
	for _, c := range Roles {
		if c.Value == r {
			return c.Label
		}
	}
	return "Sin rol"
}

type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password"`
	IsActive     bool      `db:"is_active"`
	DateJoined   time.Time `db:"date_joined"` // UTC
	LastLogin    null.Time `db:"last_login"`  // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

type Profile struct {
	ID     int64 `db:"id"`
	UserID int64 `db:"user_id"`
	Role   Role  `db:"role"`
}

// Principal is the authenticated caller of a request.
// Role is RoleNone when the user has no Profile.
type Principal struct {
	ID       int64
	Username string
	Email    string
	Role     Role
}

func NewPrincipal(usr User, role Role) Principal {
	return Principal{ID: usr.ID, Username: usr.Username, Email: usr.Email, Role: role}
}

func (p Principal) IsAuthenticated() bool { return p.ID != 0 }
func (p Principal) HasProfile() bool      { return p.Role != RoleNone }
func (p Principal) HasRole(r Role) bool   { return p.Role != RoleNone && p.Role == r }
func (p Principal) IsTeacher() bool       { return p.HasRole(RoleTeacher) }
func (p Principal) IsStudent() bool       { return p.HasRole(RoleStudent) }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"omitempty,max=254,email"`
	Password        string `form:"password1" validate:"required"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
	Role            Role   `form:"role" validate:"required,oneof=teacher student"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username)
}

type GetFilter struct {
	ID       int64
	Username string
}
