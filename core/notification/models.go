package notification

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
)

type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceStudents Audience = "students"
	AudienceTeachers Audience = "teachers"
)

type AudienceChoice struct {
	Value Audience
	Label string
}

var Audiences = []AudienceChoice{
	{Value: AudienceAll, Label: "Todos"},
	{Value: AudienceStudents, Label: "Estudiantes"},
	{Value: AudienceTeachers, Label: "Docentes"},
}

func (a Audience) Label() string {
	for _, c := range Audiences {
		if c.Value == a {
			return c.Label
		}
	}
	return string(a)
}

// Roles returns the profile roles reached by the audience.
func (a Audience) Roles() []user.Role {
	switch a {
	case AudienceStudents:
		return []user.Role{user.RoleStudent}
	case AudienceTeachers:
		return []user.Role{user.RoleTeacher}
	default:
		return []user.Role{user.RoleTeacher, user.RoleStudent}
	}
}

type Notification struct {
	ID          int64      `db:"id"`
	CourseID    null.Int64 `db:"course_id"`
	CreatedByID int64      `db:"created_by_id"`
	Message     string     `db:"message"`
	Audience    Audience   `db:"audience"`
	CreatedAt   time.Time  `db:"created_at"`

	// read-only
	CourseName     null.String `db:"course_name"`
	AuthorUsername string      `db:"author_username"`
}

type NewNotification struct {
	CourseID int64    `form:"course" validate:"omitempty,min=1"`
	Message  string   `form:"message" validate:"required,notblank,max=255"`
	Audience Audience `form:"audience" validate:"omitempty,oneof=all students teachers"`
}

func (nn *NewNotification) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nn.Message = core.CleanString(nn.Message)
	if nn.Audience == "" {
		nn.Audience = AudienceAll
	}

	if err := validate.Struct(nn); err != nil {
		return err
	}
	if nn.CourseID != 0 {
		return svc.CheckCourse(ctx, nn.CourseID)
	}
	return nil
}

// QueryFilter applies AND operation on the set fields.
type QueryFilter struct {
	CreatedByID int64
	Audiences   []Audience
	Limit       int
}

// RecipientFilter selects active users with an email whose role is in Roles.
// With CourseID set, only the course teacher and its enrolled students match.
type RecipientFilter struct {
	Roles         []user.Role
	CourseID      int64
	ExcludeUserID int64
}
