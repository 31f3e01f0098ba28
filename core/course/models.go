package course

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registro/core"
)

type Course struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Code        string `db:"code"`
	Level       string `db:"level"`
	Description string `db:"description"`
	TeacherID   int64  `db:"teacher_id"`
}

// Enrollment links a student to a course with the identity captured when enrolling.
type Enrollment struct {
	ID         int64     `db:"id"`
	StudentID  int64     `db:"student_id"`
	CourseID   int64     `db:"course_id"`
	FullName   string    `db:"full_name"`
	NationalID string    `db:"national_id"`
	EnrolledAt time.Time `db:"enrolled_at"`

	StudentUsername string `db:"student_username"` // read-only
}

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

type StatusChoice struct {
	Value AttendanceStatus
	Label string
}

var Statuses = []StatusChoice{
	{Value: StatusPresent, Label: "Presente"},
	{Value: StatusAbsent, Label: "Ausente"},
}

func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

func (s AttendanceStatus) Label() string {
	for _, c := range Statuses {
		if c.Value == s {
			return c.Label
		}
	}
	return string(s)
}

type Attendance struct {
	ID          int64            `db:"id"`
	CourseID    int64            `db:"course_id"`
	StudentID   int64            `db:"student_id"`
	SessionDate time.Time        `db:"session_date"`
	Status      AttendanceStatus `db:"status"`

	StudentUsername string `db:"student_username"` // read-only
}

// AttendanceMark is the status given to one student for a session.
type AttendanceMark struct {
	StudentID int64
	Status    AttendanceStatus
}

type NewCourse struct {
	Name        string `form:"name" validate:"required,notblank,max=150"`
	Code        string `form:"code" validate:"required,notblank,max=20"`
	Level       string `form:"level" validate:"required,notblank,max=50"`
	Description string `form:"description"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	nc.Level = core.CleanString(nc.Level)
	nc.Description = core.CleanString(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code)
}

type NewEnrollment struct {
	FullName   string `form:"full_name" validate:"required,notblank,max=150"`
	NationalID string `form:"national_id" validate:"required,notblank,max=20"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.FullName = core.CleanString(ne.FullName)
	ne.NationalID = core.CleanString(ne.NationalID)
	return validate.Struct(ne)
}

// StatusField is the form field holding the attendance status of a student.
func StatusField(studentID int64) string {
	return fmt.Sprintf("status_%d", studentID)
}

// NewAttendanceMarks reads one status per enrolled student from formValue.
// A missing status means present; any other unknown value fails the whole batch.
func NewAttendanceMarks(enrollments []Enrollment, formValue func(string) string) ([]AttendanceMark, error) {
	marks := make([]AttendanceMark, 0, len(enrollments))
	var fldErrs []core.FieldError

	for _, enr := range enrollments {
		field := StatusField(enr.StudentID)
		status := AttendanceStatus(core.CleanString(formValue(field)))
		if status == "" {
			status = StatusPresent
		}
		if !status.Valid() {
			fldErrs = append(fldErrs, core.FieldError{Field: field, Error: ErrInvalidStatus.Error()})
			continue
		}
		marks = append(marks, AttendanceMark{StudentID: enr.StudentID, Status: status})
	}

	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(ErrInvalidStatus, fldErrs...)
	}
	return marks, nil
}

type GetFilter struct {
	ID        int64
	TeacherID int64 // when set, only a course owned by this teacher matches
}

// QueryFilter applies AND operation on the set fields.
// Name and Level do a case-insensitive substring match.
type QueryFilter struct {
	TeacherID int64
	Name      string
	Level     string
}
