package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
)

const recentAttendanceLimit = 20

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound      = errors.New("course not found")
	ErrCodeExists    = errors.New("Ya existe un curso con este código.")
	ErrInvalidStatus = errors.New("Escoge una opción válida.")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		// CreateCourse returns ErrCodeExists when the code is taken.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		// QueryCourses returns the matching courses ordered by id.
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)

		// EnrollStudent inserts the enrollment unless (student, course) already exists,
		// in which case the stored one is returned untouched and created is false.
		EnrollStudent(ctx context.Context, enr Enrollment) (_ Enrollment, created bool, _ error)
		QueryEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error)
		EnrolledCourseIDs(ctx context.Context, studentID int64) ([]int64, error)

		// MarkAttendance upserts every mark for (course, student, date) in one transaction.
		MarkAttendance(ctx context.Context, courseID int64, date time.Time, marks []AttendanceMark) error
		// QueryAttendance returns the newest records of the course first.
		QueryAttendance(ctx context.Context, courseID int64, limit int) ([]Attendance, error)
	}

	ServiceInterface interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		Create(ctx context.Context, teacherID int64, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id int64) (Course, error)
		GetOwned(ctx context.Context, id, teacherID int64) (Course, error)
		Query(ctx context.Context, p user.Principal, name, level string) ([]Course, error)
		Enroll(ctx context.Context, courseID, studentID int64, ne NewEnrollment) (Enrollment, bool, error)
		Enrollments(ctx context.Context, courseID int64) ([]Enrollment, error)
		EnrolledCourseIDs(ctx context.Context, studentID int64) ([]int64, error)
		MarkAttendance(ctx context.Context, courseID int64, date time.Time, marks []AttendanceMark) error
		RecentAttendance(ctx context.Context, courseID int64) ([]Attendance, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Today returns the current date in loc, at midnight UTC.
func Today(loc *time.Location) time.Time {
	y, m, d := nowFunc().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func codeExistsErr() error {
	return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
}

func (svc *Service) CheckCodeUniqueness(ctx context.Context, code string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code); err != nil {
		if err == ErrCodeExists {
			return codeExistsErr()
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, teacherID int64, nc NewCourse) (Course, error) {
	c, err := svc.repo.CreateCourse(ctx, Course{
		Name:        nc.Name,
		Code:        nc.Code,
		Level:       nc.Level,
		Description: nc.Description,
		TeacherID:   teacherID,
	})
	if err == ErrCodeExists {
		return Course{}, codeExistsErr()
	}
	return c, err
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

// GetOwned returns the course only if teacherID owns it, ErrNotFound otherwise.
func (svc *Service) GetOwned(ctx context.Context, id, teacherID int64) (Course, error) {
	if teacherID == 0 {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourse(ctx, GetFilter{ID: id, TeacherID: teacherID})
}

// Query lists the courses visible to p: teachers see their own, everyone else sees all.
func (svc *Service) Query(ctx context.Context, p user.Principal, name, level string) ([]Course, error) {
	filter := QueryFilter{
		Name:  core.CleanString(name),
		Level: core.CleanString(level),
	}
	if p.IsTeacher() {
		filter.TeacherID = p.ID
	}
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *Service) Enroll(ctx context.Context, courseID, studentID int64, ne NewEnrollment) (Enrollment, bool, error) {
	return svc.repo.EnrollStudent(ctx, Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		FullName:   ne.FullName,
		NationalID: ne.NationalID,
		EnrolledAt: nowFunc().UTC(),
	})
}

func (svc *Service) Enrollments(ctx context.Context, courseID int64) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, courseID)
}

func (svc *Service) EnrolledCourseIDs(ctx context.Context, studentID int64) ([]int64, error) {
	return svc.repo.EnrolledCourseIDs(ctx, studentID)
}

func (svc *Service) MarkAttendance(ctx context.Context, courseID int64, date time.Time, marks []AttendanceMark) error {
	if len(marks) == 0 {
		return nil
	}
	return svc.repo.MarkAttendance(ctx, courseID, date, marks)
}

func (svc *Service) RecentAttendance(ctx context.Context, courseID int64) ([]Attendance, error) {
	return svc.repo.QueryAttendance(ctx, courseID, recentAttendanceLimit)
}
