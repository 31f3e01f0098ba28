package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
)

const (
	courseColumns = "id, name, code, level, description, teacher_id"
	dateLayout    = "2006-01-02"
)

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	q, args, err := psql.Select("1").From("course").Where(sq.Eq{"code": code}).Limit(1).
		Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q, args, err := psql.Insert("course").
		Columns("name", "code", "level", "description", "teacher_id").
		Values(c.Name, c.Code, c.Level, c.Description, c.TeacherID).
		Suffix("RETURNING " + courseColumns).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}

	var created course.Course
	if err = repo.db.GetContext(ctx, &created, q, args...); err != nil {
		if isUniqueViolation(err, "course_code_key") {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return created, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	query := psql.Select(courseColumns).From("course").Where(sq.Eq{"id": filter.ID})
	if filter.TeacherID != 0 {
		query = query.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	q, args, err := query.ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}

	var c course.Course
	if err = repo.db.GetContext(ctx, &c, q, args...); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	query := psql.Select(courseColumns).From("course").OrderBy("id")
	if filter.TeacherID != 0 {
		query = query.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	if filter.Name != "" {
		query = query.Where(ilike("name", filter.Name))
	}
	if filter.Level != "" {
		query = query.Where(ilike("level", filter.Level))
	}
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	courses := make([]course.Course, 0)
	if err = repo.db.SelectContext(ctx, &courses, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return courses, nil
}

func enrollmentQuery() sq.SelectBuilder {
	return psql.Select(
		"e.id", "e.student_id", "e.course_id", "e.full_name", "e.national_id", "e.enrolled_at",
		"u.username AS student_username",
	).From("enrollment e").Join("app_user u ON u.id = e.student_id")
}

func (repo *courseRepository) EnrollStudent(ctx context.Context, enr course.Enrollment) (course.Enrollment, bool, error) {
	q, args, err := psql.Insert("enrollment").
		Columns("student_id", "course_id", "full_name", "national_id", "enrolled_at").
		Values(enr.StudentID, enr.CourseID, enr.FullName, enr.NationalID, enr.EnrolledAt).
		Suffix("ON CONFLICT (student_id, course_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return course.Enrollment{}, false, errors.Wrap(err, "building query")
	}

	var id int64
	created := true
	if err = repo.db.GetContext(ctx, &id, q, args...); err != nil {
		if errors.Cause(err) != sql.ErrNoRows {
			return course.Enrollment{}, false, errors.Wrap(err, "inserting enrollment")
		}
		created = false
	}

	q, args, err = enrollmentQuery().
		Where(sq.Eq{"e.student_id": enr.StudentID, "e.course_id": enr.CourseID}).
		ToSql()
	if err != nil {
		return course.Enrollment{}, false, errors.Wrap(err, "building query")
	}
	var stored course.Enrollment
	if err = repo.db.GetContext(ctx, &stored, q, args...); err != nil {
		return course.Enrollment{}, false, trapNoRowsErr(err, course.ErrNotFound, "selecting enrollment")
	}
	return stored, created, nil
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID int64) ([]course.Enrollment, error) {
	q, args, err := enrollmentQuery().Where(sq.Eq{"e.course_id": courseID}).OrderBy("e.id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	enrollments := make([]course.Enrollment, 0)
	if err = repo.db.SelectContext(ctx, &enrollments, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	return enrollments, nil
}

func (repo *courseRepository) EnrolledCourseIDs(ctx context.Context, studentID int64) ([]int64, error) {
	q, args, err := psql.Select("course_id").From("enrollment").
		Where(sq.Eq{"student_id": studentID}).OrderBy("course_id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	ids := make([]int64, 0)
	if err = repo.db.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrolled courses")
	}
	return ids, nil
}

func (repo *courseRepository) MarkAttendance(ctx context.Context, courseID int64, date time.Time, marks []course.AttendanceMark) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sessionDate := date.Format(dateLayout)
	for _, mark := range marks {
		q, args, err := psql.Insert("attendance").
			Columns("course_id", "student_id", "session_date", "status").
			Values(courseID, mark.StudentID, sessionDate, mark.Status).
			Suffix("ON CONFLICT (course_id, student_id, session_date) DO UPDATE SET status = EXCLUDED.status").
			ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrapf(err, "marking attendance of student %d", mark.StudentID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing attendance")
}

func (repo *courseRepository) QueryAttendance(ctx context.Context, courseID int64, limit int) ([]course.Attendance, error) {
	query := psql.Select(
		"a.id", "a.course_id", "a.student_id", "a.session_date", "a.status",
		"u.username AS student_username",
	).From("attendance a").
		Join("app_user u ON u.id = a.student_id").
		Where(sq.Eq{"a.course_id": courseID}).
		OrderBy("a.session_date DESC", "a.id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	records := make([]course.Attendance, 0)
	if err = repo.db.SelectContext(ctx, &records, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	return records, nil
}
