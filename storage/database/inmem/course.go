package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/registro/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (repo *courseRepository) checkCode(code string) error {
	for _, c := range repo.db.courses {
		if c.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkCode(code)
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkCode(c.Code); err != nil {
		return course.Course{}, err
	}
	c.ID = repo.db.nextID("course")
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	c, ok := repo.db.courses[filter.ID]
	if !ok || (filter.TeacherID != 0 && c.TeacherID != filter.TeacherID) {
		return course.Course{}, course.ErrNotFound
	}
	return *c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if filter.TeacherID != 0 && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Name != "" && !containsFold(c.Name, filter.Name) {
			continue
		}
		if filter.Level != "" && !containsFold(c.Level, filter.Level) {
			continue
		}
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) EnrollStudent(_ context.Context, enr course.Enrollment) (course.Enrollment, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			existing := *e
			existing.StudentUsername = repo.db.username(e.StudentID)
			return existing, false, nil
		}
	}
	if _, ok := repo.db.courses[enr.CourseID]; !ok {
		return course.Enrollment{}, false, course.ErrNotFound
	}
	enr.ID = repo.db.nextID("enrollment")
	repo.db.enrollments[enr.ID] = &enr

	enr.StudentUsername = repo.db.username(enr.StudentID)
	return enr, true, nil
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, courseID int64) ([]course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			enr := *e
			enr.StudentUsername = repo.db.username(e.StudentID)
			enrollments = append(enrollments, enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}

func (repo *courseRepository) EnrolledCourseIDs(_ context.Context, studentID int64) ([]int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]int64, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			ids = append(ids, e.CourseID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *courseRepository) MarkAttendance(_ context.Context, courseID int64, date time.Time, marks []course.AttendanceMark) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return course.ErrNotFound
	}
	date = truncateDate(date)

	for _, mark := range marks {
		var found bool
		for _, a := range repo.db.attendance {
			if a.CourseID == courseID && a.StudentID == mark.StudentID && a.SessionDate.Equal(date) {
				a.Status = mark.Status
				found = true
				break
			}
		}
		if !found {
			id := repo.db.nextID("attendance")
			repo.db.attendance[id] = &course.Attendance{
				ID:          id,
				CourseID:    courseID,
				StudentID:   mark.StudentID,
				SessionDate: date,
				Status:      mark.Status,
			}
		}
	}
	return nil
}

func (repo *courseRepository) QueryAttendance(_ context.Context, courseID int64, limit int) ([]course.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]course.Attendance, 0)
	for _, a := range repo.db.attendance {
		if a.CourseID == courseID {
			rec := *a
			rec.StudentUsername = repo.db.username(a.StudentID)
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].SessionDate.Equal(records[j].SessionDate) {
			return records[i].SessionDate.After(records[j].SessionDate)
		}
		return records[i].ID > records[j].ID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// truncateDate keeps the calendar date only, like a DATE column.
func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
