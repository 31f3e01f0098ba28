// Package dashboard aggregates the read-only views of the home page and the course detail page.
package dashboard

import (
	"context"
	"errors"

	perrors "github.com/pkg/errors"

	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
)

const (
	notificationsLimit = 5
	pendingLimit       = 5
)

var ErrNoProfile = errors.New("Asigna un rol para continuar.")

type (
	Dashboard struct {
		Role          user.Role
		Courses       []course.Course
		Notifications []notification.Notification

		// teacher
		PendingSubmissions []coursework.Submission

		// student
		EnrolledCourseIDs map[int64]bool
	}

	CourseDetail struct {
		Course      course.Course
		IsOwner     bool
		IsEnrolled  bool
		Materials   []coursework.Material
		Activities  []coursework.Activity
		Enrollments []course.Enrollment
		Attendance  []course.Attendance
		// Submissions by activity id, only filled for the owning teacher.
		Submissions map[int64][]coursework.Submission
	}

	Service struct {
		courses       course.ServiceInterface
		coursework    coursework.ServiceInterface
		notifications notification.ServiceInterface
	}
)

func NewService(
	courses course.ServiceInterface,
	cw coursework.ServiceInterface,
	notifications notification.ServiceInterface,
) *Service {
	return &Service{courses: courses, coursework: cw, notifications: notifications}
}

// Home builds the dashboard of p. A principal without profile gets ErrNoProfile.
func (svc *Service) Home(ctx context.Context, p user.Principal) (Dashboard, error) {
	dash := Dashboard{Role: p.Role}
	var err error

	switch p.Role {
	case user.RoleTeacher:
		if dash.Courses, err = svc.courses.Query(ctx, p, "", ""); err != nil {
			return Dashboard{}, perrors.Wrap(err, "querying courses")
		}
		if dash.Notifications, err = svc.notifications.ForTeacher(ctx, p.ID, notificationsLimit); err != nil {
			return Dashboard{}, perrors.Wrap(err, "querying notifications")
		}
		if dash.PendingSubmissions, err = svc.coursework.PendingSubmissions(ctx, p.ID, pendingLimit); err != nil {
			return Dashboard{}, perrors.Wrap(err, "querying pending submissions")
		}

	case user.RoleStudent:
		if dash.Courses, err = svc.courses.Query(ctx, p, "", ""); err != nil {
			return Dashboard{}, perrors.Wrap(err, "querying courses")
		}
		ids, err := svc.courses.EnrolledCourseIDs(ctx, p.ID)
		if err != nil {
			return Dashboard{}, perrors.Wrap(err, "querying enrollments")
		}
		dash.EnrolledCourseIDs = make(map[int64]bool, len(ids))
		for _, id := range ids {
			dash.EnrolledCourseIDs[id] = true
		}
		if dash.Notifications, err = svc.notifications.ForStudent(ctx, notificationsLimit); err != nil {
			return Dashboard{}, perrors.Wrap(err, "querying notifications")
		}

	default:
		return Dashboard{}, ErrNoProfile
	}
	return dash, nil
}

// CourseDetail gathers everything shown on a course page. Any authenticated user may see it.
func (svc *Service) CourseDetail(ctx context.Context, p user.Principal, courseID int64) (CourseDetail, error) {
	c, err := svc.courses.GetByID(ctx, courseID)
	if err != nil {
		return CourseDetail{}, err
	}
	detail := CourseDetail{
		Course:  c,
		IsOwner: p.IsTeacher() && c.TeacherID == p.ID,
	}

	if detail.Materials, err = svc.coursework.Materials(ctx, c.ID); err != nil {
		return CourseDetail{}, perrors.Wrap(err, "querying materials")
	}
	if detail.Activities, err = svc.coursework.Activities(ctx, c.ID); err != nil {
		return CourseDetail{}, perrors.Wrap(err, "querying activities")
	}
	if detail.Enrollments, err = svc.courses.Enrollments(ctx, c.ID); err != nil {
		return CourseDetail{}, perrors.Wrap(err, "querying enrollments")
	}
	if detail.Attendance, err = svc.courses.RecentAttendance(ctx, c.ID); err != nil {
		return CourseDetail{}, perrors.Wrap(err, "querying attendance")
	}
	for _, enr := range detail.Enrollments {
		if enr.StudentID == p.ID {
			detail.IsEnrolled = true
			break
		}
	}

	if detail.IsOwner {
		subs, err := svc.coursework.CourseSubmissions(ctx, c.ID)
		if err != nil {
			return CourseDetail{}, perrors.Wrap(err, "querying submissions")
		}
		detail.Submissions = make(map[int64][]coursework.Submission, len(detail.Activities))
		for _, sub := range subs {
			detail.Submissions[sub.ActivityID] = append(detail.Submissions[sub.ActivityID], sub)
		}
	}
	return detail, nil
}
