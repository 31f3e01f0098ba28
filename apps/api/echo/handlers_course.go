package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/dashboard"
)

type (
	courseListPage struct {
		Courses []course.Course
		Query   string
		Level   string
	}

	attendancePage struct {
		Course      course.Course
		Date        string
		Enrollments []course.Enrollment
		Statuses    []course.StatusChoice
		Values      map[int64]string // submitted status by student id
	}
)

func coursePath(id int64) string {
	return fmt.Sprintf("/cursos/%d/", id)
}

func (h *handlers) home(ctx echo.Context) error {
	p := getPrincipal(ctx)
	dash, err := h.dashboard.Home(ctx.Request().Context(), p)
	if err != nil {
		if errors.Cause(err) == dashboard.ErrNoProfile {
			h.tokens.clearCookie(ctx)
			return h.flashes.redirectWithFlash(ctx, loginPath, flashError, dashboard.ErrNoProfile.Error())
		}
		return errors.Wrap(err, "building dashboard")
	}
	return h.render(ctx, "dashboard", page{Title: "Inicio", Data: dash})
}

func (h *handlers) courseList(ctx echo.Context) error {
	data := courseListPage{
		Query: core.CleanString(ctx.QueryParam("q")),
		Level: core.CleanString(ctx.QueryParam("level")),
	}
	var err error
	data.Courses, err = h.courses.Query(ctx.Request().Context(), getPrincipal(ctx), data.Query, data.Level)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return h.render(ctx, "courses/list", page{Title: "Cursos", Data: data})
}

func (h *handlers) courseCreate(ctx echo.Context) error {
	var form course.NewCourse
	pg := page{Title: "Nuevo curso", Form: &form}
	if !isPost(ctx) {
		return h.render(ctx, "courses/create", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	reqCtx := ctx.Request().Context()
	if err := form.Validate(reqCtx, h.validate, h.courses); err != nil {
		return h.renderInvalid(ctx, "courses/create", pg, err)
	}
	c, err := h.courses.Create(reqCtx, getPrincipal(ctx).ID, form)
	if err != nil {
		return h.renderInvalid(ctx, "courses/create", pg, err)
	}
	return h.redirect(ctx, coursePath(c.ID), "Curso creado")
}

func (h *handlers) courseDetail(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	detail, err := h.dashboard.CourseDetail(ctx.Request().Context(), getPrincipal(ctx), id)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "loading course detail")
	}
	return h.render(ctx, "courses/detail", page{Title: detail.Course.Name, Data: detail})
}

func (h *handlers) enroll(ctx echo.Context) error {
	c := contextCourse(ctx)
	var form course.NewEnrollment
	pg := page{Title: "Matricularse en " + c.Name, Form: &form, Data: c}
	if !isPost(ctx) {
		return h.render(ctx, "courses/enroll", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := form.Validate(h.validate); err != nil {
		return h.renderInvalid(ctx, "courses/enroll", pg, err)
	}
	_, created, err := h.courses.Enroll(ctx.Request().Context(), c.ID, getPrincipal(ctx).ID, form)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	if !created {
		return h.flashes.redirectWithFlash(ctx, coursePath(c.ID), flashInfo, "Ya estabas matriculado en este curso")
	}
	return h.redirect(ctx, coursePath(c.ID), "Te has matriculado en el curso")
}

func (h *handlers) attendance(ctx echo.Context) error {
	c := contextCourse(ctx)
	reqCtx := ctx.Request().Context()
	today := course.Today(h.conf.Location())

	enrollments, err := h.courses.Enrollments(reqCtx, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	data := attendancePage{
		Course:      c,
		Date:        today.Format("02/01/2006"),
		Enrollments: enrollments,
		Statuses:    course.Statuses,
		Values:      make(map[int64]string, len(enrollments)),
	}
	pg := page{Title: "Asistencia de " + c.Name, Data: &data}
	if !isPost(ctx) {
		return h.render(ctx, "courses/attendance", pg)
	}

	for _, enr := range enrollments {
		data.Values[enr.StudentID] = ctx.FormValue(course.StatusField(enr.StudentID))
	}
	marks, err := course.NewAttendanceMarks(enrollments, ctx.FormValue)
	if err != nil {
		return h.renderInvalid(ctx, "courses/attendance", pg, err)
	}
	if err := h.courses.MarkAttendance(reqCtx, c.ID, today, marks); err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return h.redirect(ctx, coursePath(c.ID), "Asistencia guardada")
}

// StatusOf is used by the attendance template to preselect a status.
func (d *attendancePage) StatusOf(studentID int64) string {
	if v, ok := d.Values[studentID]; ok && v != "" {
		return v
	}
	return string(course.StatusPresent)
}
