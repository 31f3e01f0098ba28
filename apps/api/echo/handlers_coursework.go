package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
)

type (
	materialPage struct {
		Course course.Course
		Types  []coursework.MaterialTypeChoice
	}

	submitPage struct {
		Activity coursework.Activity
		Current  *coursework.Submission
	}
)

func (h *handlers) materialCreate(ctx echo.Context) error {
	c := contextCourse(ctx)
	var form coursework.NewMaterial
	pg := page{
		Title: "Nuevo material",
		Form:  &form,
		Data:  materialPage{Course: c, Types: coursework.MaterialTypes},
	}
	if !isPost(ctx) {
		return h.render(ctx, "materials/create", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	up, err := formUpload(ctx, "file")
	if err != nil {
		return err
	}
	form.File = up
	if err := form.Validate(h.validate); err != nil {
		return h.renderInvalid(ctx, "materials/create", pg, err)
	}
	if _, err := h.coursework.CreateMaterial(ctx.Request().Context(), c.ID, form); err != nil {
		return errors.Wrap(err, "creating material")
	}
	return h.redirect(ctx, coursePath(c.ID), "Material agregado")
}

func (h *handlers) activityCreate(ctx echo.Context) error {
	c := contextCourse(ctx)
	var form coursework.NewActivity
	pg := page{Title: "Nueva actividad", Form: &form, Data: c}
	if !isPost(ctx) {
		return h.render(ctx, "activities/create", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err := form.Validate(h.validate, h.conf.Location()); err != nil {
		return h.renderInvalid(ctx, "activities/create", pg, err)
	}
	if _, err := h.coursework.CreateActivity(ctx.Request().Context(), c.ID, form); err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return h.redirect(ctx, coursePath(c.ID), "Actividad creada")
}

func (h *handlers) submit(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	studentID := getPrincipal(ctx).ID

	act, err := h.coursework.GetActivity(reqCtx, id)
	if err != nil {
		if errors.Cause(err) == coursework.ErrActivityNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "loading activity")
	}

	data := submitPage{Activity: act}
	switch sub, err := h.coursework.StudentSubmission(reqCtx, act.ID, studentID); errors.Cause(err) {
	case nil:
		data.Current = &sub
	case coursework.ErrSubmissionNotFound:
	default:
		return errors.Wrap(err, "loading submission")
	}

	var form coursework.NewSubmission
	pg := page{Title: "Entregar " + act.Title, Form: &form, Data: data}
	if !isPost(ctx) {
		return h.render(ctx, "activities/submit", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if form.Attachment, err = formUpload(ctx, "attachment"); err != nil {
		return err
	}
	if err := form.Validate(h.validate); err != nil {
		return h.renderInvalid(ctx, "activities/submit", pg, err)
	}
	if _, err := h.coursework.Submit(reqCtx, act.ID, studentID, form); err != nil {
		return errors.Wrap(err, "submitting")
	}
	return h.redirect(ctx, coursePath(act.CourseID), "Entrega enviada")
}

func (h *handlers) grade(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	teacherID := getPrincipal(ctx).ID

	sub, err := h.coursework.GetGradable(reqCtx, id, teacherID)
	if err != nil {
		if errors.Cause(err) == coursework.ErrSubmissionNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "loading submission")
	}

	form := coursework.GradeInput{Grade: sub.GradeString()}
	pg := page{Title: "Calificar entrega", Form: &form, Data: sub}
	if !isPost(ctx) {
		return h.render(ctx, "submissions/grade", pg)
	}

	form.Grade = ""
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	if err := form.Validate(h.validate); err != nil {
		return h.renderInvalid(ctx, "submissions/grade", pg, err)
	}
	if _, err := h.coursework.Grade(reqCtx, sub.ID, teacherID, form); err != nil {
		return errors.Wrap(err, "grading")
	}
	return h.redirect(ctx, coursePath(sub.CourseID), "Calificación registrada")
}
