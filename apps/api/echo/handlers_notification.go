package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/notification"
)

type notificationPage struct {
	Courses   []course.Course
	Audiences []notification.AudienceChoice
}

func (h *handlers) notificationCreate(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	p := getPrincipal(ctx)

	courses, err := h.courses.Query(reqCtx, p, "", "")
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	var form notification.NewNotification
	pg := page{
		Title: "Nuevo aviso",
		Form:  &form,
		Data:  notificationPage{Courses: courses, Audiences: notification.Audiences},
	}
	if !isPost(ctx) {
		return h.render(ctx, "notifications/create", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := form.Validate(reqCtx, h.validate, h.notifications); err != nil {
		return h.renderInvalid(ctx, "notifications/create", pg, err)
	}
	if _, err := h.notifications.Publish(reqCtx, p, form); err != nil {
		return errors.Wrap(err, "publishing notification")
	}
	return h.redirect(ctx, "/", "Notificación publicada")
}
