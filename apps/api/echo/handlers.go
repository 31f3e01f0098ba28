package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/dashboard"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
)

const (
	csrfField        = "csrf"
	contextCourseKey = "course"
)

type handlers struct {
	conf       *core.Config
	tokens     *tokenManager
	flashes    *flashStore
	validate   *validator.Validate
	translator ut.Translator

	users         user.ServiceInterface
	courses       course.ServiceInterface
	coursework    coursework.ServiceInterface
	notifications notification.ServiceInterface
	dashboard     *dashboard.Service
}

// render fills the request-scoped fields of pg and renders the named page.
func (h *handlers) render(ctx echo.Context, name string, pg page) error {
	pg.Principal = getPrincipal(ctx)
	pg.CSRF, _ = ctx.Get(csrfField).(string)
	pg.Flashes = h.flashes.pop(ctx)
	return ctx.Render(http.StatusOK, name, pg)
}

// renderInvalid re-renders the form with the messages of a validation error.
// Any other error is returned as is.
func (h *handlers) renderInvalid(ctx echo.Context, name string, pg page, err error) error {
	fldErrs, ok := formErrors(err, h.translator)
	if !ok {
		return err
	}
	pg.Errors = fldErrs
	return h.render(ctx, name, pg)
}

func (h *handlers) redirect(ctx echo.Context, path, msg string) error {
	return h.flashes.redirectWithFlash(ctx, path, flashSuccess, msg)
}

// courseMiddleware loads the course of the :id path param into the context.
// With owned set, only a course taught by the caller is found.
func (h *handlers) courseMiddleware(owned bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := pathID(ctx)
			if err != nil {
				return err
			}

			var c course.Course
			reqCtx := ctx.Request().Context()
			if owned {
				c, err = h.courses.GetOwned(reqCtx, id, getPrincipal(ctx).ID)
			} else {
				c, err = h.courses.GetByID(reqCtx, id)
			}
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHTTPNotFound
				}
				return errors.Wrap(err, "loading course")
			}
			ctx.Set(contextCourseKey, c)
			return next(ctx)
		}
	}
}

func contextCourse(ctx echo.Context) course.Course {
	c, _ := ctx.Get(contextCourseKey).(course.Course)
	return c
}
