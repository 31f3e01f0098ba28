package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
)

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type registerPage struct {
	Roles []user.RoleChoice
}

func (h *handlers) login(ctx echo.Context) error {
	if getPrincipal(ctx).IsAuthenticated() {
		return ctx.Redirect(http.StatusFound, "/")
	}

	form := loginForm{Next: ctx.QueryParam("next")}
	pg := page{Title: "Iniciar sesión", Form: &form}
	if !isPost(ctx) {
		return h.render(ctx, "auth/login", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to loginForm")
	}
	form.Username = core.CleanString(form.Username)
	if err := h.validate.Struct(&form); err != nil {
		return h.renderInvalid(ctx, "auth/login", pg, err)
	}

	usr, err := h.users.Authenticate(ctx.Request().Context(), form.Username, form.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials, user.ErrInactive:
			return h.renderInvalid(ctx, "auth/login", pg, core.NewValidationError(errors.Cause(err)))
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := h.tokens.GenerateToken(usr)
	if err != nil {
		return err
	}
	h.tokens.setCookie(ctx, token)
	return ctx.Redirect(http.StatusFound, safeNext(form.Next))
}

func (h *handlers) logout(ctx echo.Context) error {
	h.tokens.clearCookie(ctx)
	return ctx.Redirect(http.StatusFound, loginPath)
}

func (h *handlers) register(ctx echo.Context) error {
	if getPrincipal(ctx).IsAuthenticated() {
		return ctx.Redirect(http.StatusFound, "/")
	}

	var form user.NewUser
	pg := page{Title: "Registro", Form: &form, Data: registerPage{Roles: user.Roles}}
	if !isPost(ctx) {
		return h.render(ctx, "auth/register", pg)
	}

	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := form.Validate(reqCtx, h.validate, h.users); err != nil {
		return h.renderInvalid(ctx, "auth/register", pg, err)
	}
	if _, err := h.users.Register(reqCtx, form); err != nil {
		if errors.Cause(err) == user.ErrUsernameExists {
			err = core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return h.renderInvalid(ctx, "auth/register", pg, errors.Wrap(err, "registering user"))
	}

	return h.redirect(ctx, loginPath, "Usuario registrado. Ahora puedes iniciar sesión.")
}
