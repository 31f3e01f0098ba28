package echoapi

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const sessionName = "registro_session"

type flashLevel string

const (
	flashSuccess flashLevel = "success"
	flashInfo    flashLevel = "info"
	flashError   flashLevel = "error"
)

type Flash struct {
	Level   flashLevel
	Message string
}

func init() {
	gob.Register(Flash{})
}

type flashStore struct {
	store sessions.Store
}

func newFlashStore(secret string, secure bool) *flashStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &flashStore{store: store}
}

func (fs *flashStore) add(ctx echo.Context, level flashLevel, msg string) error {
	// a tampered or stale cookie yields a fresh session
	sess, _ := fs.store.Get(ctx.Request(), sessionName)
	sess.AddFlash(Flash{Level: level, Message: msg})
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "saving flash")
}

// pop returns and clears the pending flashes. Must run before the response is written.
func (fs *flashStore) pop(ctx echo.Context) []Flash {
	sess, _ := fs.store.Get(ctx.Request(), sessionName)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(ctx.Request(), ctx.Response())

	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if fl, ok := f.(Flash); ok {
			flashes = append(flashes, fl)
		}
	}
	return flashes
}

// redirectWithFlash stores msg then redirects to path.
func (fs *flashStore) redirectWithFlash(ctx echo.Context, path string, level flashLevel, msg string) error {
	if err := fs.add(ctx, level, msg); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, path)
}
