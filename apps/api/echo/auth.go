package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
)

const (
	tokenCookieName     = "registro_token"
	contextPrincipalKey = "principal"
	loginPath           = "/login/"
)

var errInvalidToken = errors.New("invalid token")

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

type tokenManager struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	secure   bool
}

func newTokenManager(conf *core.Config) *tokenManager {
	return &tokenManager{
		key:      []byte(conf.SecretKey),
		issuer:   conf.AppName,
		lifetime: conf.Server.JWTExpirationDelta,
		secure:   conf.Server.SecureCookies,
	}
}

// GenerateToken generates a signed JWT token string for usr.
func (tm *tokenManager) GenerateToken(usr user.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   strconv.FormatInt(usr.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: usr.Username,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken returns the user id carried by a valid token.
func (tm *tokenManager) ParseToken(ss string) (int64, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(ss, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errInvalidToken
		}
		return tm.key, nil
	})
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidToken
	}
	return id, nil
}

func (tm *tokenManager) setCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tm.lifetime),
		HttpOnly: true,
		Secure:   tm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (tm *tokenManager) clearCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   tm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// principalMiddleware loads the Principal of the token cookie into the context.
// Requests without a valid token stay anonymous.
func principalMiddleware(tm *tokenManager, svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(tokenCookieName)
			if err != nil || cookie.Value == "" {
				return next(ctx)
			}
			id, err := tm.ParseToken(cookie.Value)
			if err != nil {
				tm.clearCookie(ctx)
				return next(ctx)
			}

			p, err := svc.GetPrincipal(ctx.Request().Context(), id)
			switch errors.Cause(err) {
			case nil:
				ctx.Set(contextPrincipalKey, p)
			case user.ErrNotFound, user.ErrInactive:
				tm.clearCookie(ctx)
			default:
				return errors.Wrap(err, "loading principal")
			}
			return next(ctx)
		}
	}
}

// loginRequired redirects anonymous requests to the login page.
func loginRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !getPrincipal(ctx).IsAuthenticated() {
			return ctx.Redirect(http.StatusFound, loginURL(ctx.Request().URL.RequestURI()))
		}
		return next(ctx)
	}
}

// requireRole is the single authorization decision point of role-gated routes.
// It answers 403 with msg before any data is touched.
func requireRole(role user.Role, msg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !getPrincipal(ctx).HasRole(role) {
				return echo.NewHTTPError(http.StatusForbidden, msg)
			}
			return next(ctx)
		}
	}
}

func getPrincipal(ctx echo.Context) user.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(user.Principal)
	return p
}

func loginURL(next string) string {
	if next == "" || next == "/" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"next": {next}}.Encode()
}

// safeNext only allows local absolute paths.
// url.Parse rejects control characters, which browsers would strip into "//host".
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
