package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/dashboard"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
)

type (
	Deps struct {
		UserSvc         user.ServiceInterface
		CourseSvc       course.ServiceInterface
		CourseworkSvc   coursework.ServiceInterface
		NotificationSvc notification.ServiceInterface
		DashboardSvc    *dashboard.Service
		Files           core.FileStorage
		Validate        *validator.Validate
		Translator      ut.Translator
	}

	Options struct {
		DisableReqLogs bool
		DisableCSRF    bool
		// MediaRoot is the local storage dir served under /media; empty serves nothing.
		MediaRoot string
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		opts     Options
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps Deps, opts Options) (*Server, error) {
	s := &Server{
		conf:     conf,
		logger:   logger,
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	if err := s.setup(deps); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setup(deps Deps) error {
	rdr, err := newRenderer(deps.Files, s.conf.Location())
	if err != nil {
		return err
	}

	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Renderer = rdr
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.signalShutdown)
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.conf.Server.MaxUploadSize != "" {
		s.app.Use(middleware.BodyLimit(s.conf.Server.MaxUploadSize))
	}
	tm := newTokenManager(s.conf)
	// before CSRF: its error pages render with the principal
	s.app.Use(principalMiddleware(tm, deps.UserSvc))
	s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        func(echo.Context) bool { return s.opts.DisableCSRF },
		TokenLookup:    "form:" + csrfField,
		ContextKey:     csrfField,
		CookieName:     "registro_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   s.conf.Server.SecureCookies,
		CookieSameSite: http.SameSiteLaxMode,
	}))

	if s.opts.MediaRoot != "" {
		s.app.Static("/media", s.opts.MediaRoot)
	}

	h := &handlers{
		conf:          s.conf,
		tokens:        tm,
		flashes:       newFlashStore(s.conf.SecretKey, s.conf.Server.SecureCookies),
		validate:      deps.Validate,
		translator:    deps.Translator,
		users:         deps.UserSvc,
		courses:       deps.CourseSvc,
		coursework:    deps.CourseworkSvc,
		notifications: deps.NotificationSvc,
		dashboard:     deps.DashboardSvc,
	}
	registerRoutes(s.app, h)
	return nil
}

func registerRoutes(app *echo.Echo, h *handlers) {
	g := app.Group("")

	// un-authed
	g.Match(getPost, "/login", h.login)
	g.Match(getPost, "/register", h.register)
	g.Match(getPost, "/logout", h.logout)

	ag := g.Group("", loginRequired)
	ag.GET("/", h.home)

	ag.GET("/cursos", h.courseList)
	ag.Match(getPost, "/cursos/crear", h.courseCreate, requireRole(user.RoleTeacher, "Solo docentes pueden crear cursos"))
	ag.GET("/cursos/:id", h.courseDetail)
	ag.Match(getPost, "/cursos/:id/matricular", h.enroll,
		requireRole(user.RoleStudent, "Solo estudiantes pueden matricularse"), h.courseMiddleware(false))
	ag.Match(getPost, "/cursos/:id/material", h.materialCreate,
		requireRole(user.RoleTeacher, "Solo docentes pueden publicar material"), h.courseMiddleware(true))
	ag.Match(getPost, "/cursos/:id/actividades/crear", h.activityCreate,
		requireRole(user.RoleTeacher, "Solo docentes pueden crear actividades"), h.courseMiddleware(true))
	ag.Match(getPost, "/cursos/:id/asistencia", h.attendance,
		requireRole(user.RoleTeacher, "Solo docentes pueden registrar asistencia"), h.courseMiddleware(true))

	ag.Match(getPost, "/actividades/:id/entregar", h.submit,
		requireRole(user.RoleStudent, "Solo estudiantes pueden entregar actividades"))
	ag.Match(getPost, "/entregas/:id/calificar", h.grade,
		requireRole(user.RoleTeacher, "Solo docentes pueden calificar entregas"))

	ag.Match(getPost, "/notificaciones/nueva", h.notificationCreate,
		requireRole(user.RoleTeacher, "Solo docentes pueden enviar avisos"))
}

var getPost = []string{http.MethodGet, http.MethodPost}

// Start listens until the server is shut down; listen errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
