package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/registro/apps/api/echo"
	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/dashboard"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
	emailsvc "github.com/trezcool/registro/services/email"
	filesvc "github.com/trezcool/registro/services/files"
	logsvc "github.com/trezcool/registro/services/logger"
	"github.com/trezcool/registro/storage/database"
	sqlxrepos "github.com/trezcool/registro/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	serverParams struct {
		dig.In

		Conf            *core.Config
		Logger          core.Logger
		UserSvc         user.ServiceInterface
		CourseSvc       course.ServiceInterface
		CourseworkSvc   coursework.ServiceInterface
		NotificationSvc notification.ServiceInterface
		DashboardSvc    *dashboard.Service
		Files           core.FileStorage
		Validate        *validator.Validate
		Translator      ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newFileStorage(conf *core.Config) (core.FileStorage, error) {
	return filesvc.NewStorage(context.Background(), conf)
}

// newValidator returns a validator with every package's validations and Spanish translations.
func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	coursework.InitValidators(validate, translator)
	return validate, translator
}

func newServer(p serverParams) (*echoapi.Server, error) {
	opts := echoapi.Options{}
	if p.Conf.Storage.Backend == "local" {
		opts.MediaRoot = p.Conf.Storage.LocalDir
	}
	return echoapi.NewServer(p.Conf, p.Logger, echoapi.Deps{
		UserSvc:         p.UserSvc,
		CourseSvc:       p.CourseSvc,
		CourseworkSvc:   p.CourseworkSvc,
		NotificationSvc: p.NotificationSvc,
		DashboardSvc:    p.DashboardSvc,
		Files:           p.Files,
		Validate:        p.Validate,
		Translator:      p.Translator,
	}, opts)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newFileStorage))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewCourseworkRepository, dig.As(new(coursework.Repository))))
	must(c.Provide(sqlxrepos.NewNotificationRepository, dig.As(new(notification.Repository))))

	// services
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(course.NewService, dig.As(new(course.ServiceInterface))))
	must(c.Provide(coursework.NewService, dig.As(new(coursework.ServiceInterface))))
	must(c.Provide(notification.NewService, dig.As(new(notification.ServiceInterface))))
	must(c.Provide(dashboard.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
