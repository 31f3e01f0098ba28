package notification

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/user"
)

const emailTemplate = "notification"

var (
	nowFunc = time.Now // mockable

	// errors
	ErrInvalidCourse = errors.New("Escoge una opción válida.")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// QueryNotifications returns the matching notifications, newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		QueryRecipients(ctx context.Context, filter RecipientFilter) ([]user.User, error)
	}

	ServiceInterface interface {
		CheckCourse(ctx context.Context, courseID int64) error
		Publish(ctx context.Context, author user.Principal, nn NewNotification) (Notification, error)
		ForTeacher(ctx context.Context, teacherID int64, limit int) ([]Notification, error)
		ForStudent(ctx context.Context, limit int) ([]Notification, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		courses course.Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	courses course.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		conf:    conf,
		repo:    repo,
		courses: courses,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *Service) CheckCourse(ctx context.Context, courseID int64) error {
	if _, err := svc.courses.GetCourse(ctx, course.GetFilter{ID: courseID}); err != nil {
		if err == course.ErrNotFound {
			return core.NewValidationError(ErrInvalidCourse, core.FieldError{Field: "course", Error: ErrInvalidCourse.Error()})
		}
		return err
	}
	return nil
}

// Publish stores the notification then emails its recipients in the background.
func (svc *Service) Publish(ctx context.Context, author user.Principal, nn NewNotification) (Notification, error) {
	n := Notification{
		CreatedByID: author.ID,
		Message:     nn.Message,
		Audience:    nn.Audience,
		CreatedAt:   nowFunc().UTC(),
	}
	if nn.CourseID != 0 {
		n.CourseID = null.Int64From(nn.CourseID)
	}

	n, err := svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return Notification{}, err
	}
	if svc.conf.Mail.Notify {
		svc.notify(ctx, author, n)
	}
	return n, nil
}

// notify is best effort: failures are logged, never returned.
func (svc *Service) notify(ctx context.Context, author user.Principal, n Notification) {
	recipients, err := svc.repo.QueryRecipients(ctx, RecipientFilter{
		Roles:         n.Audience.Roles(),
		CourseID:      n.CourseID.Int64,
		ExcludeUserID: author.ID,
	})
	if err != nil {
		svc.logger.Error("querying notification recipients", err, author)
		return
	}
	if len(recipients) == 0 {
		return
	}

	var courseName string
	if n.CourseID.Valid {
		if c, err := svc.courses.GetCourse(ctx, course.GetFilter{ID: n.CourseID.Int64}); err == nil {
			courseName = c.Name
		}
	}
	data := map[string]interface{}{
		"Author":  author.Username,
		"Course":  courseName,
		"Message": n.Message,
	}

	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, usr := range recipients {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Username, Address: usr.Email}},
			Subject:      "Nuevo aviso",
			TemplateName: emailTemplate,
			TemplateData: data,
			BaseURL:      svc.conf.Mail.BaseURL,
		})
	}
	svc.mailSvc.SendMessages(msgs...)
}

func (svc *Service) ForTeacher(ctx context.Context, teacherID int64, limit int) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{CreatedByID: teacherID, Limit: limit})
}

// ForStudent returns the newest notifications addressed to everyone or to students, whatever their course.
func (svc *Service) ForStudent(ctx context.Context, limit int) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{
		Audiences: []Audience{AudienceAll, AudienceStudents},
		Limit:     limit,
	})
}
