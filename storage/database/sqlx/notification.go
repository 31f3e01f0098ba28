package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
)

type notificationRepository struct {
	db core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db core.DBExecutor) *notificationRepository {
	return &notificationRepository{db: db}
}

func notificationQuery() sq.SelectBuilder {
	return psql.Select(
		"n.id", "n.course_id", "n.created_by_id", "n.message", "n.audience", "n.created_at",
		"c.name AS course_name",
		"u.username AS author_username",
	).From("notification n").
		Join("app_user u ON u.id = n.created_by_id").
		LeftJoin("course c ON c.id = n.course_id")
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	q, args, err := psql.Insert("notification").
		Columns("course_id", "created_by_id", "message", "audience", "created_at").
		Values(n.CourseID, n.CreatedByID, n.Message, n.Audience, n.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "building query")
	}

	var id int64
	if err = repo.db.GetContext(ctx, &id, q, args...); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}

	q, args, err = notificationQuery().Where(sq.Eq{"n.id": id}).ToSql()
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "building query")
	}
	var created notification.Notification
	if err = repo.db.GetContext(ctx, &created, q, args...); err != nil {
		return notification.Notification{}, errors.Wrap(err, "selecting notification")
	}
	return created, nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	query := notificationQuery().OrderBy("n.created_at DESC", "n.id DESC")
	if filter.CreatedByID != 0 {
		query = query.Where(sq.Eq{"n.created_by_id": filter.CreatedByID})
	}
	if len(filter.Audiences) > 0 {
		audiences := make([]string, 0, len(filter.Audiences))
		for _, a := range filter.Audiences {
			audiences = append(audiences, string(a))
		}
		query = query.Where(sq.Eq{"n.audience": audiences})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	notifs := make([]notification.Notification, 0)
	if err = repo.db.SelectContext(ctx, &notifs, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) QueryRecipients(ctx context.Context, filter notification.RecipientFilter) ([]user.User, error) {
	roles := make([]string, 0, len(filter.Roles))
	for _, r := range filter.Roles {
		roles = append(roles, string(r))
	}

	query := psql.Select(
		"u.id", "u.username", "u.email", "u.password", "u.is_active", "u.date_joined", "u.last_login",
	).From("app_user u").
		Join("profile p ON p.user_id = u.id").
		Where(sq.Eq{"u.is_active": true, "p.role": roles}).
		Where(sq.NotEq{"u.email": ""}).
		OrderBy("u.id")
	if filter.ExcludeUserID != 0 {
		query = query.Where(sq.NotEq{"u.id": filter.ExcludeUserID})
	}
	if filter.CourseID != 0 {
		query = query.Where(sq.Or{
			sq.Expr("u.id IN (SELECT teacher_id FROM course WHERE id = ?)", filter.CourseID),
			sq.Expr("u.id IN (SELECT student_id FROM enrollment WHERE course_id = ?)", filter.CourseID),
		})
	}
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	users := make([]user.User, 0)
	if err = repo.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting recipients")
	}
	return users, nil
}
