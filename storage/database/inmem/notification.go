package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) withRefs(n notification.Notification) notification.Notification {
	n.AuthorUsername = repo.db.username(n.CreatedByID)
	n.CourseName = null.String{}
	if n.CourseID.Valid {
		if c, ok := repo.db.courses[n.CourseID.Int64]; ok {
			n.CourseName = null.StringFrom(c.Name)
		}
	}
	return n
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = repo.db.nextID("notification")
	stored := n
	repo.db.notifications[n.ID] = &stored
	return repo.withRefs(n), nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	inAudiences := func(a notification.Audience) bool {
		if len(filter.Audiences) == 0 {
			return true
		}
		for _, fa := range filter.Audiences {
			if fa == a {
				return true
			}
		}
		return false
	}

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if filter.CreatedByID != 0 && n.CreatedByID != filter.CreatedByID {
			continue
		}
		if !inAudiences(n.Audience) {
			continue
		}
		notifs = append(notifs, repo.withRefs(*n))
	}
	sort.Slice(notifs, func(i, j int) bool {
		if !notifs[i].CreatedAt.Equal(notifs[j].CreatedAt) {
			return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
		}
		return notifs[i].ID > notifs[j].ID
	})
	if filter.Limit > 0 && len(notifs) > filter.Limit {
		notifs = notifs[:filter.Limit]
	}
	return notifs, nil
}

func (repo *notificationRepository) QueryRecipients(_ context.Context, filter notification.RecipientFilter) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	hasRole := func(userID int64) bool {
		prof, ok := repo.db.profiles[userID]
		if !ok {
			return false
		}
		for _, r := range filter.Roles {
			if prof.Role == r {
				return true
			}
		}
		return false
	}
	inCourse := func(userID int64) bool {
		if filter.CourseID == 0 {
			return true
		}
		if c, ok := repo.db.courses[filter.CourseID]; ok && c.TeacherID == userID {
			return true
		}
		for _, e := range repo.db.enrollments {
			if e.CourseID == filter.CourseID && e.StudentID == userID {
				return true
			}
		}
		return false
	}

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if !usr.IsActive || usr.Email == "" || usr.ID == filter.ExcludeUserID {
			continue
		}
		if hasRole(usr.ID) && inCourse(usr.ID) {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
