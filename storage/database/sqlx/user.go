package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/user"
)

const userColumns = "id, username, email, password, is_active, date_joined, last_login"

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...user.User) error {
	query := psql.Select("1").From("app_user").Where(sq.Eq{"username": username}).Limit(1)
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query = query.Where(sq.NotEq{"id": ids})
	}
	q, args, err := query.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return user.ErrUsernameExists
	}
	return nil
}

func insertUser(ctx context.Context, db core.DBExecutor, usr user.User) (user.User, error) {
	q, args, err := psql.Insert("app_user").
		Columns("username", "email", "password", "is_active", "date_joined", "last_login").
		Values(usr.Username, usr.Email, usr.PasswordHash, usr.IsActive, usr.DateJoined, usr.LastLogin).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var created user.User
	if err = db.GetContext(ctx, &created, q, args...); err != nil {
		if isUniqueViolation(err, "app_user_username_key") {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return created, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	return insertUser(ctx, repo.db, usr)
}

func (repo *userRepository) CreateUserWithProfile(ctx context.Context, usr user.User, role user.Role) (_ user.User, _ user.Profile, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, user.Profile{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created, err := insertUser(ctx, tx, usr)
	if err != nil {
		return user.User{}, user.Profile{}, err
	}
	prof, err := saveProfile(ctx, tx, user.Profile{UserID: created.ID, Role: role})
	if err != nil {
		return user.User{}, user.Profile{}, err
	}
	if err = tx.Commit(); err != nil {
		return user.User{}, user.Profile{}, errors.Wrap(err, "committing user")
	}
	return created, prof, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	query := psql.Select(userColumns).From("app_user").Limit(1)
	if filter.ID != 0 {
		query = query.Where(sq.Eq{"id": filter.ID})
	}
	if filter.Username != "" {
		query = query.Where(sq.Eq{"username": filter.Username})
	}
	q, args, err := query.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var usr user.User
	if err = repo.db.GetContext(ctx, &usr, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q, args, err := psql.Update("app_user").
		SetMap(map[string]interface{}{
			"username":   usr.Username,
			"email":      usr.Email,
			"password":   usr.PasswordHash,
			"is_active":  usr.IsActive,
			"last_login": usr.LastLogin,
		}).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var updated user.User
	if err = repo.db.GetContext(ctx, &updated, q, args...); err != nil {
		if isUniqueViolation(err, "app_user_username_key") {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return updated, nil
}

func saveProfile(ctx context.Context, db core.DBExecutor, prof user.Profile) (user.Profile, error) {
	q, args, err := psql.Insert("profile").
		Columns("user_id", "role").
		Values(prof.UserID, prof.Role).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role RETURNING id, user_id, role").
		ToSql()
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "building query")
	}

	var saved user.Profile
	if err = db.GetContext(ctx, &saved, q, args...); err != nil {
		return user.Profile{}, errors.Wrap(err, "saving profile")
	}
	return saved, nil
}

func (repo *userRepository) SaveProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	return saveProfile(ctx, repo.db, prof)
}

func (repo *userRepository) GetProfile(ctx context.Context, userID int64) (user.Profile, error) {
	q, args, err := psql.Select("id", "user_id", "role").From("profile").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "building query")
	}

	var prof user.Profile
	if err = repo.db.GetContext(ctx, &prof, q, args...); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrProfileNotFound, "selecting profile")
	}
	return prof, nil
}
