package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/registro/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkUsername(username, excludedUsers...)
}

func (repo *userRepository) checkUsername(username string, excludedUsers ...user.User) error {
	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}
	for _, usr := range repo.db.users {
		if usr.Username == username && !isExcluded(*usr, excludedUsers, exclUsrsLen) {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUsername(usr.Username); err != nil {
		return user.User{}, err
	}
	usr.ID = repo.db.nextID("user")
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) CreateUserWithProfile(_ context.Context, usr user.User, role user.Role) (user.User, user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUsername(usr.Username); err != nil {
		return user.User{}, user.Profile{}, err
	}
	if !role.Valid() {
		return user.User{}, user.Profile{}, user.ErrInvalidRole
	}
	usr.ID = repo.db.nextID("user")
	prof := user.Profile{ID: repo.db.nextID("profile"), UserID: usr.ID, Role: role}
	repo.db.users[usr.ID] = &usr
	repo.db.profiles[usr.ID] = &prof
	return usr, prof, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if filter.ID != 0 && usr.ID != filter.ID {
			continue
		}
		if filter.Username != "" && usr.Username != filter.Username {
			continue
		}
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUsername(usr.Username, usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) SaveProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[prof.UserID]; !ok {
		return user.Profile{}, user.ErrNotFound
	}
	if existing, ok := repo.db.profiles[prof.UserID]; ok {
		existing.Role = prof.Role
		return *existing, nil
	}
	prof.ID = repo.db.nextID("profile")
	repo.db.profiles[prof.UserID] = &prof
	return prof, nil
}

func (repo *userRepository) GetProfile(_ context.Context, userID int64) (user.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.profiles[userID]; ok {
		return *prof, nil
	}
	return user.Profile{}, user.ErrProfileNotFound
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}
