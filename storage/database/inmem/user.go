package inmemdb

import (
	"sort"
	"strings"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if usr.Username == username && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrUsernameExists
		}
		if usr.Email == email && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(id int64) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == username) || (usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if repo.matches(usr, filter) {
			users = append(users, usr)
		}
	}
	sortUsers(users, ordering)
	return users, nil
}

func (repo *userRepository) matches(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CourseID != 0 && !repo.isEnrolled(filter.CourseID, usr.ID) {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.FirstName), s) &&
			!strings.Contains(strings.ToLower(usr.LastName), s) &&
			!strings.Contains(strings.ToLower(usr.Username), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if filter.FirstInitial != "" && !strings.HasPrefix(strings.ToLower(usr.FirstName), strings.ToLower(filter.FirstInitial)) {
		return false
	}
	if filter.LastInitial != "" && !strings.HasPrefix(strings.ToLower(usr.LastName), strings.ToLower(filter.LastInitial)) {
		return false
	}
	if filter.Roles != nil {
		var found bool
		for _, role := range filter.Roles {
			for _, usrRole := range usr.Roles {
				if role == usrRole {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) isEnrolled(courseID, userID int64) bool {
	for _, enr := range repo.db.enrolments {
		if enr.courseID == courseID && enr.userID == userID {
			return true
		}
	}
	return false
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	less := func(a, b user.User, field string) (lt, eq bool) {
		switch field {
		case "first_name":
			return a.FirstName < b.FirstName, a.FirstName == b.FirstName
		case "last_name":
			return a.LastName < b.LastName, a.LastName == b.LastName
		case "username":
			return a.Username < b.Username, a.Username == b.Username
		case "email":
			return a.Email < b.Email, a.Email == b.Email
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		default:
			return a.ID < b.ID, a.ID == b.ID
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			lt, eq := less(users[i], users[j], ord.Field)
			if eq {
				continue
			}
			if ord.Ascending {
				return lt
			}
			return !lt
		}
		return users[i].ID < users[j].ID
	})
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.FirstName != "" {
		origUsr.FirstName = usr.FirstName
	}
	if usr.LastName != "" {
		origUsr.LastName = usr.LastName
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Roles != nil {
		origUsr.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.UpdatedAt = usr.UpdatedAt

	repo.db.users[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	if idx >= n {
		return false
	}
	return excludedUsers[idx].ID == usr.ID
}
