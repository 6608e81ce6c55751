package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/user"
)

type userRow struct {
	ID           int64          `db:"id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Username     sql.NullString `db:"username"`
	Email        sql.NullString `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (repo userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($3))`
		args = append(args, pq.Array(ids))
	}

	var rows []userRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Username.Valid && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if row.Email.Valid && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(usr user.User) (user.User, error) {
	query := `
INSERT INTO "user" (first_name, last_name, username, email, is_active, roles, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		usr.FirstName, usr.LastName, nullStr(usr.Username), nullStr(usr.Email),
		usr.IsActive, pq.Array(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) getUser(where string, args ...interface{}) (user.User, error) {
	var row userRow
	query := `SELECT * FROM "user" WHERE ` + where
	if err := repo.db.Get(&row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByID(id int64) (user.User, error) {
	return repo.getUser(`id = $1`, id)
}

func (repo userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser(`username = $1`, username)
}

func (repo userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getUser(`email = $1`, email)
}

func (repo userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getUser(`username = $1 OR email = $1`, username)
}

func (repo userRepository) FilterUsers(filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	query := `SELECT u.* FROM "user" u`
	if filter != nil {
		if filter.CourseID != 0 {
			query += ` JOIN enrolment e ON e.user_id = u.id AND e.course_id = ` + arg(filter.CourseID)
		}
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf(
				"(u.first_name ILIKE %[1]s OR u.last_name ILIKE %[1]s OR u.username ILIKE %[1]s OR u.email ILIKE %[1]s)", p))
		}
		if filter.FirstInitial != "" {
			conds = append(conds, `u.first_name ILIKE `+arg(filter.FirstInitial+"%"))
		}
		if filter.LastInitial != "" {
			conds = append(conds, `u.last_name ILIKE `+arg(filter.LastInitial+"%"))
		}
		if filter.Roles != nil {
			conds = append(conds, `u.roles && `+arg(pq.Array(filter.Roles)))
		}
		if filter.IsActive != nil {
			conds = append(conds, `u.is_active = `+arg(*filter.IsActive))
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	orderings := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := userOrderingCols[ord.Field]; ok {
			orderings = append(orderings, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderings) == 0 {
		orderings = append(orderings, "u.id ASC")
	}
	query += ` ORDER BY ` + strings.Join(orderings, ", ")

	var rows []userRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

// userOrderingCols whitelists the orderable columns.
var userOrderingCols = map[string]string{
	"id":         "u.id",
	"first_name": "u.first_name",
	"last_name":  "u.last_name",
	"username":   "u.username",
	"email":      "u.email",
	"created_at": "u.created_at",
}

func (repo userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	set := []string{"updated_at = now()"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if usr.FirstName != "" {
		set = append(set, "first_name = "+arg(usr.FirstName))
	}
	if usr.LastName != "" {
		set = append(set, "last_name = "+arg(usr.LastName))
	}
	if usr.Username != "" {
		set = append(set, "username = "+arg(usr.Username))
	}
	if usr.Email != "" {
		set = append(set, "email = "+arg(usr.Email))
	}
	if usr.Roles != nil {
		set = append(set, "roles = "+arg(pq.Array(usr.Roles)))
	}
	if usr.PasswordHash != nil {
		set = append(set, "password_hash = "+arg(usr.PasswordHash))
	}
	if !usr.LastLogin.IsZero() {
		set = append(set, "last_login = "+arg(usr.LastLogin))
	}
	if isActive != nil {
		set = append(set, "is_active = "+arg(*isActive))
	}

	query := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE id = ` + arg(usr.ID)
	res, err := repo.db.Exec(query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(usr.ID)
}

func (repo userRepository) DeleteUsersByID(ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.Exec(`DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
