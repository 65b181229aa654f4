package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

const userColumns = `id, name, username, email, role, department, branch, assigned_guide_id, is_active,
	password_hash, created_at, updated_at, last_login`

var userOrderColumns = map[string]string{
	"name":      "name",
	"username":  "username",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
	"lastLogin": "last_login",
}

type userRow struct {
	ID              string      `db:"id"`
	Name            string      `db:"name"`
	Username        null.String `db:"username"`
	Email           null.String `db:"email"`
	Role            string      `db:"role"`
	Department      string      `db:"department"`
	Branch          string      `db:"branch"`
	AssignedGuideID null.String `db:"assigned_guide_id"`
	IsActive        bool        `db:"is_active"`
	PasswordHash    null.Bytes  `db:"password_hash"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
	LastLogin       null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:              usr.ID,
		Name:            usr.Name,
		Username:        null.NewString(usr.Username, usr.Username != ""),
		Email:           null.NewString(usr.Email, usr.Email != ""),
		Role:            usr.Role,
		Department:      usr.Department,
		Branch:          usr.Branch,
		AssignedGuideID: null.NewString(usr.AssignedGuideID, usr.AssignedGuideID != ""),
		IsActive:        usr.IsActive,
		PasswordHash:    null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:       usr.CreatedAt.UTC(),
		UpdatedAt:       usr.UpdatedAt.UTC(),
		LastLogin:       null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:              r.ID,
		Name:            r.Name,
		Username:        r.Username.String,
		Email:           r.Email.String,
		Role:            r.Role,
		Department:      r.Department,
		Branch:          r.Branch,
		AssignedGuideID: r.AssignedGuideID.String,
		IsActive:        r.IsActive,
		PasswordHash:    r.PasswordHash.Bytes,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		LastLogin:       r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db sqlx.ExtContext
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db sqlx.ExtContext) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := `SELECT username, email FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += " AND id <> ALL(?)"
		args = append(args, pq.Array(ids))
	}
	q += " LIMIT 1"

	var found struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	err := sqlx.GetContext(ctx, repo.db, &found, repo.db.Rebind(q), args...)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking user uniqueness")
	case found.Username.String == username:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :username, :email, :role, :department, :branch,
		:assigned_guide_id, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, toUserRow(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) getBy(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user" WHERE ` + where + " LIMIT 1")
	if err := sqlx.GetContext(ctx, repo.db, &row, q, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.getBy(ctx, "id = ?", id)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getBy(ctx, "username = ? OR email = ?", username, username)
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
			args = append(args, val, val, val)
		}
		if len(filter.Roles) > 0 {
			where = append(where, "role = ANY(?)")
			args = append(args, pq.Array(filter.Roles))
		}
		if filter.Department != "" {
			where = append(where, "department ILIKE ?")
			args = append(args, filter.Department)
		}
		if filter.GuideID != "" {
			where = append(where, "assigned_guide_id = ?")
			args = append(args, filter.GuideID)
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	q := `SELECT ` + userColumns + ` FROM "user"` + whereClause(where) + core.OrderByClause(ordering, userOrderColumns, "name ASC")
	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET name = :name, username = :username, email = :email, role = :role,
		department = :department, branch = :branch, assigned_guide_id = :assigned_guide_id, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, toUserRow(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// trapNoRows maps "no rows" to the domain's not found error.
func trapNoRows(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
