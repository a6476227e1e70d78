package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/user"
)

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string) error {
	var taken string
	err := repo.exec.GetContext(ctx, &taken,
		`SELECT username FROM "user" WHERE username = $1 LIMIT 1`, username)
	if err == nil {
		return user.ErrUsernameExists
	}
	if err != sql.ErrNoRows {
		return errors.Wrap(err, "checking username uniqueness")
	}

	if email != "" {
		err = repo.exec.GetContext(ctx, &taken,
			`SELECT email FROM "user" WHERE email = $1 LIMIT 1`, email)
		if err == nil {
			return user.ErrEmailExists
		}
		if err != sql.ErrNoRows {
			return errors.Wrap(err, "checking email uniqueness")
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO "user" (id, username, email, is_active, password_hash, created_at, updated_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usr.ID, usr.Username, usr.Email, usr.IsActive, usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	err := repo.exec.GetContext(ctx, &usr, `SELECT * FROM "user" WHERE id = $1`, id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var usr user.User
	err := repo.exec.GetContext(ctx, &usr, `SELECT * FROM "user" WHERE username = $1`, username)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by username")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE "user" SET email = $2, password_hash = $3, updated_at = $4 WHERE id = $1`,
		usr.ID, usr.Email, usr.PasswordHash, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE "user" SET last_login = $2 WHERE id = $1`, id, t)
	return errors.Wrap(err, "setting last login")
}

func (repo userRepository) DeactivateUser(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE "user" SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "deactivating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
