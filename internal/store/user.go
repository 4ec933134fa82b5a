package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/petalmail/apiserver/internal/db"
	"github.com/petalmail/apiserver/types"
)

// UserRepository handles persistence for users. Every statement runs on the
// connection attached to the request context.
type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	conn, err := db.ConnFromContext(ctx)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		SELECT id, username, email, password
		FROM "user"
		WHERE email = $1`
	var user types.User
	err = conn.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	conn, err := db.ConnFromContext(ctx)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO "user" (username, email, password)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := conn.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}
