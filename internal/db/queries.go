package db

import (
	"context"
	"errors"

	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrNotFound     = errors.New("record not found")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (email, name, surname, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `

	err := db.Pool.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.Surname,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUserExists
	}

	return err
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
        SELECT id, email, name, surname, password_hash, created_at
        FROM users
        WHERE email = $1
    `

	var user models.User
	err := db.Pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Surname,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}
