package store

import (
	"context"
	"database/sql"

	"github.com/dimas1q/quick-estimate/internal/domain/user"
)

// PostgresUserStore implements user.Store over PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

var _ user.Store = (*PostgresUserStore)(nil)

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *PostgresUserStore) getUser(ctx context.Context, column, value string) (*user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, created_at FROM users WHERE "+column+" = $1",
		value,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
