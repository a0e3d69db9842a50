package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wavechat/internal/app/user"
)

// UserRecord is the full database row for a user, including the password hash.
// It is never serialized to clients; use Public() for outward representations.
type UserRecord struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	IsStaff      bool
	Avatar       string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Public strips credentials from the record.
func (u UserRecord) Public() user.User {
	return user.User{
		ID:       u.ID,
		Username: u.Username,
		IsStaff:  u.IsStaff,
		Avatar:   u.Avatar,
	}
}

// CreateUser inserts a new user with the given bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (UserRecord, error) {
	var u UserRecord
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, is_staff, avatar, created_at, last_login_at`,
		username, passwordHash,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.Avatar, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// GetUserByUsername returns the user row for a login attempt.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (UserRecord, error) {
	var u UserRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, is_staff, avatar, created_at, last_login_at
		FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.Avatar, &u.CreatedAt, &u.LastLoginAt)
	return u, wrapNotFound(err)
}

// GetUserByID returns the user row for the given id.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (UserRecord, error) {
	var u UserRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, is_staff, avatar, created_at, last_login_at
		FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.Avatar, &u.CreatedAt, &u.LastLoginAt)
	return u, wrapNotFound(err)
}

// UpdateLastLogin stamps a successful authentication.
func (s *Store) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	return err
}

// UpdateUserAvatar records the storage key of the user's uploaded avatar.
func (s *Store) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarKey string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`, id, avatarKey)
	return err
}
