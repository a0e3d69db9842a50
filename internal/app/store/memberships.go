package store

import (
	"context"

	"github.com/google/uuid"
)

// Membership links a user to a channel. Admins may rename/delete the channel,
// issue invitations and manage bans.
type Membership struct {
	UUID      uuid.UUID `json:"uuid"`
	UserID    uuid.UUID `json:"user_id"`
	ChannelID int64     `json:"-"`
	IsAdmin   bool      `json:"is_admin"`
}

// GetMembership returns the membership row for the user in the channel.
func (s *Store) GetMembership(ctx context.Context, userID uuid.UUID, channelID int64) (Membership, error) {
	var m Membership
	err := s.pool.QueryRow(ctx, `
		SELECT uuid, user_id, channel_id, is_admin
		FROM channel_memberships
		WHERE user_id = $1 AND channel_id = $2`,
		userID, channelID,
	).Scan(&m.UUID, &m.UserID, &m.ChannelID, &m.IsAdmin)
	return m, wrapNotFound(err)
}

// IsMember reports whether the user belongs to the channel.
func (s *Store) IsMember(ctx context.Context, userID uuid.UUID, channelID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM channel_memberships WHERE user_id = $1 AND channel_id = $2
		)`,
		userID, channelID,
	).Scan(&exists)
	return exists, err
}

// CreateMembership adds the user to the channel as a regular member.
func (s *Store) CreateMembership(ctx context.Context, userID uuid.UUID, channelID int64) (Membership, error) {
	var m Membership
	err := s.pool.QueryRow(ctx, `
		INSERT INTO channel_memberships (user_id, channel_id)
		VALUES ($1, $2)
		RETURNING uuid, user_id, channel_id, is_admin`,
		userID, channelID,
	).Scan(&m.UUID, &m.UserID, &m.ChannelID, &m.IsAdmin)
	return m, err
}

// DeleteMembership removes the user from the channel. Returns ErrNotFound when
// there was no membership to remove.
func (s *Store) DeleteMembership(ctx context.Context, userID uuid.UUID, channelID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM channel_memberships WHERE user_id = $1 AND channel_id = $2`,
		userID, channelID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
