package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wavechat/internal/app/user"
)

// Channel is a named message channel. The numeric ID doubles as the broadcast
// group address for the realtime layer; the UUID is the only identifier exposed
// over HTTP.
type Channel struct {
	ID                int64      `json:"-"`
	UUID              uuid.UUID  `json:"uuid"`
	OwnerID           *uuid.UUID `json:"-"`
	Name              string     `json:"name"`
	LastMessageNumber int32      `json:"last_message_number"`
	CreatedAt         time.Time  `json:"created_at"`
}

// WireChannel is the minimal channel representation embedded in websocket events.
type WireChannel struct {
	UUID              uuid.UUID `json:"uuid"`
	Name              string    `json:"name"`
	LastMessageNumber int32     `json:"last_message_number"`
}

// Wire converts a channel to its websocket event representation.
func (c Channel) Wire() WireChannel {
	return WireChannel{UUID: c.UUID, Name: c.Name, LastMessageNumber: c.LastMessageNumber}
}

const channelColumns = `id, uuid, owner_id, name, last_message_number, created_at`

// CreateChannel inserts a channel and makes the owner its first admin member,
// both inside one transaction.
func (s *Store) CreateChannel(ctx context.Context, ownerID uuid.UUID, name string) (Channel, error) {
	var c Channel

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return c, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO channels (owner_id, name)
		VALUES ($1, $2)
		RETURNING `+channelColumns,
		ownerID, name,
	).Scan(&c.ID, &c.UUID, &c.OwnerID, &c.Name, &c.LastMessageNumber, &c.CreatedAt)
	if err != nil {
		return c, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO channel_memberships (user_id, channel_id, is_admin)
		VALUES ($1, $2, TRUE)`,
		ownerID, c.ID,
	)
	if err != nil {
		return c, err
	}

	return c, tx.Commit(ctx)
}

// GetChannelByUUID resolves a channel by its public identifier.
func (s *Store) GetChannelByUUID(ctx context.Context, channelUUID uuid.UUID) (Channel, error) {
	var c Channel
	err := s.pool.QueryRow(ctx, `
		SELECT `+channelColumns+` FROM channels WHERE uuid = $1`,
		channelUUID,
	).Scan(&c.ID, &c.UUID, &c.OwnerID, &c.Name, &c.LastMessageNumber, &c.CreatedAt)
	return c, wrapNotFound(err)
}

// GetChannelByID resolves a channel by its internal identifier.
func (s *Store) GetChannelByID(ctx context.Context, channelID int64) (Channel, error) {
	var c Channel
	err := s.pool.QueryRow(ctx, `
		SELECT `+channelColumns+` FROM channels WHERE id = $1`,
		channelID,
	).Scan(&c.ID, &c.UUID, &c.OwnerID, &c.Name, &c.LastMessageNumber, &c.CreatedAt)
	return c, wrapNotFound(err)
}

// ListChannelsForUser returns the channels the user is a member of, newest
// first, excluding any channel the user is banned from.
func (s *Store) ListChannelsForUser(ctx context.Context, userID uuid.UUID) ([]Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.uuid, c.owner_id, c.name, c.last_message_number, c.created_at
		FROM channels c
		JOIN channel_memberships m ON m.channel_id = c.id AND m.user_id = $1
		WHERE NOT EXISTS (
			SELECT 1 FROM channel_bans b WHERE b.channel_id = c.id AND b.user_id = $1
		)
		ORDER BY c.id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.UUID, &c.OwnerID, &c.Name, &c.LastMessageNumber, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// ListChannelIDsForUser returns the numeric ids of every channel the user
// belongs to. The realtime gateway calls this once per connect to compute the
// session's initial channel-group subscriptions.
func (s *Store) ListChannelIDsForUser(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT channel_id FROM channel_memberships WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListChannelMembers returns the public profiles of every member of a channel.
func (s *Store) ListChannelMembers(ctx context.Context, channelID int64) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username, u.is_staff, u.avatar
		FROM users u
		JOIN channel_memberships m ON m.user_id = u.id
		WHERE m.channel_id = $1
		ORDER BY m.created_at`,
		channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsStaff, &u.Avatar); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// RenameChannel updates the channel name.
func (s *Store) RenameChannel(ctx context.Context, channelID int64, name string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE channels SET name = $2, updated_at = now() WHERE id = $1`,
		channelID, name,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChannel removes the channel; memberships, messages, invitations and
// bans go with it through ON DELETE CASCADE.
func (s *Store) DeleteChannel(ctx context.Context, channelID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, channelID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
