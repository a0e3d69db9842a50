package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wavechat/internal/app/user"
)

// Message is a persisted channel message. Author may be nil when the account
// was deleted after posting.
type Message struct {
	UUID      uuid.UUID  `json:"uuid"`
	ChannelID int64      `json:"-"`
	Author    *user.User `json:"user"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateMessage inserts a message and bumps the channel's last_message_number
// in the same transaction, so the counter is never ahead of or behind the rows.
func (s *Store) CreateMessage(ctx context.Context, channelID int64, author user.User, content string) (Message, error) {
	m := Message{ChannelID: channelID, Author: &author, Content: content}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return m, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO messages (channel_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING uuid, created_at, updated_at`,
		channelID, author.ID, content,
	).Scan(&m.UUID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE channels SET last_message_number = last_message_number + 1, updated_at = now()
		WHERE id = $1`,
		channelID,
	)
	if err != nil {
		return m, err
	}

	return m, tx.Commit(ctx)
}

// GetMessage returns a single message in the channel by its public identifier.
func (s *Store) GetMessage(ctx context.Context, channelID int64, messageUUID uuid.UUID) (Message, error) {
	var m Message
	var author user.User
	var authorID *uuid.UUID

	err := s.pool.QueryRow(ctx, `
		SELECT m.uuid, m.channel_id, m.content, m.created_at, m.updated_at,
		       u.id, COALESCE(u.username, ''), COALESCE(u.is_staff, FALSE), COALESCE(u.avatar, '')
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1 AND m.uuid = $2`,
		channelID, messageUUID,
	).Scan(&m.UUID, &m.ChannelID, &m.Content, &m.CreatedAt, &m.UpdatedAt,
		&authorID, &author.Username, &author.IsStaff, &author.Avatar)
	if err != nil {
		return m, wrapNotFound(err)
	}

	if authorID != nil {
		author.ID = *authorID
		m.Author = &author
	}
	return m, nil
}

// ListMessages returns up to limit messages of the channel, newest first.
func (s *Store) ListMessages(ctx context.Context, channelID int64, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.uuid, m.channel_id, m.content, m.created_at, m.updated_at,
		       u.id, COALESCE(u.username, ''), COALESCE(u.is_staff, FALSE), COALESCE(u.avatar, '')
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2`,
		channelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var author user.User
		var authorID *uuid.UUID
		if err := rows.Scan(&m.UUID, &m.ChannelID, &m.Content, &m.CreatedAt, &m.UpdatedAt,
			&authorID, &author.Username, &author.IsStaff, &author.Avatar); err != nil {
			return nil, err
		}
		if authorID != nil {
			author.ID = *authorID
			m.Author = &author
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UpdateMessageContent edits a message in place.
func (s *Store) UpdateMessageContent(ctx context.Context, channelID int64, messageUUID uuid.UUID, content string) (Message, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET content = $3, updated_at = now()
		WHERE channel_id = $1 AND uuid = $2`,
		channelID, messageUUID, content,
	)
	if err != nil {
		return Message{}, err
	}
	return s.GetMessage(ctx, channelID, messageUUID)
}

// DeleteMessage removes a message from the channel.
func (s *Store) DeleteMessage(ctx context.Context, channelID int64, messageUUID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages WHERE channel_id = $1 AND uuid = $2`,
		channelID, messageUUID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MessageAuthorID returns the author id of a message, or nil for orphaned rows.
// Used by the permission checks on edit and delete.
func (s *Store) MessageAuthorID(ctx context.Context, channelID int64, messageUUID uuid.UUID) (*uuid.UUID, error) {
	var authorID *uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT user_id FROM messages WHERE channel_id = $1 AND uuid = $2`,
		channelID, messageUUID,
	).Scan(&authorID)
	return authorID, wrapNotFound(err)
}
