package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wavechat/internal/app/user"
)

// Ban records that a user was removed from a channel and may not rejoin.
type Ban struct {
	UUID      uuid.UUID  `json:"uuid"`
	ChannelID int64      `json:"-"`
	User      user.User  `json:"user"`
	BannedBy  *user.User `json:"banned_by"`
	Reason    *string    `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsBanned reports whether the user is banned from the channel.
func (s *Store) IsBanned(ctx context.Context, userID uuid.UUID, channelID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM channel_bans WHERE user_id = $1 AND channel_id = $2
		)`,
		userID, channelID,
	).Scan(&exists)
	return exists, err
}

// CreateBan records the ban and removes the target's membership in the same
// transaction. The caller is responsible for verifying the target is a
// non-admin member beforehand.
func (s *Store) CreateBan(ctx context.Context, channelID int64, targetID, bannedByID uuid.UUID, reason *string) (Ban, error) {
	var b Ban

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return b, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO channel_bans (channel_id, user_id, banned_by, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING uuid, channel_id, reason, created_at`,
		channelID, targetID, bannedByID, reason,
	).Scan(&b.UUID, &b.ChannelID, &b.Reason, &b.CreatedAt)
	if err != nil {
		return b, err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM channel_memberships WHERE user_id = $1 AND channel_id = $2`,
		targetID, channelID,
	)
	if err != nil {
		return b, err
	}

	if err := tx.Commit(ctx); err != nil {
		return b, err
	}

	target, err := s.GetUserByID(ctx, targetID)
	if err != nil {
		return b, err
	}
	b.User = target.Public()

	return b, nil
}

// DeleteBan lifts a ban. Returns ErrNotFound when the user was not banned.
func (s *Store) DeleteBan(ctx context.Context, channelID int64, targetID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM channel_bans WHERE channel_id = $1 AND user_id = $2`,
		channelID, targetID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBans returns all bans of a channel with the involved user profiles.
func (s *Store) ListBans(ctx context.Context, channelID int64) ([]Ban, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.uuid, b.channel_id, b.reason, b.created_at,
		       u.id, u.username, u.is_staff, u.avatar,
		       a.id, COALESCE(a.username, ''), COALESCE(a.is_staff, FALSE), COALESCE(a.avatar, '')
		FROM channel_bans b
		JOIN users u ON u.id = b.user_id
		LEFT JOIN users a ON a.id = b.banned_by
		WHERE b.channel_id = $1
		ORDER BY b.created_at DESC`,
		channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bans []Ban
	for rows.Next() {
		var b Ban
		var by user.User
		var byID *uuid.UUID
		if err := rows.Scan(&b.UUID, &b.ChannelID, &b.Reason, &b.CreatedAt,
			&b.User.ID, &b.User.Username, &b.User.IsStaff, &b.User.Avatar,
			&byID, &by.Username, &by.IsStaff, &by.Avatar); err != nil {
			return nil, err
		}
		if byID != nil {
			by.ID = *byID
			b.BannedBy = &by
		}
		bans = append(bans, b)
	}
	return bans, rows.Err()
}
