package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Invitation grants whoever holds its UUID the right to join a channel until
// it expires. The UUID itself is the invitation token.
type Invitation struct {
	UUID      uuid.UUID `json:"uuid"`
	AuthorID  uuid.UUID `json:"author_id"`
	ChannelID int64     `json:"-"`
	ExpiresIn time.Time `json:"expires_in"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInvitation issues an invitation to the channel valid for the given duration.
func (s *Store) CreateInvitation(ctx context.Context, authorID uuid.UUID, channelID int64, validFor time.Duration) (Invitation, error) {
	var inv Invitation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO invitations (author_id, channel_id, expires_in)
		VALUES ($1, $2, now() + $3)
		RETURNING uuid, author_id, channel_id, expires_in, created_at`,
		authorID, channelID, validFor,
	).Scan(&inv.UUID, &inv.AuthorID, &inv.ChannelID, &inv.ExpiresIn, &inv.CreatedAt)
	return inv, err
}

// GetValidInvitation resolves an invitation token, treating expired tokens the
// same as missing ones.
func (s *Store) GetValidInvitation(ctx context.Context, invitationUUID uuid.UUID) (Invitation, error) {
	var inv Invitation
	err := s.pool.QueryRow(ctx, `
		SELECT uuid, author_id, channel_id, expires_in, created_at
		FROM invitations
		WHERE uuid = $1 AND expires_in > now()`,
		invitationUUID,
	).Scan(&inv.UUID, &inv.AuthorID, &inv.ChannelID, &inv.ExpiresIn, &inv.CreatedAt)
	return inv, wrapNotFound(err)
}

// ListInvitations returns the still-valid invitations of a channel.
func (s *Store) ListInvitations(ctx context.Context, channelID int64) ([]Invitation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uuid, author_id, channel_id, expires_in, created_at
		FROM invitations
		WHERE channel_id = $1 AND expires_in > now()
		ORDER BY created_at DESC`,
		channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.UUID, &inv.AuthorID, &inv.ChannelID, &inv.ExpiresIn, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// RecordInvitationAcceptance remembers which user consumed the invitation.
// Duplicate acceptances are ignored.
func (s *Store) RecordInvitationAcceptance(ctx context.Context, userID, invitationUUID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invitation_acceptances (user_id, invitation_uuid)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT acceptance_user_invitation_unique DO NOTHING`,
		userID, invitationUUID,
	)
	return err
}
