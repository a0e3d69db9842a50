/*
Package handler provides HTTP handler functions for channel invitations.
*/
package handler

import (
	"net/http"
	"time"

	"wavechat/internal/app/db"
	"wavechat/internal/app/store"
	"wavechat/internal/pkg/errs"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/req"
	"wavechat/internal/pkg/resp"
)

const (
	// DefaultInvitationValidity is how long an invitation lives when the
	// request does not say otherwise.
	DefaultInvitationValidity = 24 * time.Hour

	// MaxInvitationValidity caps how far ahead an invitation may expire.
	MaxInvitationValidity = 7 * 24 * time.Hour
)

type CreateInvitationInput struct {
	ValidForHours int `json:"valid_for_hours"`
}

// HandleCreateInvitation issues an invitation token for a channel. Admin only.
func HandleCreateInvitation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channel, customErr := channelForAdmin(r, deps, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateInvitationInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		validFor := DefaultInvitationValidity
		if input.ValidForHours != 0 {
			validFor = time.Duration(input.ValidForHours) * time.Hour
			if validFor <= 0 || validFor > MaxInvitationValidity {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
		}

		invitation, err := deps.Store.CreateInvitation(r.Context(), userID, channel.ID, validFor)
		if err != nil {
			logx.Error(err, "create_invitation: insert failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"invitation": invitation,
		})
	}
}

// HandleListInvitations lists the still-valid invitations of a channel. Admin only.
func HandleListInvitations(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channel, customErr := channelForAdmin(r, deps, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		invitations, err := deps.Store.ListInvitations(r.Context(), channel.ID)
		if err != nil {
			logx.Error(err, "list_invitations: query failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"invitations": invitations,
		})
	}
}

// HandleAcceptInvitation redeems an invitation token and joins the channel.
// A successful join is announced to the user's own group so open sessions
// start receiving the channel immediately.
func HandleAcceptInvitation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		invitationUUID, customErr := uuidFromPath(r, "invitation_uuid")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		invitation, err := deps.Store.GetValidInvitation(r.Context(), invitationUUID)
		if err != nil {
			if err == store.ErrNotFound {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvitationInvalid))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		banned, err := deps.Store.IsBanned(r.Context(), userID, invitation.ChannelID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if banned {
			resp.RespondError(w, r, errs.NewError(errs.ErrBannedFromChannel))
			return
		}

		if _, err := deps.Store.CreateMembership(r.Context(), userID, invitation.ChannelID); err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyMember))
				return
			}
			logx.Error(err, "accept_invitation: membership insert failed", "channel_id", invitation.ChannelID, "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Store.RecordInvitationAcceptance(r.Context(), userID, invitationUUID); err != nil {
			logx.Error(err, "accept_invitation: failed to record acceptance", "invitation_uuid", invitationUUID)
		}

		deps.Publisher.ChannelJoined(r.Context(), userID, invitation.ChannelID)

		channel, err := deps.Store.GetChannelByID(r.Context(), invitation.ChannelID)
		if err != nil {
			logx.Error(err, "accept_invitation: channel fetch failed after join", "channel_id", invitation.ChannelID)
			resp.RespondSuccess(w, r, nil)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"channel": channel.Wire(),
		})
	}
}
