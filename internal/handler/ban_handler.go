/*
Package handler provides HTTP handler functions for channel bans.

Banning removes the target's membership in the same transaction that records
the ban, then tells the target's live sessions to drop the channel.
*/
package handler

import (
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"wavechat/internal/app/db"
	"wavechat/internal/pkg/errs"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/req"
	"wavechat/internal/pkg/resp"
)

const (
	// MaxBanReasonLength caps the free-text ban reason, in runes.
	MaxBanReasonLength = 500
)

type CreateBanInput struct {
	UserID string  `json:"user_id"`
	Reason *string `json:"reason"`
}

// HandleCreateBan bans a member from a channel. Admin only. The target must be
// a non-admin member; admins cannot ban themselves or each other.
func HandleCreateBan(deps *AppDeps) http.HandlerFunc {
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

		var input CreateBanInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		targetID, err := uuid.Parse(input.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if input.Reason != nil && utf8.RuneCountInString(*input.Reason) > MaxBanReasonLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if targetID == userID {
			resp.RespondError(w, r, errs.NewError(errs.ErrCannotBanSelf))
			return
		}

		membership, err := deps.Store.GetMembership(r.Context(), targetID, channel.ID)
		if err != nil || membership.IsAdmin {
			resp.RespondError(w, r, errs.NewError(errs.ErrCannotBanAdmin))
			return
		}

		ban, err := deps.Store.CreateBan(r.Context(), channel.ID, targetID, userID, input.Reason)
		if err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrBannedFromChannel))
				return
			}
			logx.Error(err, "create_ban: insert failed", "channel_id", channel.ID, "target_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Publisher.ChannelLeft(r.Context(), targetID, channel.ID)

		resp.RespondSuccess(w, r, map[string]any{
			"ban": ban,
		})
	}
}

// HandleListBans lists the bans of a channel. Admin only.
func HandleListBans(deps *AppDeps) http.HandlerFunc {
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

		bans, err := deps.Store.ListBans(r.Context(), channel.ID)
		if err != nil {
			logx.Error(err, "list_bans: query failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"bans": bans,
		})
	}
}

// HandleDeleteBan lifts a ban. Admin only. The target does not get their
// membership back; they must be invited again.
func HandleDeleteBan(deps *AppDeps) http.HandlerFunc {
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

		targetID, customErr := uuidFromPath(r, "user_uuid")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.DeleteBan(r.Context(), channel.ID, targetID); err != nil {
			logx.Error(err, "delete_ban: delete failed", "channel_id", channel.ID, "target_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
