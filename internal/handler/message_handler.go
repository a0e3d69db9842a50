/*
Package handler provides HTTP handler functions for channel messages.

Message creation goes through the database first and is then fanned out to the
channel group, so history and live delivery never disagree about what exists.
*/
package handler

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"wavechat/internal/app/store"
	"wavechat/internal/pkg/errs"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/req"
	"wavechat/internal/pkg/resp"
)

const (
	// MaxMessageContentLength caps message content, in runes.
	MaxMessageContentLength = 2000

	// DefaultMessagePageSize is how many messages a history request returns
	// when no limit is given.
	DefaultMessagePageSize = 50

	// MaxMessagePageSize caps the history page size.
	MaxMessagePageSize = 200
)

type CreateMessageInput struct {
	Content string `json:"content"`
}

// HandleCreateMessage stores a message in a channel the user belongs to and
// publishes it to the channel group for live delivery.
func HandleCreateMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channel, customErr := channelForMember(r, deps, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		contentLen := utf8.RuneCountInString(input.Content)
		if contentLen == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if contentLen > MaxMessageContentLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		record, err := deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		message, err := deps.Store.CreateMessage(r.Context(), channel.ID, record.Public(), input.Content)
		if err != nil {
			logx.Error(err, "create_message: insert failed", "channel_id", channel.ID, "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		channel.LastMessageNumber++
		deps.Publisher.MessageCreated(r.Context(), channel.ID, message, channel.Wire())

		resp.RespondSuccess(w, r, map[string]any{
			"message": message,
		})
	}
}

// HandleListMessages returns the most recent messages of a channel.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channel, customErr := channelForMember(r, deps, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		limit := DefaultMessagePageSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			if parsed > MaxMessagePageSize {
				parsed = MaxMessagePageSize
			}
			limit = parsed
		}

		messages, err := deps.Store.ListMessages(r.Context(), channel.ID, limit)
		if err != nil {
			logx.Error(err, "list_messages: query failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
		})
	}
}

type UpdateMessageInput struct {
	Content string `json:"content"`
}

// HandleUpdateMessage edits a message's content. Only the author may edit.
func HandleUpdateMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channel, customErr := channelForMember(r, deps, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		messageUUID, customErr := uuidFromPath(r, "message_uuid")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input UpdateMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		contentLen := utf8.RuneCountInString(input.Content)
		if contentLen == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if contentLen > MaxMessageContentLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		authorID, err := deps.Store.MessageAuthorID(r.Context(), channel.ID, messageUUID)
		if err != nil {
			if err == store.ErrNotFound {
				resp.RespondError(w, r, errs.NewError(errs.ErrMessageNotFound))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if authorID == nil || *authorID != userID {
			resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
			return
		}

		message, err := deps.Store.UpdateMessageContent(r.Context(), channel.ID, messageUUID, input.Content)
		if err != nil {
			logx.Error(err, "update_message: update failed", "channel_id", channel.ID, "message_uuid", messageUUID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"message": message,
		})
	}
}

// HandleDeleteMessage removes a message. The author or a channel admin may delete.
func HandleDeleteMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channel, customErr := channelForMember(r, deps, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		messageUUID, customErr := uuidFromPath(r, "message_uuid")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		authorID, err := deps.Store.MessageAuthorID(r.Context(), channel.ID, messageUUID)
		if err != nil {
			if err == store.ErrNotFound {
				resp.RespondError(w, r, errs.NewError(errs.ErrMessageNotFound))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if authorID == nil || *authorID != userID {
			membership, err := deps.Store.GetMembership(r.Context(), userID, channel.ID)
			if err != nil || !membership.IsAdmin {
				resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
				return
			}
		}

		if err := deps.Store.DeleteMessage(r.Context(), channel.ID, messageUUID); err != nil {
			logx.Error(err, "delete_message: delete failed", "channel_id", channel.ID, "message_uuid", messageUUID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
