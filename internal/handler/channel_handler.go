/*
Package handler provides HTTP handler functions for channel management.

Channel mutations that change who receives real-time traffic (join, leave,
delete) publish control events through the Publisher so that open websocket
sessions adjust their subscriptions without reconnecting.
*/
package handler

import (
	"net/http"
	"unicode/utf8"

	"wavechat/internal/app/db"
	"wavechat/internal/app/store"
	"wavechat/internal/pkg/errs"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/req"
	"wavechat/internal/pkg/resp"
)

const (
	// MaxChannelNameLength caps channel names, in runes.
	MaxChannelNameLength = 64
)

type CreateChannelInput struct {
	Name string `json:"name"`
}

// HandleCreateChannel creates a channel owned by the authenticated user and
// enrolls the owner as its first admin member.
func HandleCreateChannel(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateChannelInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		nameLen := utf8.RuneCountInString(input.Name)
		if nameLen == 0 || nameLen > MaxChannelNameLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		channel, err := deps.Store.CreateChannel(r.Context(), userID, input.Name)
		if err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrChannelNameExists))
				return
			}
			logx.Error(err, "create_channel: insert failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Publisher.ChannelJoined(r.Context(), userID, channel.ID)

		resp.RespondSuccess(w, r, map[string]any{
			"channel": channel.Wire(),
		})
	}
}

// HandleListChannels lists the channels the authenticated user belongs to.
func HandleListChannels(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channels, err := deps.Store.ListChannelsForUser(r.Context(), userID)
		if err != nil {
			logx.Error(err, "list_channels: query failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		wire := make([]store.WireChannel, 0, len(channels))
		for _, c := range channels {
			wire = append(wire, c.Wire())
		}

		resp.RespondSuccess(w, r, map[string]any{
			"channels": wire,
		})
	}
}

// HandleGetChannel returns a single channel the user belongs to.
func HandleGetChannel(deps *AppDeps) http.HandlerFunc {
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

		resp.RespondSuccess(w, r, map[string]any{
			"channel": channel.Wire(),
		})
	}
}

// HandleListChannelMembers lists the members of a channel the user belongs to.
func HandleListChannelMembers(deps *AppDeps) http.HandlerFunc {
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

		members, err := deps.Store.ListChannelMembers(r.Context(), channel.ID)
		if err != nil {
			logx.Error(err, "list_members: query failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"members": members,
		})
	}
}

type RenameChannelInput struct {
	Name string `json:"name"`
}

// HandleRenameChannel renames a channel. Admin only.
func HandleRenameChannel(deps *AppDeps) http.HandlerFunc {
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

		var input RenameChannelInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		nameLen := utf8.RuneCountInString(input.Name)
		if nameLen == 0 || nameLen > MaxChannelNameLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.RenameChannel(r.Context(), channel.ID, input.Name); err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrChannelNameExists))
				return
			}
			logx.Error(err, "rename_channel: update failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		channel.Name = input.Name
		resp.RespondSuccess(w, r, map[string]any{
			"channel": channel.Wire(),
		})
	}
}

// HandleDeleteChannel removes the channel and everything in it. Admin only.
// Every member's live sessions are told to drop the channel subscription.
func HandleDeleteChannel(deps *AppDeps) http.HandlerFunc {
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

		members, err := deps.Store.ListChannelMembers(r.Context(), channel.ID)
		if err != nil {
			logx.Error(err, "delete_channel: member listing failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Store.DeleteChannel(r.Context(), channel.ID); err != nil {
			logx.Error(err, "delete_channel: delete failed", "channel_id", channel.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		for _, member := range members {
			deps.Publisher.ChannelLeft(r.Context(), member.ID, channel.ID)
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleLeaveChannel removes the authenticated user's membership.
func HandleLeaveChannel(deps *AppDeps) http.HandlerFunc {
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

		if err := deps.Store.DeleteMembership(r.Context(), userID, channel.ID); err != nil {
			logx.Error(err, "leave_channel: delete failed", "channel_id", channel.ID, "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Publisher.ChannelLeft(r.Context(), userID, channel.ID)

		resp.RespondSuccess(w, r, nil)
	}
}
