package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wavechat/internal/app/store"
	"wavechat/internal/pkg/auth/jwt"
	"wavechat/internal/pkg/errs"
)

// identityFromRequest resolves the authenticated user id from the JWT payload
// injected by the identity middleware. A nil error means the user is signed in.
func identityFromRequest(r *http.Request) (uuid.UUID, *errs.CustomError) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		return uuid.Nil, errs.NewError(errs.ErrUnauthorized)
	}

	userID, err := uuid.Parse(payload.ID)
	if err != nil {
		return uuid.Nil, errs.NewError(errs.ErrUnauthorized)
	}
	return userID, nil
}

// uuidFromPath parses a UUID route parameter.
func uuidFromPath(r *http.Request, param string) (uuid.UUID, *errs.CustomError) {
	raw := chi.URLParam(r, param)

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewError(errs.ErrInvalidParams)
	}
	return id, nil
}

// channelForMember resolves the channel from the channel_uuid route parameter
// and verifies the user belongs to it. Non-members get the same not-found
// answer as for channels that do not exist, so membership is not probeable.
func channelForMember(r *http.Request, deps *AppDeps, userID uuid.UUID) (store.Channel, *errs.CustomError) {
	channelUUID, customErr := uuidFromPath(r, "channel_uuid")
	if customErr != nil {
		return store.Channel{}, customErr
	}

	channel, err := deps.Store.GetChannelByUUID(r.Context(), channelUUID)
	if err != nil {
		if err == store.ErrNotFound {
			return store.Channel{}, errs.NewError(errs.ErrChannelNotFound)
		}
		return store.Channel{}, errs.NewError(errs.ErrUnknown)
	}

	isMember, err := deps.Store.IsMember(r.Context(), userID, channel.ID)
	if err != nil {
		return store.Channel{}, errs.NewError(errs.ErrUnknown)
	}
	if !isMember {
		return store.Channel{}, errs.NewError(errs.ErrChannelNotFound)
	}

	return channel, nil
}

// channelForAdmin additionally requires the user to be a channel admin.
func channelForAdmin(r *http.Request, deps *AppDeps, userID uuid.UUID) (store.Channel, *errs.CustomError) {
	channel, customErr := channelForMember(r, deps, userID)
	if customErr != nil {
		return store.Channel{}, customErr
	}

	membership, err := deps.Store.GetMembership(r.Context(), userID, channel.ID)
	if err != nil {
		return store.Channel{}, errs.NewError(errs.ErrUnknown)
	}
	if !membership.IsAdmin {
		return store.Channel{}, errs.NewError(errs.ErrForbidden)
	}

	return channel, nil
}
