/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
resolving the caller's identity, upgrading the HTTP connection to WebSocket, and handing
the connection to the realtime gateway for admission and the session lifecycle.
*/
package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wavechat/internal/app/realtime"
	"wavechat/internal/app/user"
	"wavechat/internal/pkg/auth/jwt"
	"wavechat/internal/pkg/errs"
	"wavechat/internal/pkg/limiter"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/resp"
)

// wsIdentity resolves the caller's identity for a websocket request. Browsers
// cannot set headers on websocket handshakes, so a token query parameter is
// accepted alongside the Authorization header.
func wsIdentity(r *http.Request, secret string) (user.User, bool) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		return user.User{}, false
	}

	payload, err := jwt.ParseToken(tokenString, secret)
	if err != nil {
		logx.Warn("WebSocket request carried an invalid token", "error", err)
		return user.User{}, false
	}

	userID, err := uuid.Parse(payload.ID)
	if err != nil {
		return user.User{}, false
	}

	return user.User{ID: userID, Username: payload.Username}, true
}

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		currentUser, ok := wsIdentity(r, deps.Config.JWTSecret)
		if !ok {
			logx.Warn("WebSocket connection rejected: Anonymous user.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session, err := deps.Gateway.Connect(r.Context(), conn, currentUser)
		if err != nil {
			// Connect already closed the socket with the appropriate code.
			if err == realtime.ErrTooManyConnections {
				logx.Info("WebSocket connection rejected: Connection limit reached.", "user_id", currentUser.ID)
			}
			return
		}

		logx.Info("WebSocket connection established", "user_id", currentUser.ID, "session_id", session.SessionID())

		session.Run()
	}
}
