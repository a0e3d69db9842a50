/*
Package handler provides the HTTP handlers and routing setup for the WaveChat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"wavechat/internal/pkg/auth/jwt"
	"wavechat/internal/pkg/limiter"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/resp"
)

const (
	CreateRate    = 0.05
	CreateBurst   = 2
	ConnectRate   = 0.2
	ConnectBurst  = 5
	RegisterRate  = 0.1
	RegisterBurst = 3
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "WaveChat Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", registerLimiter.Middleware(HandleRegister(deps)).ServeHTTP)
			auth.Post("/login", HandleLogin(deps))
		})

		api.Route("/user", func(user chi.Router) {
			user.Get("/profile", HandleGetUserProfile(deps))
			user.Post("/avatar/presign", HandlePresignAvatarURL(deps))
			user.Post("/avatar/confirm", HandleConfirmAvatar(deps))
			user.Post("/avatar/import", HandleImportAvatar(deps))
		})

		api.Route("/channels", func(channels chi.Router) {
			channels.Post("/", createLimiter.Middleware(HandleCreateChannel(deps)).ServeHTTP)
			channels.Get("/", HandleListChannels(deps))

			channels.Route("/{channel_uuid}", func(channel chi.Router) {
				channel.Get("/", HandleGetChannel(deps))
				channel.Patch("/", HandleRenameChannel(deps))
				channel.Delete("/", HandleDeleteChannel(deps))
				channel.Post("/leave", HandleLeaveChannel(deps))
				channel.Get("/members", HandleListChannelMembers(deps))

				channel.Route("/messages", func(messages chi.Router) {
					messages.Get("/", HandleListMessages(deps))
					messages.Post("/", HandleCreateMessage(deps))
					messages.Patch("/{message_uuid}", HandleUpdateMessage(deps))
					messages.Delete("/{message_uuid}", HandleDeleteMessage(deps))
				})

				channel.Route("/invitations", func(invitations chi.Router) {
					invitations.Post("/", HandleCreateInvitation(deps))
					invitations.Get("/", HandleListInvitations(deps))
				})

				channel.Route("/bans", func(bans chi.Router) {
					bans.Get("/", HandleListBans(deps))
					bans.Post("/", HandleCreateBan(deps))
					bans.Delete("/{user_uuid}", HandleDeleteBan(deps))
				})
			})
		})

		api.Post("/invitations/{invitation_uuid}/accept", HandleAcceptInvitation(deps))
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
