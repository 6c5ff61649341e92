/*
Package handler provides the HTTP handlers and routing setup for the exchange service.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to the room handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"secretsanta/internal/pkg/limiter"
	"secretsanta/internal/pkg/logx"
	"secretsanta/internal/pkg/resp"
)

// Admission rates for the mutating endpoints. Room creation is the most
// abusable surface and gets the tightest bucket; the registration flow
// triggers expensive client-side derivation and stays modest.
const (
	CreateRate  = 0.05
	CreateBurst = 2
	MutateRate  = 0.5
	MutateBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	createGuard := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	mutateGuard := limiter.NewIPRateLimiter(rate.Limit(MutateRate), MutateBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
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
			"service": "Secret Santa Exchange",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.With(createGuard.Middleware).Post("/rooms", HandleCreateRoom(deps))

		api.Route("/rooms/{roomID}", func(room chi.Router) {
			room.Get("/", HandleRoomInfo(deps))
			room.Post("/login", HandleLogin(deps))

			room.Group(func(mutating chi.Router) {
				mutating.Use(mutateGuard.Middleware)
				mutating.Post("/init-register", HandleInitRegister(deps))
				mutating.Post("/register", HandleRegister(deps))
				mutating.Post("/host/auth", HandleHostAuthenticate(deps))
				mutating.Post("/host/remove", HandleRemoveParticipant(deps))
				mutating.Post("/host/start", HandleStartRoom(deps))
			})
		})
	})

	return r
}
