package app

import (
	"log/slog"

	"github.com/attaboy/matchwager/internal/auth"
	"github.com/attaboy/matchwager/internal/guard"
	"github.com/attaboy/matchwager/internal/handler"
	"github.com/attaboy/matchwager/internal/oracle"
	"github.com/attaboy/matchwager/internal/wager"
	"github.com/go-chi/chi/v5"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Oracle *oracle.Service
	Engine *wager.Engine
	JWTMgr *auth.JWTManager
	Logger *slog.Logger

	// Optional guards; nil disables them.
	RateLimiter *guard.RateLimiter
	Idempotency *guard.IdempotencyGuard

	HealthChecks       []handler.HealthCheck
	CORSAllowedOrigins string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger

	matchHandler := handler.NewMatchHandler(deps.Oracle)
	adminHandler := handler.NewAdminHandler(deps.Oracle)
	gameHandler := handler.NewGameHandler(deps.Engine)

	origins := deps.CORSAllowedOrigins
	if origins == "" {
		origins = "*"
	}

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(origins))
	r.Use(handler.JSONContentType)

	// Health (no auth, no limits)
	r.Get("/health", handler.HealthHandler(deps.HealthChecks...))

	limited := func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(handler.RateLimit(deps.RateLimiter))
		}
	}
	idempotent := func(r chi.Router) {
		if deps.Idempotency != nil {
			r.Use(handler.Idempotent(deps.Idempotency))
		}
	}

	// Public game reads
	r.Group(func(r chi.Router) {
		limited(r)
		r.Get("/games/count", gameHandler.CountGames)
		r.Get("/games/{id}", gameHandler.GetGame)
		r.Get("/tokens/{tokenId}/game", gameHandler.TokenGame)
		r.Get("/players/{addr}/games", gameHandler.PlayerGames)
		r.Get("/admin/oracle", adminHandler.GetRoles)
	})

	// Authenticated routes; the bearer subject is the caller address
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.JWTMgr))
		limited(r)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", matchHandler.ListMatches)
			r.Post("/", matchHandler.AddMatch)
			r.Get("/index/{index}", matchHandler.MatchAt)
			r.Get("/{id}", matchHandler.GetMatch)
			r.Get("/{id}/state", matchHandler.GetState)
			r.Get("/{id}/result", matchHandler.GetResult)
			r.Get("/{id}/open", matchHandler.IsOpen)
			r.Post("/{id}/postpone", matchHandler.PostponeMatch)
			r.Post("/{id}/cancel", matchHandler.CancelMatch)
			r.Post("/{id}/restore", matchHandler.RestoreMatch)
			r.Post("/{id}/result", matchHandler.ResultMatch)
		})

		r.Put("/admin/oracle", adminHandler.UpdateOracle)
		r.Post("/admin/whitelist", adminHandler.Whitelist)
		r.Delete("/admin/whitelist/{addr}", adminHandler.RemoveWhitelist)

		r.Group(func(r chi.Router) {
			idempotent(r)
			r.Post("/games", gameHandler.CreateGame)
			r.Post("/games/{id}/predictions", gameHandler.JoinGame)
			r.Post("/games/{id}/withdraw", gameHandler.Withdraw)
		})
	})

	return r
}
