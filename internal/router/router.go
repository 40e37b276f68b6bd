// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/config"
	"github.com/tixops/suggest-api/internal/handler"
	"github.com/tixops/suggest-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSuggestions registers the suggestion surface under
// /suggestions. Every route requires a valid bearer token with the
// USER or ADMIN role; the Redis token bucket throttles the group as a
// whole and the response cache sits only on the event-details lookup.
func RegisterSuggestions(e *echo.Echo, sh *handler.SuggestionHandler, fh *handler.FeedbackHandler, cfg config.Config, rdb *redis.Client, log zerolog.Logger) {
	g := e.Group(
		"/suggestions",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole("USER", "ADMIN"),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	)

	g.GET("/search-events", sh.SearchEvents)
	g.GET("/account-suggestions", sh.AccountSuggestions)
	g.POST("/bulk-account-suggestions", sh.BulkAccountSuggestions)
	g.GET("/active-nicknames", sh.ActiveNicknames)
	g.GET("/event/:event_id", sh.EventDetails, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	g.POST("/account-suggestions/feedback", fh.LogFeedback)
	// The websocket shares the group's auth but skips the token bucket;
	// rate-limit headers cannot be written on an upgraded connection.
	ws := e.Group(
		"/suggestions/ws",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole("USER", "ADMIN"),
	)
	ws.GET("/account-suggestions/feedback", fh.StreamFeedback)
}
