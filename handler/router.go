package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Auth      *AuthHandler
	Bookmarks *BookmarkHandler
	Users     *UserHandler
	Health    *HealthHandler
	Verifier  AppTokenVerifier
	AuthLimit RateLimiter
	Logger    *slog.Logger
}

// NewRouter builds the echo server with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(securityHeaders())
	e.Use(requestLogger(deps.Logger))
	e.Use(middleware.Recover())

	e.GET("/v1/health", deps.Health.Handle)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := e.Group("/v1/auth")
	if deps.AuthLimit != nil {
		auth.Use(RateLimit(deps.AuthLimit))
	}
	auth.GET("/login", deps.Auth.HandleLogin)
	auth.GET("/callback", deps.Auth.HandleCallback)
	auth.GET("/refresh-token", deps.Auth.HandleRefreshToken)
	auth.POST("/refresh-token", deps.Auth.HandleRefreshToken)

	protected := e.Group("/v1", RequireAuth(deps.Verifier))
	protected.GET("/bookmarks", deps.Bookmarks.HandleFetch)
	protected.GET("/bookmarks/synced", deps.Bookmarks.HandleListSynced)
	protected.GET("/users/me", deps.Users.HandleMe)

	return e
}

func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			return next(c)
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/v1/health" || path == "/metrics"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	})
}
