package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/irfandhmahudi/backend-mern/internal/jwt"
	"github.com/irfandhmahudi/backend-mern/internal/repository"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

// AuthMiddleware is the gate in front of protected routes: it reads the jwt
// cookie, verifies signature and expiry, resolves the user, and attaches it
// to the request before the handler runs.
func AuthMiddleware(issuer *jwt.Issuer, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(jwt.CookieName)
		if tokenString == "" {
			return fail(c, fiber.StatusUnauthorized, "Not authorized, no token")
		}

		claims, err := issuer.Validate(tokenString)
		if err != nil {
			if errors.Is(err, jwtv5.ErrTokenExpired) {
				return fail(c, fiber.StatusUnauthorized, "Token has expired")
			}
			return fail(c, fiber.StatusUnauthorized, "Invalid token")
		}

		userIDStr, ok := claims["sub"].(string)
		if !ok {
			return fail(c, fiber.StatusUnauthorized, "Invalid token claims")
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return fail(c, fiber.StatusUnauthorized, "Invalid user ID in token")
		}

		user, err := users.FindByID(c.Context(), userID)
		if err != nil {
			return fail(c, fiber.StatusNotFound, "User not found")
		}

		c.Locals("user", user)

		return c.Next()
	}
}

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()
		statusCode := c.Response().StatusCode()

		if err != nil {
			var e *fiber.Error

			if errors.As(err, &e) {
				statusCode = e.Code
			} else {
				statusCode = fiber.StatusInternalServerError
			}
		}

		method := c.Method()
		path := c.Path()
		statusStr := fmt.Sprintf("%d", statusCode)

		httpRequestTotal.WithLabelValues(method, path, statusStr).Inc()
		httpRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		return err
	}
}
