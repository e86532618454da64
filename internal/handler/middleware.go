package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/guard"
	"github.com/minato/hireline/internal/nav"
	"github.com/minato/hireline/internal/service"
	"github.com/minato/hireline/internal/session"
)

const (
	contextKeySession = "auth_session"
	contextKeyClaims  = "auth_claims"
)

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)

			return err
		}
	}
}

// ResolveSession derives the normalized session for the request from
// the Bearer token, if any, and attaches it to the echo context. It
// never rejects: gating is the guard middleware's job.
func ResolveSession(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := session.RawSession{}
			var claims service.TokenClaims

			if token := bearerToken(c.Request()); token != "" {
				raw, claims = auth.RawSession(c.Request().Context(), token)
			}

			c.Set(contextKeySession, session.Resolve(raw))
			c.Set(contextKeyClaims, claims)
			return next(c)
		}
	}
}

// RequireAuth gates a route on an authenticated session. Denied
// requests are answered with the guard's navigation decision as a 302
// to the resolved frontend destination.
func RequireAuth(resolver *nav.Resolver) echo.MiddlewareFunc {
	return requireRole(resolver, domain.RoleUnassigned)
}

// RequireRole gates a route on an authenticated session holding the
// given role.
func RequireRole(resolver *nav.Resolver, role domain.Role) echo.MiddlewareFunc {
	return requireRole(resolver, role)
}

func requireRole(resolver *nav.Resolver, role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := CurrentSession(c)

			decision, target := guard.Evaluate(sess, role)
			switch decision {
			case guard.DecisionRender:
				return next(c)
			case guard.DecisionRedirect:
				return c.Redirect(http.StatusFound, resolver.URL(target, nil))
			default:
				// A per-request evaluation never observes a loading
				// identity; treat it as not signed in.
				return c.Redirect(http.StatusFound, resolver.URL(nav.TargetLogin, nil))
			}
		}
	}
}

// CurrentSession returns the normalized session attached to the request.
func CurrentSession(c echo.Context) session.Session {
	if sess, ok := c.Get(contextKeySession).(session.Session); ok {
		return sess
	}
	return session.Session{Status: session.StatusUnauthenticated}
}

// CurrentClaims returns the validated token claims for the request.
func CurrentClaims(c echo.Context) (service.TokenClaims, bool) {
	claims, ok := c.Get(contextKeyClaims).(service.TokenClaims)
	return claims, ok && claims.UserID > 0
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
