package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const identityKey = "auth.identity"

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware rejects requests without a valid bearer token. Missing and
// invalid tokens are answered with 401, forbidden callers with 403.
func Middleware(verifier Verifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
				return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error())
			}

			identity, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, ErrForbidden) {
					logger.Warn("Request rejected: forbidden", zap.String("path", c.Path()), zap.Error(err))
					return echo.NewHTTPError(http.StatusForbidden, ErrForbidden.Error()).SetInternal(err)
				}
				logger.Warn("Request rejected: invalid token", zap.String("path", c.Path()), zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error()).SetInternal(err)
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the caller authenticated by Middleware, if any
func IdentityFrom(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(identityKey).(*Identity)
	return identity, ok
}
