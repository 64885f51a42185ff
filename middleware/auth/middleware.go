package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/novabank/onboard/services/audit"
	"github.com/novabank/onboard/services/fingerprint"
	"github.com/novabank/onboard/services/token"
	"github.com/novabank/onboard/session"
)

const (
	IdentityKey    = "_auth_identity"
	AccessTokenKey = "_auth_access_token"
)

// Machine-readable error codes. Clients use TOKEN_EXPIRED to retry with a
// refresh; SESSION_EXPIRED and DEVICE_MISMATCH force full re-authentication.
const (
	CodeMissingToken      = "MISSING_TOKEN"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeInvalidSession    = "INVALID_SESSION"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeDeviceMismatch    = "DEVICE_MISMATCH"
	CodeInsufficientPerms = "INSUFFICIENT_PERMISSIONS"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Required rejects requests without a valid, device-bound session.
func Required(tokens *token.Service, manager *session.Manager) echo.MiddlewareFunc {
	return authenticate(tokens, manager, true)
}

// Optional resolves the identity when a token is presented but lets
// unauthenticated requests through.
func Optional(tokens *token.Service, manager *session.Manager) echo.MiddlewareFunc {
	return authenticate(tokens, manager, false)
}

func authenticate(tokens *token.Service, manager *session.Manager, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c)
			if !ok {
				if !required {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, errorResponse{
					Error: "authorization token required",
					Code:  CodeMissingToken,
				})
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				return tokenError(c, err)
			}

			fp := fingerprint.FromRequest(c.Request())
			identity, err := manager.Validate(c.Request().Context(), claims.SessionID, tokenString, fp)
			if err != nil {
				return sessionError(c, err)
			}

			c.Set(IdentityKey, identity)
			c.Set(AccessTokenKey, tokenString)

			return next(c)
		}
	}
}

// RequireUserType rejects authenticated principals whose role is not in the
// allowed set, recording a denied attempt in the security event log.
// Must run after Required.
func RequireUserType(auditSvc *audit.Service, allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := GetIdentity(c)
			if identity == nil {
				return c.JSON(http.StatusUnauthorized, errorResponse{
					Error: "authentication required",
					Code:  CodeMissingToken,
				})
			}

			for _, userType := range allowed {
				if identity.UserType == userType {
					return next(c)
				}
			}

			if auditSvc != nil {
				_ = auditSvc.Record(c.Request().Context(), audit.Event{
					Type:      audit.EventUnauthorizedAccess,
					UserID:    &identity.UserID,
					UserType:  identity.UserType,
					SessionID: identity.SessionID,
					IPAddress: c.RealIP(),
					Details: map[string]any{
						"path":     c.Request().URL.Path,
						"required": allowed,
					},
				})
			}

			return c.JSON(http.StatusForbidden, errorResponse{
				Error: "insufficient permissions",
				Code:  CodeInsufficientPerms,
			})
		}
	}
}

func GetIdentity(c echo.Context) *session.Identity {
	if identity, ok := c.Get(IdentityKey).(*session.Identity); ok {
		return identity
	}
	return nil
}

func GetAccessToken(c echo.Context) string {
	if tokenString, ok := c.Get(AccessTokenKey).(string); ok {
		return tokenString
	}
	return ""
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == "" {
		return "", false
	}

	return tokenString, true
}

func tokenError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Error: "access token has expired",
			Code:  CodeTokenExpired,
		})
	default:
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Error: "invalid access token",
			Code:  CodeInvalidToken,
		})
	}
}

func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Error: "session has expired",
			Code:  CodeSessionExpired,
		})
	case errors.Is(err, session.ErrDeviceMismatch):
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Error: "device verification failed",
			Code:  CodeDeviceMismatch,
		})
	case errors.Is(err, session.ErrInvalidSession), errors.Is(err, session.ErrSessionNotFound):
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Error: "invalid session",
			Code:  CodeInvalidSession,
		})
	default:
		// Store failure or timeout: deny, never default to access.
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "session validation unavailable",
			Code:  CodeStoreUnavailable,
		})
	}
}
