package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/novabank/onboard/config"
	authmw "github.com/novabank/onboard/middleware/auth"
	"github.com/novabank/onboard/middleware/ratelimit"
	"github.com/novabank/onboard/services/audit"
	"github.com/novabank/onboard/services/credentials"
	"github.com/novabank/onboard/services/fingerprint"
	"github.com/novabank/onboard/services/logging"
	"github.com/novabank/onboard/services/mfa"
	"github.com/novabank/onboard/services/token"
	"github.com/novabank/onboard/session"
	"go.uber.org/zap"
)

type Handler struct {
	config      *config.Config
	credentials *credentials.Service
	mfa         *mfa.Service
	manager     *session.Manager
	tokens      *token.Service
	audit       *audit.Service
	logger      *logging.Service
}

func NewHandler(cfg *config.Config, creds *credentials.Service, mfaSvc *mfa.Service, manager *session.Manager, tokens *token.Service, auditSvc *audit.Service, logger *logging.Service) *Handler {
	return &Handler{
		config:      cfg,
		credentials: creds,
		mfa:         mfaSvc,
		manager:     manager,
		tokens:      tokens,
		audit:       auditSvc,
		logger:      logger,
	}
}

// RegisterRoutes wires the authentication surface. The login route sits
// behind the rate limiter so lockout bookkeeping happens before any
// credential or session work.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	limiter := ratelimit.Middleware(&ratelimit.Config{
		Rate:   h.config.RateLimit.LoginAttempts,
		Period: h.config.RateLimit.LoginPeriod,
	})

	group := e.Group("/auth")
	group.POST("/login", h.Login, limiter)
	group.POST("/refresh", h.Refresh)

	authenticated := group.Group("", authmw.Required(h.tokens, h.manager))
	authenticated.POST("/logout", h.Logout)
	authenticated.POST("/logout-all", h.LogoutAll)
	authenticated.GET("/sessions", h.Sessions)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	UserType   string `json:"userType"`
	MFACode    string `json:"mfaCode"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "identifier and password are required"})
	}
	if req.UserType == "" {
		req.UserType = credentials.UserTypeCustomer
	}

	ctx := c.Request().Context()
	ip := c.RealIP()

	principal, err := h.credentials.Verify(ctx, req.Identifier, req.UserType, req.Password)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			h.recordLoginFailure(c, req, "invalid_credentials")
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Error: "invalid credentials",
				Code:  "INVALID_CREDENTIALS",
			})
		}
		h.logger.Error("credential verification failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "authentication unavailable",
			Code:  authmw.CodeStoreUnavailable,
		})
	}

	required, err := h.mfa.Required(ctx, principal.UserID, principal.UserType)
	if err != nil {
		h.logger.Error("MFA requirement check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "authentication unavailable",
			Code:  authmw.CodeStoreUnavailable,
		})
	}
	if required {
		if req.MFACode == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Error: "verification code required",
				Code:  "MFA_REQUIRED",
			})
		}
		if err := h.mfa.VerifyCode(ctx, principal.UserID, principal.UserType, req.MFACode); err != nil {
			h.recordLoginFailure(c, req, "invalid_mfa_code")
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Error: "invalid verification code",
				Code:  "INVALID_MFA_CODE",
			})
		}
	}

	fp := fingerprint.FromRequest(c.Request())
	tokens, err := h.manager.Create(ctx, principal.UserID, principal.UserType, ip, c.Request().UserAgent(), fp)
	if err != nil {
		h.logger.Error("session creation failed",
			zap.Uint("user_id", principal.UserID),
			zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "failed to create session",
			Code:  authmw.CodeStoreUnavailable,
		})
	}

	return c.JSON(http.StatusOK, tokens)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "refreshToken is required"})
	}

	result, err := h.manager.Refresh(c.Request().Context(), req.RefreshToken, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRefreshTokenExpired):
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Error: "refresh token has expired, log in again",
				Code:  "REFRESH_TOKEN_EXPIRED",
			})
		case errors.Is(err, session.ErrSessionNotFound):
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Error: "session not found",
				Code:  authmw.CodeInvalidSession,
			})
		case errors.Is(err, token.ErrInvalidToken),
			errors.Is(err, token.ErrMalformedToken),
			errors.Is(err, token.ErrInvalidSignature),
			errors.Is(err, token.ErrWrongTokenType):
			return c.JSON(http.StatusUnauthorized, errorResponse{
				Error: "invalid refresh token",
				Code:  authmw.CodeInvalidToken,
			})
		default:
			h.logger.Error("token refresh failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, errorResponse{
				Error: "refresh unavailable",
				Code:  authmw.CodeStoreUnavailable,
			})
		}
	}

	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Logout(c echo.Context) error {
	identity := authmw.GetIdentity(c)

	if err := h.manager.Revoke(c.Request().Context(), identity.SessionID, session.ReasonLogout); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "logout unavailable",
			Code:  authmw.CodeStoreUnavailable,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) LogoutAll(c echo.Context) error {
	identity := authmw.GetIdentity(c)

	err := h.manager.RevokeAllForUser(c.Request().Context(), identity.UserID, identity.UserType, identity.SessionID)
	if err != nil {
		h.logger.Error("logout-all failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "logout unavailable",
			Code:  authmw.CodeStoreUnavailable,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out everywhere else"})
}

func (h *Handler) Sessions(c echo.Context) error {
	identity := authmw.GetIdentity(c)

	sessions, err := h.manager.ActiveSessions(c.Request().Context(), identity.UserID, identity.UserType)
	if err != nil {
		h.logger.Error("session listing failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "session listing unavailable",
			Code:  authmw.CodeStoreUnavailable,
		})
	}

	type sessionView struct {
		SessionID    string `json:"sessionId"`
		IPAddress    string `json:"ipAddress"`
		UserAgent    string `json:"userAgent"`
		LastActivity string `json:"lastActivity"`
		Current      bool   `json:"current"`
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			SessionID:    s.ID,
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			LastActivity: s.LastActivity.Format("2006-01-02T15:04:05Z07:00"),
			Current:      s.ID == identity.SessionID,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{"sessions": views})
}

func (h *Handler) recordLoginFailure(c echo.Context, req loginRequest, reason string) {
	err := h.audit.Record(c.Request().Context(), audit.Event{
		Type:      audit.EventLoginFailure,
		UserType:  req.UserType,
		IPAddress: c.RealIP(),
		Details: map[string]any{
			"identifier": req.Identifier,
			"reason":     reason,
		},
	})
	if err != nil {
		h.logger.Error("failed to record login failure", zap.Error(err))
	}
}
