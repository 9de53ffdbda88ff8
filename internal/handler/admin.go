package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-session-planner/internal/config"
	"github.com/iliyamo/match-session-planner/internal/service"
	"github.com/iliyamo/match-session-planner/internal/utils"
)

// RoleAdmin is the role claim carried by operator tokens.
const RoleAdmin = "ADMIN"

// AdminHandler serves the operator API: a password login that issues a
// short-lived JWT and a listing of every session, private ones included.
type AdminHandler struct {
	Cfg      config.Config
	Sessions *service.SessionService
	Logger   *slog.Logger
}

// NewAdminHandler wires the operator endpoints.
func NewAdminHandler(cfg config.Config, svc *service.SessionService, logger *slog.Logger) *AdminHandler {
	if svc == nil {
		panic("nil SessionService passed to NewAdminHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{Cfg: cfg, Sessions: svc, Logger: logger}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the operator credentials against ADMIN_USER and the bcrypt
// hash in ADMIN_PASSWORD_HASH and returns an access token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidBody})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	if !h.Cfg.AdminEnabled() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "operator login disabled"})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Cfg.AdminUser)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passOK := utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password)
	if !userOK || !passOK {
		h.Logger.WarnContext(c.Request().Context(), "operator login rejected", slog.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, h.Cfg.AdminUser, RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, access)
}

// ListSessions returns every session with its attendees and codes.
func (h *AdminHandler) ListSessions(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := h.Sessions.ListAll(ctx)
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidMgmtCode)
	}
	return c.JSON(http.StatusOK, views)
}
