package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/match-session-planner/internal/handler"    // import the handlers that implement the API
	"github.com/iliyamo/match-session-planner/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not touch session data: the
// welcome page and the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Welcome)
	e.GET("/healthz", handler.Health)
}

// SessionMiddleware groups the optional middleware applied to the session
// API.  Cache wraps read endpoints; Limit and Invalidate wrap endpoints
// that change data.  Nil entries are skipped.
type SessionMiddleware struct {
	Cache      echo.MiddlewareFunc
	Limit      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

func compact(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterSessions mounts the session and attendance API under /api.
// None of these routes require a token; possession of the right code is
// checked by the service.
func RegisterSessions(e *echo.Echo, h *handler.SessionHandler, mw SessionMiddleware) {
	g := e.Group("/api/sessions")

	read := compact(mw.Cache)
	write := compact(mw.Limit, mw.Invalidate)

	// ---- Sessions ----
	g.GET("", h.ListPublic, read...)
	g.POST("", h.Create, write...)
	// :id is a session id or a private code
	g.GET("/:id", h.Get, read...)
	g.PUT("/:id", h.Update, write...)
	g.DELETE("/:id", h.Delete, write...)

	// ---- Attendance ----
	g.POST("/:id/attend", h.Join, write...)
	g.DELETE("/:id/attend/:attendanceId", h.Leave, write...)
	g.GET("/:id/attendees", h.ListAttendees, read...)
}

// RegisterAdmin registers the operator API.  Login is open; everything
// else requires a valid access token with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST("/api/admin/login", a.Login)

	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(handler.RoleAdmin),
	)
	g.GET("/sessions", a.ListSessions)
}
