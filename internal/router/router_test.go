package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/match-session-planner/internal/config"
	"github.com/iliyamo/match-session-planner/internal/handler"
	"github.com/iliyamo/match-session-planner/internal/repository"
	"github.com/iliyamo/match-session-planner/internal/service"
)

func TestRegisteredRoutes(t *testing.T) {
	e := echo.New()
	svc := service.New(repository.NewMemoryStore())
	RegisterRoutes(e)
	RegisterSessions(e, handler.NewSessionHandler(svc, false, nil), SessionMiddleware{})
	RegisterAdmin(e, handler.NewAdminHandler(config.Config{}, svc, nil), "secret")

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /",
		"GET /healthz",
		"GET /api/sessions",
		"POST /api/sessions",
		"GET /api/sessions/:id",
		"PUT /api/sessions/:id",
		"DELETE /api/sessions/:id",
		"POST /api/sessions/:id/attend",
		"DELETE /api/sessions/:id/attend/:attendanceId",
		"GET /api/sessions/:id/attendees",
		"POST /api/admin/login",
		"GET /api/admin/sessions",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestSessionMiddlewareOrder(t *testing.T) {
	e := echo.New()
	svc := service.New(repository.NewMemoryStore())

	var seen []string
	mark := func(name string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				seen = append(seen, name)
				return next(c)
			}
		}
	}
	RegisterSessions(e, handler.NewSessionHandler(svc, false, nil), SessionMiddleware{
		Cache:      mark("cache"),
		Limit:      mark("limit"),
		Invalidate: mark("invalidate"),
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, []string{"cache"}, seen)

	seen = nil
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/sessions/x?managementCode=y", nil))
	assert.Equal(t, []string{"limit", "invalidate"}, seen)
}
