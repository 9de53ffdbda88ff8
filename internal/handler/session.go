package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-session-planner/internal/model"
	"github.com/iliyamo/match-session-planner/internal/service"
)

// requestTimeout bounds how long a handler waits on the store.
const requestTimeout = 5 * time.Second

// SessionHandler exposes the session and attendance operations over HTTP.
// When HideSecrets is set, read and list responses drop management,
// private and attendance codes.  Create and join always return the codes
// they generated because the caller has no other way to learn them.
type SessionHandler struct {
	Sessions    *service.SessionService
	HideSecrets bool
	Logger      *slog.Logger
}

// NewSessionHandler wires the handler to the session service.
func NewSessionHandler(svc *service.SessionService, hideSecrets bool, logger *slog.Logger) *SessionHandler {
	if svc == nil {
		panic("nil SessionService passed to NewSessionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{Sessions: svc, HideSecrets: hideSecrets, Logger: logger}
}

// ----- DTOs -----

type createSessionReq struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	MaxParticipants int    `json:"maxParticipants"`
	SessionType     string `json:"sessionType"`
	MatchType       string `json:"matchType"`
	SkillLevel      string `json:"skillLevel"`
}

type updateSessionReq struct {
	ManagementCode  string `json:"managementCode"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	MaxParticipants int    `json:"maxParticipants"`
	MatchType       string `json:"matchType"`
	SkillLevel      string `json:"skillLevel"`
}

type joinReq struct {
	PlayerName string `json:"playerName"`
	Email      string `json:"email"`
}

// requestContext derives the store deadline from the request context.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ListPublic handles GET /api/sessions.
func (h *SessionHandler) ListPublic(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	sessions, err := h.Sessions.ListPublic(ctx)
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidMgmtCode)
	}
	if h.HideSecrets {
		for i := range sessions {
			sessions[i] = sessions[i].Public()
		}
	}
	return c.JSON(http.StatusOK, sessions)
}

// Get handles GET /api/sessions/:id.  The id segment may also be a
// private session's private code.
func (h *SessionHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.Sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidMgmtCode)
	}
	if h.HideSecrets {
		view = publicView(view)
	}
	return c.JSON(http.StatusOK, view)
}

// Create handles POST /api/sessions and answers 201 with the new session,
// codes included.
func (h *SessionHandler) Create(c echo.Context) error {
	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidBody})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Sessions.Create(ctx, service.CreateSessionInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		MaxParticipants: req.MaxParticipants,
		SessionType:     model.SessionType(req.SessionType),
		MatchType:       model.MatchType(req.MatchType),
		SkillLevel:      model.SkillLevel(req.SkillLevel),
	})
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidMgmtCode)
	}
	return c.JSON(http.StatusCreated, sess)
}

// Update handles PUT /api/sessions/:id.  The management code travels in
// the body next to the fields to change; empty fields keep their value.
func (h *SessionHandler) Update(c echo.Context) error {
	var req updateSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidBody})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Sessions.Update(ctx, c.Param("id"), req.ManagementCode, service.UpdateSessionInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		MaxParticipants: req.MaxParticipants,
		MatchType:       model.MatchType(req.MatchType),
		SkillLevel:      model.SkillLevel(req.SkillLevel),
	})
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidMgmtCode)
	}
	return c.JSON(http.StatusOK, sess)
}

// Delete handles DELETE /api/sessions/:id?managementCode=.
func (h *SessionHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Sessions.Delete(ctx, c.Param("id"), c.QueryParam("managementCode")); err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidMgmtCode)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Session deleted successfully"})
}

// Join handles POST /api/sessions/:id/attend and answers 201 with the
// attendance and its code.
func (h *SessionHandler) Join(c echo.Context) error {
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidBody})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	att, err := h.Sessions.Join(ctx, c.Param("id"), service.JoinInput{
		PlayerName: req.PlayerName,
		Email:      req.Email,
	})
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidCode)
	}
	return c.JSON(http.StatusCreated, att)
}

// Leave handles DELETE /api/sessions/:id/attend/:attendanceId.  The caller
// proves its right with ?attendanceCode= (the attendee) or
// ?managementCode= (the organizer).  When both are given either may
// match.
func (h *SessionHandler) Leave(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	attendanceID := c.Param("attendanceId")
	attendanceCode := c.QueryParam("attendanceCode")
	managementCode := c.QueryParam("managementCode")

	var err error
	switch {
	case attendanceCode != "":
		err = h.Sessions.Leave(ctx, sessionID, service.LeaveInput{AttendanceID: attendanceID, Code: attendanceCode})
		if errors.Is(err, service.ErrForbidden) && managementCode != "" {
			err = h.Sessions.Leave(ctx, sessionID, service.LeaveInput{AttendanceID: attendanceID, Code: managementCode, IsManagementCode: true})
		}
	default:
		err = h.Sessions.Leave(ctx, sessionID, service.LeaveInput{AttendanceID: attendanceID, Code: managementCode, IsManagementCode: true})
	}
	if err != nil {
		return failure(c, h.Logger, err, msgAttendanceNotFound, msgInvalidCode)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Attendance removed successfully"})
}

// ListAttendees handles GET /api/sessions/:id/attendees.  An unknown
// session yields an empty list.
func (h *SessionHandler) ListAttendees(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	attendees, err := h.Sessions.ListAttendees(ctx, c.Param("id"))
	if err != nil {
		return failure(c, h.Logger, err, msgSessionNotFound, msgInvalidCode)
	}
	if h.HideSecrets {
		for i := range attendees {
			attendees[i] = attendees[i].Public()
		}
	}
	return c.JSON(http.StatusOK, attendees)
}

// publicView strips every code from a session view.
func publicView(v model.SessionView) model.SessionView {
	v.Session = v.Session.Public()
	for i := range v.Attendees {
		v.Attendees[i] = v.Attendees[i].Public()
	}
	return v
}
