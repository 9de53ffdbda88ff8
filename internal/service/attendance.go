package service

import (
	"context"
	"strings"

	"github.com/iliyamo/match-session-planner/internal/model"
	"github.com/iliyamo/match-session-planner/internal/queue"
	"github.com/iliyamo/match-session-planner/internal/utils"
)

// Who removed an attendance, as reported in activity events.
const (
	removedByAttendee  = "attendee"
	removedByOrganizer = "organizer"
)

// JoinInput carries the details of a player joining a session.
type JoinInput struct {
	PlayerName string
	Email      string
}

// Join registers a player for session sessionID.  It fails with
// ErrNotFound when the session does not exist and with ErrSessionFull
// when the session already has maxParticipants attendees.  The returned
// attendance includes the attendance code; it is not shown again.
func (s *SessionService) Join(ctx context.Context, sessionID string, in JoinInput) (model.Attendance, error) {
	out, ev, err := s.join(ctx, sessionID, in)
	if err != nil {
		return model.Attendance{}, err
	}
	s.notify(ctx, ev)
	return out, nil
}

func (s *SessionService) join(ctx context.Context, sessionID string, in JoinInput) (model.Attendance, queue.ActivityEvent, error) {
	name := strings.TrimSpace(in.PlayerName)
	if name == "" {
		return model.Attendance{}, queue.ActivityEvent{}, invalid("playerName is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return model.Attendance{}, queue.ActivityEvent{}, err
	}
	idx := findSession(snap, sessionID)
	if idx < 0 {
		return model.Attendance{}, queue.ActivityEvent{}, ErrNotFound
	}
	sess := snap.Sessions[idx]
	count := countAttendees(snap, sessionID)
	if count >= sess.MaxParticipants {
		return model.Attendance{}, queue.ActivityEvent{}, ErrSessionFull
	}

	id, err := s.uniqueID(func(v string) bool {
		for _, a := range snap.Attendances {
			if a.ID == v {
				return true
			}
		}
		return false
	})
	if err != nil {
		return model.Attendance{}, queue.ActivityEvent{}, err
	}
	code, err := s.uniqueCode(utils.DefaultCodeLength, func(v string) bool {
		for _, a := range snap.Attendances {
			if a.SessionID == sessionID && a.AttendanceCode == v {
				return true
			}
		}
		// keep attendance codes distinct from the management code
		return v == sess.ManagementCode
	})
	if err != nil {
		return model.Attendance{}, queue.ActivityEvent{}, err
	}

	att := model.Attendance{
		ID:             id,
		SessionID:      sessionID,
		PlayerName:     name,
		Email:          strings.TrimSpace(in.Email),
		AttendanceCode: code,
		JoinedAt:       s.timestamp(),
	}
	snap.Attendances = append(snap.Attendances, att)
	if err := s.save(ctx, snap); err != nil {
		return model.Attendance{}, queue.ActivityEvent{}, err
	}

	ev := queue.ActivityEvent{
		Type:         queue.AttendanceJoined,
		SessionID:    sess.ID,
		SessionTitle: sess.Title,
		SessionType:  string(sess.SessionType),
		AttendanceID: att.ID,
		PlayerName:   att.PlayerName,
		Attendees:    count + 1,
		Capacity:     sess.MaxParticipants,
	}
	return att, ev, nil
}

// LeaveInput identifies the attendance to remove and the code that
// authorises it.  IsManagementCode records which code the caller meant
// to present; either code is accepted regardless.
type LeaveInput struct {
	AttendanceID     string
	Code             string
	IsManagementCode bool
}

// Leave removes an attendance from session sessionID.  The code must be
// the attendance's own code or the session's management code; anything
// else yields ErrForbidden.  ErrNotFound is returned when no attendance
// with that id belongs to the session.
func (s *SessionService) Leave(ctx context.Context, sessionID string, in LeaveInput) error {
	ev, err := s.leave(ctx, sessionID, in)
	if err != nil {
		return err
	}
	s.notify(ctx, ev)
	return nil
}

func (s *SessionService) leave(ctx context.Context, sessionID string, in LeaveInput) (queue.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return queue.ActivityEvent{}, err
	}
	idx := -1
	for i, a := range snap.Attendances {
		if a.ID == in.AttendanceID && a.SessionID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return queue.ActivityEvent{}, ErrNotFound
	}
	att := snap.Attendances[idx]

	// the parent session may be gone if the store was edited by hand
	var sess model.Session
	if si := findSession(snap, sessionID); si >= 0 {
		sess = snap.Sessions[si]
	}

	byAttendee := codeMatches(att.AttendanceCode, in.Code)
	byOrganizer := codeMatches(sess.ManagementCode, in.Code)
	if !byAttendee && !byOrganizer {
		return queue.ActivityEvent{}, ErrForbidden
	}

	snap.Attendances = append(snap.Attendances[:idx], snap.Attendances[idx+1:]...)
	if err := s.save(ctx, snap); err != nil {
		return queue.ActivityEvent{}, err
	}

	removedBy := removedByAttendee
	if byOrganizer && (!byAttendee || in.IsManagementCode) {
		removedBy = removedByOrganizer
	}
	ev := queue.ActivityEvent{
		Type:         queue.AttendanceLeft,
		SessionID:    sessionID,
		SessionTitle: sess.Title,
		SessionType:  string(sess.SessionType),
		AttendanceID: att.ID,
		PlayerName:   att.PlayerName,
		RemovedBy:    removedBy,
		Attendees:    countAttendees(snap, sessionID),
		Capacity:     sess.MaxParticipants,
	}
	return ev, nil
}
