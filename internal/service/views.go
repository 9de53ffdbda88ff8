package service

import (
	"context"

	"github.com/iliyamo/match-session-planner/internal/model"
)

// resolve finds a session by id, then by private code.  The private code
// fallback is what makes a private code usable as a share link.
func resolve(snap model.Snapshot, idOrPrivateCode string) (model.Session, bool) {
	if idOrPrivateCode == "" {
		return model.Session{}, false
	}
	if i := findSession(snap, idOrPrivateCode); i >= 0 {
		return snap.Sessions[i], true
	}
	for _, sess := range snap.Sessions {
		if sess.PrivateCode != "" && sess.PrivateCode == idOrPrivateCode {
			return sess, true
		}
	}
	return model.Session{}, false
}

// attendeesOf returns the attendances of sessionID in join order.  The
// result is never nil.
func attendeesOf(snap model.Snapshot, sessionID string) []model.Attendance {
	out := []model.Attendance{}
	for _, a := range snap.Attendances {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out
}

// ListPublic returns every public session in creation order.
func (s *SessionService) ListPublic(ctx context.Context) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Session{}
	for _, sess := range snap.Sessions {
		if sess.SessionType == model.SessionPublic {
			out = append(out, sess)
		}
	}
	return out, nil
}

// ListAll returns every session, public and private, each with its
// attendees.  It backs the operator API.
func (s *SessionService) ListAll(ctx context.Context) ([]model.SessionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SessionView, 0, len(snap.Sessions))
	for _, sess := range snap.Sessions {
		out = append(out, model.SessionView{Session: sess, Attendees: attendeesOf(snap, sess.ID)})
	}
	return out, nil
}

// Get returns the session whose id or private code equals
// idOrPrivateCode together with its attendees, or ErrNotFound.
func (s *SessionService) Get(ctx context.Context, idOrPrivateCode string) (model.SessionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load(ctx)
	if err != nil {
		return model.SessionView{}, err
	}
	sess, ok := resolve(snap, idOrPrivateCode)
	if !ok {
		return model.SessionView{}, ErrNotFound
	}
	return model.SessionView{Session: sess, Attendees: attendeesOf(snap, sess.ID)}, nil
}

// ListAttendees returns the attendances of sessionID.  An unknown
// session simply has no attendees.
func (s *SessionService) ListAttendees(ctx context.Context, sessionID string) ([]model.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return attendeesOf(snap, sessionID), nil
}
