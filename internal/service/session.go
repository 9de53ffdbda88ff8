package service

import (
	"context"
	"strings"

	"github.com/iliyamo/match-session-planner/internal/model"
	"github.com/iliyamo/match-session-planner/internal/queue"
	"github.com/iliyamo/match-session-planner/internal/utils"
)

// CreateSessionInput carries the caller supplied fields of a new session.
// Empty MatchType and SkillLevel fall back to singles and all.
type CreateSessionInput struct {
	Title           string
	Description     string
	Date            string
	Time            string
	MaxParticipants int
	SessionType     model.SessionType
	MatchType       model.MatchType
	SkillLevel      model.SkillLevel
}

func (in CreateSessionInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return invalid("title is required")
	case strings.TrimSpace(in.Date) == "":
		return invalid("date is required")
	case strings.TrimSpace(in.Time) == "":
		return invalid("time is required")
	case in.MaxParticipants < 1:
		return invalid("maxParticipants must be a positive integer")
	case !in.SessionType.Valid():
		return invalid("sessionType must be public or private")
	case in.MatchType != "" && !in.MatchType.Valid():
		return invalid("matchType must be singles, doubles or tournament")
	case in.SkillLevel != "" && !in.SkillLevel.Valid():
		return invalid("skillLevel must be beginner, intermediate, advanced or all")
	}
	return nil
}

// UpdateSessionInput lists the mutable fields.  A zero value means "keep
// the current value": an empty string or a zero maxParticipants never
// overwrites anything.
type UpdateSessionInput struct {
	Title           string
	Description     string
	Date            string
	Time            string
	MaxParticipants int
	MatchType       model.MatchType
	SkillLevel      model.SkillLevel
}

func (in UpdateSessionInput) validate() error {
	switch {
	case in.MaxParticipants < 0:
		return invalid("maxParticipants must be a positive integer")
	case in.MatchType != "" && !in.MatchType.Valid():
		return invalid("matchType must be singles, doubles or tournament")
	case in.SkillLevel != "" && !in.SkillLevel.Valid():
		return invalid("skillLevel must be beginner, intermediate, advanced or all")
	}
	return nil
}

// apply merges the non-zero fields of in into cur.
func (in UpdateSessionInput) apply(cur model.Session) model.Session {
	if in.Title != "" {
		cur.Title = in.Title
	}
	if in.Description != "" {
		cur.Description = in.Description
	}
	if in.Date != "" {
		cur.Date = in.Date
	}
	if in.Time != "" {
		cur.Time = in.Time
	}
	if in.MaxParticipants != 0 {
		cur.MaxParticipants = in.MaxParticipants
	}
	if in.MatchType != "" {
		cur.MatchType = in.MatchType
	}
	if in.SkillLevel != "" {
		cur.SkillLevel = in.SkillLevel
	}
	return cur
}

// Create stores a new session and returns it with its management code
// and, for private sessions, its private code.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (model.Session, error) {
	out, ev, err := s.create(ctx, in)
	if err != nil {
		return model.Session{}, err
	}
	s.notify(ctx, ev)
	return out, nil
}

// create holds the write lock; the returned event is published by the caller
// once the lock is released.
func (s *SessionService) create(ctx context.Context, in CreateSessionInput) (model.Session, queue.ActivityEvent, error) {
	if err := in.validate(); err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}
	if in.MatchType == "" {
		in.MatchType = model.MatchSingles
	}
	if in.SkillLevel == "" {
		in.SkillLevel = model.SkillAll
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}

	// ids and private codes share one lookup namespace
	taken := func(v string) bool {
		for _, cur := range snap.Sessions {
			if cur.ID == v || cur.PrivateCode == v {
				return true
			}
		}
		return false
	}
	id, err := s.uniqueID(taken)
	if err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}
	mgmt, err := s.uniqueCode(utils.DefaultCodeLength, func(v string) bool {
		for _, cur := range snap.Sessions {
			if cur.ManagementCode == v {
				return true
			}
		}
		return false
	})
	if err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}
	var private string
	if in.SessionType == model.SessionPrivate {
		private, err = s.uniqueCode(utils.PrivateCodeLength, func(v string) bool {
			return v == id || taken(v)
		})
		if err != nil {
			return model.Session{}, queue.ActivityEvent{}, err
		}
	}

	sess := model.Session{
		ID:              id,
		Title:           in.Title,
		Description:     in.Description,
		Date:            in.Date,
		Time:            in.Time,
		MaxParticipants: in.MaxParticipants,
		SessionType:     in.SessionType,
		MatchType:       in.MatchType,
		SkillLevel:      in.SkillLevel,
		ManagementCode:  mgmt,
		PrivateCode:     private,
		CreatedAt:       s.timestamp(),
	}
	snap.Sessions = append(snap.Sessions, sess)
	if err := s.save(ctx, snap); err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}

	ev := queue.ActivityEvent{
		Type:         queue.SessionCreated,
		SessionID:    sess.ID,
		SessionTitle: sess.Title,
		SessionType:  string(sess.SessionType),
		Capacity:     sess.MaxParticipants,
	}
	return sess, ev, nil
}

// Update changes the mutable fields of session id.  It fails with
// ErrNotFound when no session has that id and with ErrForbidden when
// managementCode does not match.  Session type, codes, id and creation
// time never change.
func (s *SessionService) Update(ctx context.Context, id, managementCode string, in UpdateSessionInput) (model.Session, error) {
	out, ev, err := s.update(ctx, id, managementCode, in)
	if err != nil {
		return model.Session{}, err
	}
	s.notify(ctx, ev)
	return out, nil
}

func (s *SessionService) update(ctx context.Context, id, managementCode string, in UpdateSessionInput) (model.Session, queue.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}
	idx := findSession(snap, id)
	if idx < 0 {
		return model.Session{}, queue.ActivityEvent{}, ErrNotFound
	}
	if !codeMatches(snap.Sessions[idx].ManagementCode, managementCode) {
		return model.Session{}, queue.ActivityEvent{}, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}

	updated := in.apply(snap.Sessions[idx])
	snap.Sessions[idx] = updated
	if err := s.save(ctx, snap); err != nil {
		return model.Session{}, queue.ActivityEvent{}, err
	}

	ev := queue.ActivityEvent{
		Type:         queue.SessionUpdated,
		SessionID:    updated.ID,
		SessionTitle: updated.Title,
		SessionType:  string(updated.SessionType),
		Attendees:    countAttendees(snap, updated.ID),
		Capacity:     updated.MaxParticipants,
	}
	return updated, ev, nil
}

// Delete removes session id together with all of its attendances.  The
// error rules are the same as for Update.
func (s *SessionService) Delete(ctx context.Context, id, managementCode string) error {
	ev, err := s.deleteSession(ctx, id, managementCode)
	if err != nil {
		return err
	}
	s.notify(ctx, ev)
	return nil
}

func (s *SessionService) deleteSession(ctx context.Context, id, managementCode string) (queue.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return queue.ActivityEvent{}, err
	}
	idx := findSession(snap, id)
	if idx < 0 {
		return queue.ActivityEvent{}, ErrNotFound
	}
	if !codeMatches(snap.Sessions[idx].ManagementCode, managementCode) {
		return queue.ActivityEvent{}, ErrForbidden
	}

	removed := snap.Sessions[idx]
	snap.Sessions = append(snap.Sessions[:idx], snap.Sessions[idx+1:]...)
	kept := snap.Attendances[:0]
	dropped := 0
	for _, a := range snap.Attendances {
		if a.SessionID == id {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	snap.Attendances = kept
	if err := s.save(ctx, snap); err != nil {
		return queue.ActivityEvent{}, err
	}

	ev := queue.ActivityEvent{
		Type:         queue.SessionDeleted,
		SessionID:    removed.ID,
		SessionTitle: removed.Title,
		SessionType:  string(removed.SessionType),
		Attendees:    dropped,
		Capacity:     removed.MaxParticipants,
	}
	return ev, nil
}
