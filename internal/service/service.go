// Package service implements the session access and capacity rules:
// who may read, change, join and leave a match session.  There are no
// accounts; every right comes from holding the right code.
//
// All operations run against a whole-collection snapshot from the
// injected store.  Mutations read the snapshot, compute a new one and
// save it back while holding the service's write lock, so two joins can
// never both pass the capacity check on the same stale count.  Activity
// events are published only after the lock is released, so a slow broker
// never holds up other callers.
package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/match-session-planner/internal/model"
	"github.com/iliyamo/match-session-planner/internal/queue"
	"github.com/iliyamo/match-session-planner/internal/repository"
	"github.com/iliyamo/match-session-planner/internal/utils"
)

// maxCodeAttempts bounds how often a colliding id or code is redrawn.
const maxCodeAttempts = 5

// Notifier receives activity events after a change has been saved.
// queue.Publisher satisfies it.
type Notifier interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithNotifier sets the activity notifier.  A nil notifier disables events.
func WithNotifier(n Notifier) Option {
	return func(s *SessionService) { s.notifier = n }
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *SessionService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCodeGenerator overrides the code generator, mainly for tests.
func WithCodeGenerator(gen func(length int) (string, error)) Option {
	return func(s *SessionService) {
		if gen != nil {
			s.genCode = gen
		}
	}
}

// SessionService is the session access and capacity engine.
type SessionService struct {
	store    repository.Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	genCode  func(length int) (string, error)
	newID    func() string

	mu sync.RWMutex
}

// New constructs a SessionService on top of store and panics if store is nil.
func New(store repository.Store, opts ...Option) *SessionService {
	if store == nil {
		panic("nil store passed to service.New")
	}
	s := &SessionService{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		genCode: utils.GenerateCode,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the current snapshot.  Callers must hold s.mu.
func (s *SessionService) load(ctx context.Context) (model.Snapshot, error) {
	snap, err := s.store.LoadAll(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// save replaces the stored snapshot.  Callers must hold s.mu for writing.
func (s *SessionService) save(ctx context.Context, snap model.Snapshot) error {
	if err := s.store.SaveAll(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SessionService) timestamp() time.Time {
	return s.now().UTC()
}

// uniqueCode draws codes of the given length until one is not taken.
func (s *SessionService) uniqueCode(length int, taken func(string) bool) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.genCode(length)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		if !taken(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate code: no free code after %d attempts", maxCodeAttempts)
}

// uniqueID returns a fresh uuid that no entity in ids uses.
func (s *SessionService) uniqueID(taken func(string) bool) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		if id := s.newID(); !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate id: no free id after %d attempts", maxCodeAttempts)
}

// notify publishes ev when a notifier is configured.  Failures are
// logged and otherwise ignored; the change is already saved.
func (s *SessionService) notify(ctx context.Context, ev queue.ActivityEvent) {
	if s.notifier == nil {
		return
	}
	ev.OccurredAt = s.timestamp().Format(time.RFC3339)
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.logger.Warn("activity event not published",
			slog.String("type", ev.Type), slog.String("session_id", ev.SessionID), slog.Any("error", err))
	}
}

// codeMatches compares a supplied code with a stored one in constant
// time.  Empty codes never match.
func codeMatches(stored, supplied string) bool {
	if stored == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func findSession(snap model.Snapshot, id string) int {
	for i := range snap.Sessions {
		if snap.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func countAttendees(snap model.Snapshot, sessionID string) int {
	n := 0
	for _, a := range snap.Attendances {
		if a.SessionID == sessionID {
			n++
		}
	}
	return n
}
