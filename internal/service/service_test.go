package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/match-session-planner/internal/model"
	"github.com/iliyamo/match-session-planner/internal/queue"
	"github.com/iliyamo/match-session-planner/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
	err    error
}

func (n *recordingNotifier) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

// blockingNotifier parks every Publish call until release is closed.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
}

func (n *blockingNotifier) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	n.once.Do(func() { close(n.entered) })
	<-n.release
	return nil
}

type failingStore struct {
	repository.Store
	saveErr error
}

func (f failingStore) SaveAll(ctx context.Context, snap model.Snapshot) error {
	return f.saveErr
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) *SessionService {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(repository.NewMemoryStore(), opts...)
}

func publicInput(max int) CreateSessionInput {
	return CreateSessionInput{
		Title:           "Thursday ladder",
		Description:     "Court 3",
		Date:            "2025-03-06",
		Time:            "18:00",
		MaxParticipants: max,
		SessionType:     model.SessionPublic,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("public session has no private code", func(t *testing.T) {
		sess, err := svc.Create(ctx, publicInput(2))
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.Len(t, sess.ManagementCode, 8)
		assert.Empty(t, sess.PrivateCode)
		assert.Equal(t, model.MatchSingles, sess.MatchType)
		assert.Equal(t, model.SkillAll, sess.SkillLevel)
		assert.Equal(t, fixedNow, sess.CreatedAt)
	})

	t.Run("private session gets a ten character private code", func(t *testing.T) {
		in := publicInput(4)
		in.SessionType = model.SessionPrivate
		in.MatchType = model.MatchDoubles
		in.SkillLevel = model.SkillAdvanced
		sess, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Len(t, sess.PrivateCode, 10)
		assert.Len(t, sess.ManagementCode, 8)
		assert.Equal(t, model.MatchDoubles, sess.MatchType)
		assert.Equal(t, model.SkillAdvanced, sess.SkillLevel)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := map[string]func(*CreateSessionInput){
			"missing title":     func(in *CreateSessionInput) { in.Title = "  " },
			"missing date":      func(in *CreateSessionInput) { in.Date = "" },
			"missing time":      func(in *CreateSessionInput) { in.Time = "" },
			"zero capacity":     func(in *CreateSessionInput) { in.MaxParticipants = 0 },
			"unknown type":      func(in *CreateSessionInput) { in.SessionType = "secret" },
			"missing type":      func(in *CreateSessionInput) { in.SessionType = "" },
			"unknown match":     func(in *CreateSessionInput) { in.MatchType = "mixed" },
			"unknown skill lvl": func(in *CreateSessionInput) { in.SkillLevel = "pro" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				in := publicInput(2)
				mutate(&in)
				_, err := svc.Create(ctx, in)
				assert.ErrorIs(t, err, ErrInvalid)
			})
		}
	})

	t.Run("store failure is returned", func(t *testing.T) {
		boom := errors.New("disk full")
		broken := New(failingStore{Store: repository.NewMemoryStore(), saveErr: boom})
		_, err := broken.Create(ctx, publicInput(2))
		assert.ErrorIs(t, err, boom)
	})
}

func TestCreateRedrawsCollidingCodes(t *testing.T) {
	ctx := context.Background()
	codes := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	var mu sync.Mutex
	gen := func(length int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return fmt.Sprintf("%0*d", length, 7), nil
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	svc := newTestService(t, WithCodeGenerator(gen))

	first, err := svc.Create(ctx, publicInput(2))
	require.NoError(t, err)
	second, err := svc.Create(ctx, publicInput(2))
	require.NoError(t, err)

	assert.Equal(t, "aaaaaaaa", first.ManagementCode)
	assert.Equal(t, "bbbbbbbb", second.ManagementCode)
}

func TestGetDualLookup(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	in := publicInput(3)
	in.SessionType = model.SessionPrivate
	sess, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Join(ctx, sess.ID, JoinInput{PlayerName: "Ada"})
	require.NoError(t, err)

	byID, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	byCode, err := svc.Get(ctx, sess.PrivateCode)
	require.NoError(t, err)

	assert.Equal(t, sess, byID.Session)
	assert.Equal(t, byID, byCode)
	require.Len(t, byID.Attendees, 1)
	assert.Equal(t, "Ada", byID.Attendees[0].PlayerName)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPublic(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	empty, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	pub, err := svc.Create(ctx, publicInput(2))
	require.NoError(t, err)
	priv := publicInput(2)
	priv.SessionType = model.SessionPrivate
	_, err = svc.Create(ctx, priv)
	require.NoError(t, err)

	list, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pub.ID, list[0].ID)
	assert.Equal(t, pub.ManagementCode, list[0].ManagementCode)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.Create(ctx, publicInput(4))
	require.NoError(t, err)

	t.Run("only description changes", func(t *testing.T) {
		got, err := svc.Update(ctx, sess.ID, sess.ManagementCode, UpdateSessionInput{Description: "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", got.Description)
		assert.Equal(t, sess.Title, got.Title)
		assert.Equal(t, sess.Date, got.Date)
		assert.Equal(t, sess.Time, got.Time)
		assert.Equal(t, sess.MaxParticipants, got.MaxParticipants)
		assert.Equal(t, sess.MatchType, got.MatchType)
		assert.Equal(t, sess.SkillLevel, got.SkillLevel)
	})

	t.Run("zero maxParticipants keeps the prior value", func(t *testing.T) {
		got, err := svc.Update(ctx, sess.ID, sess.ManagementCode, UpdateSessionInput{MaxParticipants: 0})
		require.NoError(t, err)
		assert.Equal(t, 4, got.MaxParticipants)
	})

	t.Run("all mutable fields change", func(t *testing.T) {
		got, err := svc.Update(ctx, sess.ID, sess.ManagementCode, UpdateSessionInput{
			Title:           "Renamed",
			Date:            "2025-04-01",
			Time:            "07:00",
			MaxParticipants: 8,
			MatchType:       model.MatchTournament,
			SkillLevel:      model.SkillBeginner,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, 8, got.MaxParticipants)
		assert.Equal(t, model.MatchTournament, got.MatchType)
		assert.Equal(t, model.SkillBeginner, got.SkillLevel)
		// immutable fields survive
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, sess.SessionType, got.SessionType)
		assert.Equal(t, sess.ManagementCode, got.ManagementCode)
		assert.Equal(t, sess.CreatedAt, got.CreatedAt)

		stored, err := svc.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, got, stored.Session)
	})

	t.Run("credential gating", func(t *testing.T) {
		other, err := svc.Create(ctx, publicInput(2))
		require.NoError(t, err)

		for _, code := range []string{"", "wrong", other.ManagementCode, sess.ManagementCode + " "} {
			_, err := svc.Update(ctx, sess.ID, code, UpdateSessionInput{Title: "x"})
			assert.ErrorIs(t, err, ErrForbidden, "code %q", code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", sess.ManagementCode, UpdateSessionInput{Title: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid enum rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, sess.ID, sess.ManagementCode, UpdateSessionInput{MatchType: "mixed"})
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = svc.Update(ctx, sess.ID, sess.ManagementCode, UpdateSessionInput{MaxParticipants: -1})
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.Create(ctx, publicInput(3))
	require.NoError(t, err)
	keep, err := svc.Create(ctx, publicInput(3))
	require.NoError(t, err)
	for _, name := range []string{"A", "B"} {
		_, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: name})
		require.NoError(t, err)
	}
	_, err = svc.Join(ctx, keep.ID, JoinInput{PlayerName: "C"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, sess.ID, "wrong"), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, sess.ID, keep.ManagementCode), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "missing", sess.ManagementCode), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, sess.ID, sess.ManagementCode))

	att, err := svc.ListAttendees(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, att)
	_, err = svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	others, err := svc.ListAttendees(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, others, 1)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	for _, v := range all {
		for _, a := range v.Attendees {
			assert.NotEqual(t, sess.ID, a.SessionID)
		}
	}
}

func TestJoinCapacityScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.Create(ctx, publicInput(2))
	require.NoError(t, err)

	first, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Len(t, first.AttendanceCode, 8)
	assert.Equal(t, sess.ID, first.SessionID)
	assert.Equal(t, "ana@example.com", first.Email)
	assert.Equal(t, fixedNow, first.JoinedAt)

	_, err = svc.Join(ctx, sess.ID, JoinInput{PlayerName: "Ben"})
	require.NoError(t, err)

	_, err = svc.Join(ctx, sess.ID, JoinInput{PlayerName: "Cy"})
	assert.ErrorIs(t, err, ErrSessionFull)

	require.NoError(t, svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: first.ID, Code: first.AttendanceCode}))

	_, err = svc.Join(ctx, sess.ID, JoinInput{PlayerName: "Dee"})
	require.NoError(t, err)

	att, err := svc.ListAttendees(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, att, 2)
}

func TestJoinErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Join(ctx, "missing", JoinInput{PlayerName: "Ana"})
	assert.ErrorIs(t, err, ErrNotFound)

	sess, err := svc.Create(ctx, publicInput(2))
	require.NoError(t, err)
	_, err = svc.Join(ctx, sess.ID, JoinInput{PlayerName: "   "})
	assert.ErrorIs(t, err, ErrInvalid)

	// joining goes by id only, not by private code
	in := publicInput(2)
	in.SessionType = model.SessionPrivate
	priv, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Join(ctx, priv.PrivateCode, JoinInput{PlayerName: "Ana"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	const capacity = 5
	sess, err := svc.Create(ctx, publicInput(capacity))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		joined  int
		full    int
		unknown []error
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: fmt.Sprintf("p%d", i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, ErrSessionFull):
				full++
			default:
				unknown = append(unknown, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, capacity, joined)
	assert.Equal(t, 40-capacity, full)

	att, err := svc.ListAttendees(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, att, capacity)
}

func TestLeaveDualRemoval(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.Create(ctx, publicInput(5))
	require.NoError(t, err)
	other, err := svc.Create(ctx, publicInput(5))
	require.NoError(t, err)

	a, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: "A"})
	require.NoError(t, err)
	b, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: "B"})
	require.NoError(t, err)
	c, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: "C"})
	require.NoError(t, err)

	t.Run("foreign codes are rejected", func(t *testing.T) {
		for _, code := range []string{"", "wrong", b.AttendanceCode, other.ManagementCode} {
			err := svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: a.ID, Code: code})
			assert.ErrorIs(t, err, ErrForbidden, "code %q", code)
		}
	})

	t.Run("unknown attendance or wrong session", func(t *testing.T) {
		err := svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: "missing", Code: a.AttendanceCode})
		assert.ErrorIs(t, err, ErrNotFound)
		err = svc.Leave(ctx, other.ID, LeaveInput{AttendanceID: a.ID, Code: a.AttendanceCode})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("attendee removes themselves", func(t *testing.T) {
		require.NoError(t, svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: a.ID, Code: a.AttendanceCode}))
		err := svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: a.ID, Code: a.AttendanceCode})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("organizer removes anyone", func(t *testing.T) {
		require.NoError(t, svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: b.ID, Code: sess.ManagementCode, IsManagementCode: true}))
	})

	t.Run("either code works regardless of the flag", func(t *testing.T) {
		require.NoError(t, svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: c.ID, Code: sess.ManagementCode}))
	})

	att, err := svc.ListAttendees(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, att)
}

func TestActivityEvents(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{err: errors.New("broker down")}
	svc := newTestService(t, WithNotifier(n))

	sess, err := svc.Create(ctx, publicInput(2))
	require.NoError(t, err, "publish failures must not fail the operation")
	att, err := svc.Join(ctx, sess.ID, JoinInput{PlayerName: "Ana"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, sess.ID, sess.ManagementCode, UpdateSessionInput{Title: "New"})
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, sess.ID, LeaveInput{AttendanceID: att.ID, Code: sess.ManagementCode, IsManagementCode: true}))
	require.NoError(t, svc.Delete(ctx, sess.ID, sess.ManagementCode))

	// rejected operations publish nothing
	_, err = svc.Join(ctx, sess.ID, JoinInput{PlayerName: "late"})
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		queue.SessionCreated,
		queue.AttendanceJoined,
		queue.SessionUpdated,
		queue.AttendanceLeft,
		queue.SessionDeleted,
	}, n.types())

	joined := n.events[1]
	assert.Equal(t, 1, joined.Attendees)
	assert.Equal(t, 2, joined.Capacity)
	assert.Equal(t, "Ana", joined.PlayerName)
	assert.Equal(t, fixedNow.Format(time.RFC3339), joined.OccurredAt)
	assert.Equal(t, "organizer", n.events[3].RemovedBy)
}

func TestNewPanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestSlowNotifierDoesNotBlockOtherCalls(t *testing.T) {
	n := newBlockingNotifier()
	svc := newTestService(t, WithNotifier(n))
	ctx := context.Background()

	created := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, publicInput(4))
		created <- err
	}()

	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never called")
	}

	// the publish is still in flight; reads and writes must not wait on it
	done := make(chan struct{})
	var listed []model.Session
	var listErr error
	go func() {
		defer close(done)
		listed, listErr = svc.ListPublic(ctx)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		close(n.release)
		t.Fatal("ListPublic blocked while an activity event was being published")
	}
	require.NoError(t, listErr)
	assert.Len(t, listed, 1, "the session is saved before the event goes out")

	close(n.release)
	require.NoError(t, <-created)
}
