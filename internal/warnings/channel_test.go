package warnings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	warningsdb "github.com/serialist/serialist/internal/database/warnings"
	"github.com/serialist/serialist/internal/entities"
	"github.com/serialist/serialist/internal/realtime"
)

// fakeStore keeps warnings in memory with the repository's semantics.
type fakeStore struct {
	mu       sync.Mutex
	warnings []entities.Warning
	ackErr   error
	ackCalls int
}

func (f *fakeStore) add(w entities.Warning) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, w)
}

func (f *fakeStore) EarliestUnseen(userID uint) (*entities.Warning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unseen []entities.Warning
	for _, w := range f.warnings {
		if w.UserID == userID && !w.IsSeen {
			unseen = append(unseen, w)
		}
	}
	if len(unseen) == 0 {
		return nil, warningsdb.ErrWarningNotFound
	}
	sort.Slice(unseen, func(i, j int) bool {
		if unseen[i].CreatedAt.Equal(unseen[j].CreatedAt) {
			return unseen[i].ID < unseen[j].ID
		}
		return unseen[i].CreatedAt.Before(unseen[j].CreatedAt)
	})
	w := unseen[0]
	return &w, nil
}

func (f *fakeStore) Acknowledge(id, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ackCalls++
	if f.ackErr != nil {
		return false, f.ackErr
	}
	for i := range f.warnings {
		if f.warnings[i].ID == id && f.warnings[i].UserID == userID && !f.warnings[i].IsSeen {
			f.warnings[i].IsSeen = true
			return true, nil
		}
	}
	return false, nil
}

func startChannel(t *testing.T, store Store, broker *realtime.Broker, userID uint) (*Channel, context.CancelFunc) {
	t.Helper()
	ch := NewChannel(store, broker, userID)
	ctx, cancel := context.WithCancel(context.Background())
	go ch.Run(ctx)
	return ch, cancel
}

func waitForState(t *testing.T, ch *Channel, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ch.State() == want
	}, time.Second, 5*time.Millisecond, "expected state %s, got %s", want, ch.State())
}

func TestChannel_CatchUpDisplaysEarliestUnseen(t *testing.T) {
	store := &fakeStore{}
	store.add(entities.Warning{ID: 2, UserID: 7, Reason: "second", CreatedAt: time.Now()})
	store.add(entities.Warning{ID: 1, UserID: 7, Reason: "first", CreatedAt: time.Now().Add(-time.Hour)})

	ch, cancel := startChannel(t, store, realtime.NewBroker(), 7)
	defer cancel()

	waitForState(t, ch, StateDisplaying)
	current := ch.Current()
	require.NotNil(t, current)
	assert.Equal(t, uint(1), current.ID, "catch-up picks the earliest unseen warning")

	select {
	case d := <-ch.Events():
		require.NotNil(t, d.Warning)
		assert.Equal(t, "first", d.Warning.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected a display event")
	}
}

func TestChannel_CatchUpWithoutBacklogListens(t *testing.T) {
	ch, cancel := startChannel(t, &fakeStore{}, realtime.NewBroker(), 7)
	defer cancel()

	waitForState(t, ch, StateListening)
	assert.Nil(t, ch.Current())
}

func TestChannel_LiveInsertIsDisplayed(t *testing.T) {
	store := &fakeStore{}
	broker := realtime.NewBroker()
	ch, cancel := startChannel(t, store, broker, 7)
	defer cancel()

	waitForState(t, ch, StateListening)

	warning := entities.Warning{ID: 5, UserID: 7, Reason: "watch your language"}
	store.add(warning)
	broker.Publish(realtime.Event{
		Table:   warningsdb.Table,
		Type:    realtime.EventInsert,
		Fields:  map[string]uint{"user_id": 7},
		Payload: warning,
	})

	waitForState(t, ch, StateDisplaying)
	require.NotNil(t, ch.Current())
	assert.Equal(t, uint(5), ch.Current().ID)
}

func TestChannel_SecondWarningQueuesImplicitly(t *testing.T) {
	store := &fakeStore{}
	store.add(entities.Warning{ID: 1, UserID: 7, Reason: "first", CreatedAt: time.Now().Add(-time.Hour)})
	broker := realtime.NewBroker()
	ch, cancel := startChannel(t, store, broker, 7)
	defer cancel()

	waitForState(t, ch, StateDisplaying)

	second := entities.Warning{ID: 2, UserID: 7, Reason: "second", CreatedAt: time.Now()}
	store.add(second)
	broker.Publish(realtime.Event{
		Table:   warningsdb.Table,
		Type:    realtime.EventInsert,
		Fields:  map[string]uint{"user_id": 7},
		Payload: second,
	})

	// The display slot is single-occupancy: the first warning stays up.
	time.Sleep(20 * time.Millisecond)
	require.NotNil(t, ch.Current())
	assert.Equal(t, uint(1), ch.Current().ID)

	// The queued warning surfaces on the next catch-up.
	require.NoError(t, ch.Acknowledge(1))
	next, err := store.EarliestUnseen(7)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next.ID)
}

func TestChannel_AcknowledgeClearsAndReturnsToListening(t *testing.T) {
	store := &fakeStore{}
	store.add(entities.Warning{ID: 1, UserID: 7, Reason: "first"})
	ch, cancel := startChannel(t, store, realtime.NewBroker(), 7)
	defer cancel()

	waitForState(t, ch, StateDisplaying)
	<-ch.Events() // drain the show event

	require.NoError(t, ch.Acknowledge(1))

	assert.Equal(t, StateListening, ch.State())
	assert.Nil(t, ch.Current())

	select {
	case d := <-ch.Events():
		assert.Nil(t, d.Warning, "clear instruction carries no warning")
	case <-time.After(time.Second):
		t.Fatal("expected a clear event")
	}

	// The store no longer has unseen warnings for the user.
	_, err := store.EarliestUnseen(7)
	assert.ErrorIs(t, err, warningsdb.ErrWarningNotFound)
}

func TestChannel_AcknowledgeIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	store.add(entities.Warning{ID: 1, UserID: 7, Reason: "first"})
	ch, cancel := startChannel(t, store, realtime.NewBroker(), 7)
	defer cancel()

	waitForState(t, ch, StateDisplaying)
	require.NoError(t, ch.Acknowledge(1))

	// Second acknowledge of the same id: no error, no state change. The
	// store still sees the attempt and reports it as a no-op.
	require.NoError(t, ch.Acknowledge(1))
	assert.Equal(t, StateListening, ch.State())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 2, store.ackCalls)
}

func TestChannel_FailedAcknowledgeKeepsWarningDisplayed(t *testing.T) {
	store := &fakeStore{}
	store.add(entities.Warning{ID: 1, UserID: 7, Reason: "first"})
	ch, cancel := startChannel(t, store, realtime.NewBroker(), 7)
	defer cancel()

	waitForState(t, ch, StateDisplaying)

	store.mu.Lock()
	store.ackErr = errors.New("store unavailable")
	store.mu.Unlock()

	err := ch.Acknowledge(1)
	require.Error(t, err)
	assert.Equal(t, StateDisplaying, ch.State())
	require.NotNil(t, ch.Current())
	assert.Equal(t, uint(1), ch.Current().ID)

	// Retry succeeds once the store recovers.
	store.mu.Lock()
	store.ackErr = nil
	store.mu.Unlock()
	require.NoError(t, ch.Acknowledge(1))
	assert.Equal(t, StateListening, ch.State())
}

func TestChannel_UpdateEventFromOtherPathClearsDisplay(t *testing.T) {
	store := &fakeStore{}
	store.add(entities.Warning{ID: 1, UserID: 7, Reason: "first"})
	broker := realtime.NewBroker()
	ch, cancel := startChannel(t, store, broker, 7)
	defer cancel()

	waitForState(t, ch, StateDisplaying)

	// Acknowledged out of band (e.g. the fallback endpoint).
	broker.Publish(realtime.Event{
		Table:   warningsdb.Table,
		Type:    realtime.EventUpdate,
		Fields:  map[string]uint{"user_id": 7},
		Payload: entities.Warning{ID: 1, UserID: 7, IsSeen: true},
	})

	waitForState(t, ch, StateListening)
	assert.Nil(t, ch.Current())
}

func TestChannel_CancelReleasesSubscriptions(t *testing.T) {
	broker := realtime.NewBroker()
	ch, cancel := startChannel(t, &fakeStore{}, broker, 7)

	waitForState(t, ch, StateListening)
	assert.Equal(t, 2, broker.SubscriberCount())

	cancel()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateIdle, ch.State())
}

func TestHub_RegisterAndReplace(t *testing.T) {
	hub := NewHub()
	store := &fakeStore{}
	broker := realtime.NewBroker()

	first := NewChannel(store, broker, 7)
	second := NewChannel(store, broker, 7)

	hub.Register(first)
	assert.Same(t, first, hub.Get(7))

	hub.Register(second)
	assert.Same(t, second, hub.Get(7))

	// Unregistering a stale channel must not evict the live one.
	hub.Unregister(first)
	assert.Same(t, second, hub.Get(7))

	hub.Unregister(second)
	assert.Nil(t, hub.Get(7))
}
