// Package warnings maintains the realtime moderation-warning channel for
// an authenticated session. Each session owns one Channel: it catches up
// on warnings issued while the user was offline, then listens on the
// realtime broker for new ones. At most one warning is displayed at a
// time; acknowledgment flips the stored seen flag exactly once.
package warnings

import (
	"context"
	"errors"
	"log"
	"sync"

	warningsdb "github.com/serialist/serialist/internal/database/warnings"
	"github.com/serialist/serialist/internal/entities"
	"github.com/serialist/serialist/internal/realtime"
)

// State names the phases of the channel's lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateCatchingUp    State = "catching-up"
	StateListening     State = "listening"
	StateDisplaying    State = "displaying"
	StateAcknowledging State = "acknowledging"
)

// Store is the warning persistence the channel needs.
type Store interface {
	EarliestUnseen(userID uint) (*entities.Warning, error)
	Acknowledge(id, userID uint) (bool, error)
}

// Display is one instruction to the client: show Warning, or clear the
// current one when Warning is nil.
type Display struct {
	Warning *entities.Warning
}

// displayBuffer must hold a show and a clear without blocking the run loop.
const displayBuffer = 2

// Channel is the per-session warning state machine.
type Channel struct {
	store  Store
	broker *realtime.Broker
	userID uint

	mu      sync.Mutex
	state   State
	current *entities.Warning

	out chan Display
}

// NewChannel creates a channel for one authenticated session.
func NewChannel(store Store, broker *realtime.Broker, userID uint) *Channel {
	return &Channel{
		store:  store,
		broker: broker,
		userID: userID,
		state:  StateIdle,
		out:    make(chan Display, displayBuffer),
	}
}

// State returns the current machine state.
func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Current returns the displayed warning, or nil.
func (ch *Channel) Current() *entities.Warning {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.current
}

// Events is the stream of display instructions for the client.
func (ch *Channel) Events() <-chan Display {
	return ch.out
}

// Run drives the state machine until ctx is cancelled. It subscribes
// before the catch-up query so a warning inserted in between is not lost,
// then serves broker events. Subscriptions are released on return.
func (ch *Channel) Run(ctx context.Context) {
	inserts := ch.broker.Subscribe(warningsdb.Table, realtime.EventInsert, "user_id", ch.userID)
	updates := ch.broker.Subscribe(warningsdb.Table, realtime.EventUpdate, "user_id", ch.userID)
	defer inserts.Cancel()
	defer updates.Cancel()

	ch.catchUp()

	for {
		select {
		case <-ctx.Done():
			ch.setState(StateIdle)
			return
		case e, ok := <-inserts.C:
			if !ok {
				return
			}
			ch.onInsert(e)
		case e, ok := <-updates.C:
			if !ok {
				return
			}
			ch.onUpdate(e)
		}
	}
}

// Acknowledge resolves the displayed warning. On store failure the warning
// stays displayed so the user cannot dismiss a warning that was never
// persisted as seen; a retry is expected. Acknowledging a warning that is
// not currently displayed (or already seen) is a no-op.
func (ch *Channel) Acknowledge(id uint) error {
	ch.mu.Lock()
	if ch.current == nil || ch.current.ID != id {
		ch.mu.Unlock()
		// Not ours to clear; still effect the store flip so out-of-band
		// acknowledgments behave the same. A repeat ack reports false.
		_, err := ch.store.Acknowledge(id, ch.userID)
		return err
	}
	ch.state = StateAcknowledging
	ch.mu.Unlock()

	_, err := ch.store.Acknowledge(id, ch.userID)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if err != nil {
		// Retry path: no state change beyond returning to displaying.
		ch.state = StateDisplaying
		return err
	}

	ch.current = nil
	ch.state = StateListening
	ch.emit(Display{})
	return nil
}

// catchUp surfaces the earliest unresolved warning that predates the
// subscription, if any.
func (ch *Channel) catchUp() {
	ch.setState(StateCatchingUp)

	warning, err := ch.store.EarliestUnseen(ch.userID)
	if err != nil {
		if !errors.Is(err, warningsdb.ErrWarningNotFound) {
			log.Printf("[WARN] Catch-up query failed for user %d: %v", ch.userID, err)
		}
		ch.setState(StateListening)
		return
	}

	ch.show(warning)
}

func (ch *Channel) onInsert(e realtime.Event) {
	warning, ok := e.Payload.(entities.Warning)
	if !ok || warning.IsSeen {
		return
	}

	ch.mu.Lock()
	displaying := ch.current != nil
	ch.mu.Unlock()
	if displaying {
		// Single display slot. The new warning stays unseen in storage
		// and surfaces on the next catch-up.
		return
	}

	ch.show(&warning)
}

// onUpdate clears the display when the shown warning was acknowledged
// through another path (fallback ack endpoint, another device).
func (ch *Channel) onUpdate(e realtime.Event) {
	warning, ok := e.Payload.(entities.Warning)
	if !ok || !warning.IsSeen {
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.current == nil || ch.current.ID != warning.ID {
		return
	}
	ch.current = nil
	ch.state = StateListening
	ch.emit(Display{})
}

func (ch *Channel) show(warning *entities.Warning) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.current = warning
	ch.state = StateDisplaying
	ch.emit(Display{Warning: warning})
}

// emit never blocks; the display stream is advisory and anything dropped
// is recovered by catch-up. Callers hold ch.mu.
func (ch *Channel) emit(d Display) {
	select {
	case ch.out <- d:
	default:
	}
}

func (ch *Channel) setState(s State) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
}
