package monitor

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/SimplyPrint/pcsc"

	"github.com/SimplyPrint/pcsc/internal/logging"
)

// EventType identifies what changed on the reader side.
type EventType string

const (
	ReaderAdded  EventType = "reader_added"
	ReaderGone   EventType = "reader_gone"
	CardInserted EventType = "card_inserted"
	CardRemoved  EventType = "card_removed"
)

// Event is a single reader or card state change.
type Event struct {
	Type      EventType `json:"type"`
	Reader    string    `json:"reader"`
	Atr       string    `json:"atr,omitempty"` // hex encoded
	Timestamp time.Time `json:"timestamp"`
}

// StatusContext is the slice of a PC/SC session the monitor needs.
// This allows for dependency injection and mocking in tests.
type StatusContext interface {
	ListReadersAll() ([]string, error)
	GetStatusChange(states []pcsc.ReaderState, timeout time.Duration) error
	Cancel() error
}

// Monitor watches all connected readers and reports reader arrivals,
// removals and card movements on its event channel. A single
// goroutine runs the blocking status loop; Stop wakes it through the
// session's cancel mechanism.
type Monitor struct {
	session  StatusContext
	events   chan Event
	stopping atomic.Bool
}

// New returns a monitor for the given session. The event channel is
// buffered; if a consumer falls behind, new events are dropped rather
// than stalling the status loop.
func New(session StatusContext) *Monitor {
	return &Monitor{
		session: session,
		events:  make(chan Event, 64),
	}
}

// Events returns the channel Run delivers on. It is closed when Run
// returns.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Stop makes Run return after its current wait. Safe to call from any
// goroutine, and more than once.
func (m *Monitor) Stop() {
	m.stopping.Store(true)
	if err := m.session.Cancel(); err != nil {
		logging.Warnf(logging.CatMonitor, "cancel failed: %v", err)
	}
}

// Run blocks watching the readers until Stop is called or the session
// fails. The returned error is nil on a clean stop.
func (m *Monitor) Run() error {
	defer close(m.events)

	states := []pcsc.ReaderState{pcsc.NewReaderState(pcsc.PnPNotification)}
	for {
		// Prune readers the service no longer knows about.
		kept := states[:0]
		for _, rs := range states {
			if rs.Reader != pcsc.PnPNotification && rs.EventState&(pcsc.StateUnknown|pcsc.StateIgnore) != 0 {
				logging.Infof(logging.CatMonitor, "reader gone: %s", rs.Reader)
				m.emit(Event{Type: ReaderGone, Reader: rs.Reader, Timestamp: time.Now()})
				continue
			}
			kept = append(kept, rs)
		}
		states = kept

		// Acknowledge everything seen so far; the event counter rides
		// along in the state word.
		for i := range states {
			states[i].SyncCurrentState()
		}

		// Pick up readers that appeared since the last pass.
		names, err := m.session.ListReadersAll()
		if err != nil {
			return fmt.Errorf("listing readers: %w", err)
		}
		for _, name := range names {
			if !m.watching(states, name) {
				logging.Infof(logging.CatMonitor, "reader added: %s", name)
				m.emit(Event{Type: ReaderAdded, Reader: name, Timestamp: time.Now()})
				states = append(states, pcsc.NewReaderState(name))
			}
		}

		err = m.session.GetStatusChange(states, -1)
		if m.stopping.Load() {
			return nil
		}
		if err != nil {
			return fmt.Errorf("waiting for status change: %w", err)
		}

		for i := range states {
			rs := &states[i]
			if rs.Reader == pcsc.PnPNotification || !rs.Changed() {
				continue
			}
			wasPresent := rs.CurrentState&pcsc.StatePresent != 0
			nowPresent := rs.EventState&pcsc.StatePresent != 0
			switch {
			case nowPresent && !wasPresent:
				atr := hex.EncodeToString(rs.Atr)
				logging.Info(logging.CatCard, "card inserted", map[string]any{
					"reader": rs.Reader,
					"atr":    atr,
				})
				m.emit(Event{Type: CardInserted, Reader: rs.Reader, Atr: atr, Timestamp: time.Now()})
			case !nowPresent && wasPresent:
				logging.Infof(logging.CatCard, "card removed from %s", rs.Reader)
				m.emit(Event{Type: CardRemoved, Reader: rs.Reader, Timestamp: time.Now()})
			}
		}
	}
}

func (m *Monitor) watching(states []pcsc.ReaderState, name string) bool {
	for _, rs := range states {
		if rs.Reader == name {
			return true
		}
	}
	return false
}

func (m *Monitor) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		logging.Warnf(logging.CatMonitor, "event dropped: %s %s", ev.Type, ev.Reader)
	}
}
