// Package session owns the render-ready state of one console session:
// the event timeline, the loading flag, and interaction bookkeeping for
// clarifications and filter panels.
//
// A State is owned by exactly one goroutine (the console's update loop,
// or the caller's loop in one-shot mode). All transport notices and user
// actions are funneled through that loop, so no locking happens here.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/renvins/webpilot/event"
	"github.com/renvins/webpilot/logger"
)

const (
	connectedText    = "Connected to server"
	disconnectedText = "Disconnected from server. Reconnecting..."

	planningMarker  = "Planning"
	completedMarker = "completed"
)

// ErrDisconnected is returned by the send paths while the connection
// is closed. Nothing is queued; the caller retries after reconnect.
var ErrDisconnected = errors.New("session: not connected")

// Sender delivers outbound payloads to the backend. Implemented by
// transport.Conn.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// State is the reconciled session state consumed by the projector.
type State struct {
	clock  clockwork.Clock
	sender Sender

	timeline  []*event.Event
	connected bool
	loading   bool

	// answered marks clarification questions and options that have been
	// submitted. Append-only for the lifetime of the session.
	answered map[string]bool

	// selections maps filter panel id -> field -> chosen option.
	// Mutable before and after submission; panels are resubmittable.
	selections map[string]map[string]string
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the clock used to stamp synthetic events.
func WithClock(c clockwork.Clock) Option {
	return func(s *State) { s.clock = c }
}

// NewState creates an empty session bound to a sender.
func NewState(sender Sender, opts ...Option) *State {
	s := &State{
		clock:      clockwork.NewRealClock(),
		sender:     sender,
		answered:   make(map[string]bool),
		selections: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeline returns the ordered event log. The returned slice is shared;
// callers must not mutate it.
func (s *State) Timeline() []*event.Event { return s.timeline }

// Connected reports whether the transport currently holds an open
// connection.
func (s *State) Connected() bool { return s.connected }

// Loading reports whether a long-running server operation is in flight.
func (s *State) Loading() bool { return s.loading }

// HandleOpen records a successful connect: a synthetic system entry and
// the connected flag.
func (s *State) HandleOpen() {
	s.connected = true
	s.timeline = append(s.timeline, event.SystemMessage(connectedText, s.clock.Now()))
}

// HandleClosed records a connection loss, graceful or not. Loading is
// forced off: nothing can be in flight on a dead connection.
func (s *State) HandleClosed() {
	s.connected = false
	s.loading = false
	s.timeline = append(s.timeline, event.SystemMessage(disconnectedText, s.clock.Now()))
}

// Apply reconciles one inbound event into the timeline and runs the
// loading-signal transitions. This is the single merge decision point:
//
//   - action_status with a step number: replace the entry keyed by
//     (step, action), re-appending at the tail.
//   - action_status for the un-numbered "filter" action: replace the
//     single existing filter card, re-appending at the tail.
//   - everything else, unknown types included: plain append.
func (s *State) Apply(ev *event.Event) {
	switch {
	case ev.Type == event.TypeActionStatus && ev.Step != nil:
		s.replaceKeyed(ev)
	case ev.Type == event.TypeActionStatus && ev.Action == event.ActionFilter:
		s.replaceFilterCard(ev)
	default:
		s.timeline = append(s.timeline, ev)
	}

	s.updateLoading(ev)
}

// replaceKeyed removes every action_status entry matching (step, action)
// and appends ev at the tail. The move-to-tail is deliberate: an updated
// card reflects the latest status and jumps to the most recent position.
func (s *State) replaceKeyed(ev *event.Event) {
	kept := s.timeline[:0]
	for _, cur := range s.timeline {
		if cur.Type == event.TypeActionStatus && cur.Step != nil &&
			*cur.Step == *ev.Step && cur.Action == ev.Action {
			continue
		}
		kept = append(kept, cur)
	}
	s.timeline = append(kept, ev)
}

// replaceFilterCard keeps at most one action_status card for the
// "filter" action, regardless of step.
func (s *State) replaceFilterCard(ev *event.Event) {
	kept := s.timeline[:0]
	for _, cur := range s.timeline {
		if cur.Type == event.TypeActionStatus && cur.Action == event.ActionFilter {
			continue
		}
		kept = append(kept, cur)
	}
	s.timeline = append(kept, ev)
}

// updateLoading applies the loading transitions for one event. The
// rules are independent triggers; within one event the later rule wins.
func (s *State) updateLoading(ev *event.Event) {
	switch ev.Type {
	case event.TypeStatus:
		if strings.Contains(ev.Message, planningMarker) {
			s.loading = true
		}
		if strings.Contains(ev.Message, completedMarker) {
			s.loading = false
		}
	case event.TypeActionStatus:
		// Filter actions carry no step, so the generic plan-completion
		// status never covers them.
		if ev.Action == event.ActionFilter && ev.Status == event.StatusCompleted {
			s.loading = false
		}
	}
}

// SendInstruction echoes the user's turn into the timeline, flips
// loading on optimistically, and transmits {"instruction": text}.
// Rejected while disconnected, before the echo.
func (s *State) SendInstruction(ctx context.Context, text string) error {
	if !s.connected {
		return ErrDisconnected
	}
	payload, err := event.Instruction(text)
	if err != nil {
		return err
	}
	s.timeline = append(s.timeline, event.UserMessage(text, s.clock.Now()))
	s.loading = true
	if err := s.sender.Send(ctx, payload); err != nil {
		s.loading = false
		logger.Warn("instruction send failed", "err", err)
		return err
	}
	return nil
}
