package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renvins/webpilot/event"
)

// fakeSender records every payload handed to Send.
type fakeSender struct {
	sent [][]byte
	err  error
}

func (f *fakeSender) Send(_ context.Context, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, payload)
	return nil
}

func newTestState(t *testing.T) (*State, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	return NewState(sender, WithClock(clock)), sender
}

func step(n int) *int { return &n }

func actionStatus(action string, stepNo *int, status string) *event.Event {
	return &event.Event{
		Type:   event.TypeActionStatus,
		Action: action,
		Step:   stepNo,
		Status: status,
	}
}

func statusEvent(msg string) *event.Event {
	return &event.Event{Type: event.TypeStatus, Message: msg}
}

func TestApplyKeyedReplaceKeepsOneEntryPerStepAction(t *testing.T) {
	s, _ := newTestState(t)

	s.Apply(actionStatus("navigate", step(1), event.StatusExecuting))
	s.Apply(statusEvent("Opening flipkart.com"))
	s.Apply(actionStatus("navigate", step(1), event.StatusCompleted))

	var cards []*event.Event
	for _, ev := range s.Timeline() {
		if ev.Type == event.TypeActionStatus {
			cards = append(cards, ev)
		}
	}
	if len(cards) != 1 {
		t.Fatalf("timeline has %d action_status cards for (1, navigate), want 1", len(cards))
	}
	if cards[0].Status != event.StatusCompleted {
		t.Fatalf("surviving card status = %q, want %q", cards[0].Status, event.StatusCompleted)
	}

	// The replace re-appends at the tail, below the interleaved status.
	tl := s.Timeline()
	if last := tl[len(tl)-1]; last.Type != event.TypeActionStatus {
		t.Fatalf("tail entry type = %q, want action_status at the tail after replace", last.Type)
	}
}

func TestApplyDifferentStepsSameActionDoNotCollapse(t *testing.T) {
	s, _ := newTestState(t)

	s.Apply(actionStatus("extract", step(2), event.StatusExecuting))
	s.Apply(actionStatus("extract", step(3), event.StatusExecuting))

	if got := len(s.Timeline()); got != 2 {
		t.Fatalf("timeline length = %d, want 2 (keys compare as (step, action) pairs)", got)
	}
}

func TestApplyKeyedReplaceIsIdempotent(t *testing.T) {
	s, _ := newTestState(t)

	ev := actionStatus("click", step(4), event.StatusExecuting)
	s.Apply(ev)
	s.Apply(ev)

	if got := len(s.Timeline()); got != 1 {
		t.Fatalf("replaying the same card gave %d entries, want 1", got)
	}
}

func TestApplyFilterCardIsASingleton(t *testing.T) {
	s, _ := newTestState(t)

	s.Apply(actionStatus(event.ActionFilter, nil, event.StatusExecuting))
	s.Apply(statusEvent("Applied filters. Found 3 matching products."))
	s.Apply(actionStatus(event.ActionFilter, nil, event.StatusCompleted))
	s.Apply(actionStatus(event.ActionFilter, nil, event.StatusCompleted))

	var filters int
	for _, ev := range s.Timeline() {
		if ev.Type == event.TypeActionStatus && ev.Action == event.ActionFilter {
			filters++
		}
	}
	if filters != 1 {
		t.Fatalf("timeline has %d filter cards, want at most 1", filters)
	}
}

func TestApplyStatusWithoutStepOrFilterActionAppends(t *testing.T) {
	s, _ := newTestState(t)

	// No step and not the filter action: falls through to plain append.
	s.Apply(actionStatus("scroll", nil, event.StatusExecuting))
	s.Apply(actionStatus("scroll", nil, event.StatusCompleted))

	if got := len(s.Timeline()); got != 2 {
		t.Fatalf("timeline length = %d, want 2 (un-keyed cards append)", got)
	}
}

func TestApplyUnknownTypeAppendsWithoutSideEffects(t *testing.T) {
	s, _ := newTestState(t)

	s.Apply(statusEvent("Planning actions..."))
	if !s.Loading() {
		t.Fatalf("loading should be true after planning status")
	}

	s.Apply(&event.Event{Type: "telemetry", Message: "cpu 3%"})

	tl := s.Timeline()
	if tl[len(tl)-1].Type != "telemetry" {
		t.Fatalf("unknown event type must still be appended, got tail %q", tl[len(tl)-1].Type)
	}
	if !s.Loading() {
		t.Fatalf("unknown event type must not touch the loading flag")
	}
}

func TestLoadingFollowsPlanningAndCompletion(t *testing.T) {
	s, _ := newTestState(t)

	s.Apply(statusEvent("Planning actions..."))
	if !s.Loading() {
		t.Fatalf("loading = false after Planning status, want true")
	}

	// Unrelated events in between do not clear it.
	s.Apply(&event.Event{Type: event.TypePlan, Plan: []event.PlanStep{{Action: "navigate"}}})
	s.Apply(actionStatus("navigate", step(1), event.StatusExecuting))
	if !s.Loading() {
		t.Fatalf("loading cleared by unrelated events")
	}

	s.Apply(statusEvent("Execution completed"))
	if s.Loading() {
		t.Fatalf("loading = true after completion status, want false")
	}
}

func TestLoadingSingleEventLastRuleWins(t *testing.T) {
	s, _ := newTestState(t)

	// Both substrings in one message: the completion rule runs last.
	s.Apply(statusEvent("Planning completed"))
	if s.Loading() {
		t.Fatalf("loading = true, want false when the completion rule fires last")
	}
}

func TestLoadingClearedByFilterActionCompletion(t *testing.T) {
	s, _ := newTestState(t)

	s.Apply(statusEvent("Planning actions..."))
	s.Apply(actionStatus(event.ActionFilter, nil, event.StatusCompleted))
	if s.Loading() {
		t.Fatalf("filter completion must clear loading (no step, so no generic completion status)")
	}
}

func TestHandleOpenAppendsSystemEvent(t *testing.T) {
	s, _ := newTestState(t)

	s.HandleOpen()
	if !s.Connected() {
		t.Fatalf("Connected() = false after HandleOpen")
	}
	tl := s.Timeline()
	if len(tl) != 1 || tl[0].Type != event.TypeSystem || tl[0].Message != "Connected to server" {
		t.Fatalf("timeline after open = %+v, want one system connect entry", tl)
	}
}

func TestHandleClosedForcesLoadingOffAndAppendsOnce(t *testing.T) {
	s, _ := newTestState(t)

	s.HandleOpen()
	s.Apply(statusEvent("Planning actions..."))
	s.HandleClosed()

	if s.Connected() {
		t.Fatalf("Connected() = true after HandleClosed")
	}
	if s.Loading() {
		t.Fatalf("loading must be forced false on close")
	}

	var disconnects int
	for _, ev := range s.Timeline() {
		if ev.Type == event.TypeSystem && ev.Message == "Disconnected from server. Reconnecting..." {
			disconnects++
		}
	}
	if disconnects != 1 {
		t.Fatalf("got %d disconnect entries, want exactly 1", disconnects)
	}
}

func TestSendInstructionEchoesAndSetsLoading(t *testing.T) {
	s, sender := newTestState(t)
	s.HandleOpen()

	if err := s.SendInstruction(context.Background(), "find pizza places in HSR"); err != nil {
		t.Fatalf("SendInstruction() error = %v", err)
	}

	tl := s.Timeline()
	last := tl[len(tl)-1]
	if last.Type != event.TypeUser || last.Message != "find pizza places in HSR" {
		t.Fatalf("tail entry = %+v, want echoed user turn", last)
	}
	if !s.Loading() {
		t.Fatalf("loading must be set optimistically on send")
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d payloads, want 1", len(sender.sent))
	}
	var payload map[string]any
	if err := json.Unmarshal(sender.sent[0], &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload["instruction"] != "find pizza places in HSR" {
		t.Fatalf("payload = %s, want plain instruction", sender.sent[0])
	}
	if _, ok := payload["is_clarification"]; ok {
		t.Fatalf("plain instruction must not carry is_clarification: %s", sender.sent[0])
	}
}
