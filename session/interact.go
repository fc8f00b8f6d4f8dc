package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/renvins/webpilot/event"
	"github.com/renvins/webpilot/logger"
)

// filterRefinementType tags filter submissions so the backend routes
// them to the stored result set instead of the planner.
const filterRefinementType = "product_filter_refinement"

// skipSentinel is sent when a filter panel is submitted with nothing
// selected; the backend treats it as "show everything".
const skipSentinel = "skip"

// Answered reports whether a clarification or option id has already
// been submitted.
func (s *State) Answered(id string) bool { return s.answered[id] }

// Selection returns the chosen option for a panel field, or "" when
// none is selected.
func (s *State) Selection(panelID, field string) string {
	return s.selections[panelID][field]
}

// SelectClarificationOption answers a clarification with the option at
// index. Each question, and each option within it, is sent at most
// once per session; repeat calls are no-ops. The answered marks stick
// only once the send succeeds, so a failed attempt can be retried
// after reconnecting.
func (s *State) SelectClarificationOption(ctx context.Context, ev *event.Event, index int) error {
	if ev.Type != event.TypeClarification {
		return fmt.Errorf("session: event is %q, not a clarification", ev.Type)
	}
	if index < 0 || index >= len(ev.Options) {
		return fmt.Errorf("session: option index %d out of range (%d options)", index, len(ev.Options))
	}
	if !s.connected {
		return ErrDisconnected
	}

	questionID := event.ClarificationID(ev)
	optionID := event.OptionID(ev, index)
	if s.answered[questionID] || s.answered[optionID] {
		return nil
	}
	s.answered[questionID] = true
	s.answered[optionID] = true

	opt := ev.Options[index]
	payload, err := event.ClarificationAnswer(opt.Value, ev.ClarificationType)
	if err != nil {
		return err
	}
	s.loading = true
	if err := s.sender.Send(ctx, payload); err != nil {
		delete(s.answered, questionID)
		delete(s.answered, optionID)
		s.loading = false
		logger.Warn("clarification answer send failed", "question", ev.Question, "err", err)
		return err
	}
	return nil
}

// ToggleFilterOption selects option for field on the given panel, or
// clears it when it is already the current choice. One option per
// field; selections stay editable after submission.
func (s *State) ToggleFilterOption(panelID, field, option string) {
	fields := s.selections[panelID]
	if fields == nil {
		fields = make(map[string]string)
		s.selections[panelID] = fields
	}
	if fields[field] == option {
		delete(fields, field)
		return
	}
	fields[field] = option
}

// SubmitFilters sends the panel's current selections as a refinement:
// the chosen options joined by spaces in field declaration order, or
// the sentinel "skip" when nothing is selected. Unlike clarifications
// the panel is not frozen; refinements can be submitted repeatedly.
func (s *State) SubmitFilters(ctx context.Context, ev *event.Event) error {
	if ev.Type != event.TypeFilterOptions {
		return fmt.Errorf("session: event is %q, not a filter panel", ev.Type)
	}
	if !s.connected {
		return ErrDisconnected
	}

	panelID := event.PanelID(ev)
	fields := s.selections[panelID]

	var chosen []string
	for _, group := range ev.Filters {
		if v, ok := fields[group.Field]; ok {
			chosen = append(chosen, v)
		}
	}
	value := skipSentinel
	if len(chosen) > 0 {
		value = strings.Join(chosen, " ")
	}

	payload, err := event.ClarificationAnswer(value, filterRefinementType)
	if err != nil {
		return err
	}
	s.loading = true
	if err := s.sender.Send(ctx, payload); err != nil {
		s.loading = false
		logger.Warn("filter submit send failed", "panel", panelID, "err", err)
		return err
	}
	return nil
}

// ClearFilters drops all selections for a panel without sending
// anything.
func (s *State) ClearFilters(panelID string) {
	delete(s.selections, panelID)
}

// LatestClarification returns the most recent clarification in the
// timeline that has not been answered yet, or nil.
func (s *State) LatestClarification() *event.Event {
	for i := len(s.timeline) - 1; i >= 0; i-- {
		ev := s.timeline[i]
		if ev.Type == event.TypeClarification && !s.answered[event.ClarificationID(ev)] {
			return ev
		}
	}
	return nil
}

// LatestFilterPanel returns the most recent filter panel in the
// timeline, or nil. Panels stay active forever, so the newest one is
// always the interaction target.
func (s *State) LatestFilterPanel() *event.Event {
	for i := len(s.timeline) - 1; i >= 0; i-- {
		if s.timeline[i].Type == event.TypeFilterOptions {
			return s.timeline[i]
		}
	}
	return nil
}
