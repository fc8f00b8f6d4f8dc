// Package event defines the tagged message types exchanged with the
// automation backend and their wire codecs.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates inbound message kinds.
type Type string

const (
	TypeSystem        Type = "system"
	TypeUser          Type = "user"
	TypeStatus        Type = "status"
	TypeActionStatus  Type = "action_status"
	TypePlan          Type = "plan"
	TypeError         Type = "error"
	TypeClarification Type = "clarification"
	TypeBlocked       Type = "blocked"
	TypeFilterOptions Type = "filter_options"
)

// Action status values reported by the backend per plan step.
const (
	StatusExecuting = "executing"
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusPending   = "pending"
)

// ActionFilter is the un-numbered action the backend emits when applying
// result filters. At most one such card exists in the timeline.
const ActionFilter = "filter"

// Event is one inbound message, tagged by Type. Fields outside the
// tag's kind are zero. Unknown tags decode with Type preserved so the
// timeline can still render them.
type Event struct {
	Type    Type   `json:"type"`
	Message string `json:"message,omitempty"`

	// action_status
	Action  string          `json:"action,omitempty"`
	Status  string          `json:"status,omitempty"`
	Step    *int            `json:"step,omitempty"`
	Total   int             `json:"total,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`

	// plan
	Plan []PlanStep `json:"data,omitempty"`

	// error
	Suggestions []string `json:"suggestions,omitempty"`

	// clarification
	Question          string   `json:"question,omitempty"`
	Options           []Option `json:"options,omitempty"`
	ClarificationType string   `json:"clarification_type,omitempty"`
	Context           string   `json:"context,omitempty"`
	Field             string   `json:"field,omitempty"`

	// blocked
	Alternatives []Option `json:"alternatives,omitempty"`

	// filter_options
	FilterSummary []string      `json:"filter_summary,omitempty"`
	Filters       []FilterGroup `json:"filters,omitempty"`

	// ReceivedAt is assigned by the client at decode time. Server
	// timestamps are not trusted; this is only used to disambiguate
	// identity of un-numbered kinds (clarifications, filter panels).
	ReceivedAt time.Time `json:"-"`
}

// PlanStep is one entry of a plan event.
type PlanStep struct {
	Action   string `json:"action"`
	Selector string `json:"selector,omitempty"`
}

// Option is an enumerated answer for clarifications and alternatives.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterGroup is one refinable field of a filter panel.
type FilterGroup struct {
	Field   string   `json:"field"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
}

// SystemMessage builds a synthetic system event for transport
// lifecycle notices ("Connected to server", ...).
func SystemMessage(text string, at time.Time) *Event {
	return &Event{Type: TypeSystem, Message: text, ReceivedAt: at}
}

// UserMessage builds a locally echoed user turn.
func UserMessage(text string, at time.Time) *Event {
	return &Event{Type: TypeUser, Message: text, ReceivedAt: at}
}

// ClarificationID identifies a clarification question for the lifetime
// of the session: receipt time plus question text.
func ClarificationID(ev *Event) string {
	return fmt.Sprintf("%d|%s", ev.ReceivedAt.UnixMilli(), ev.Question)
}

// OptionID identifies one option within a clarification.
func OptionID(ev *Event, index int) string {
	return fmt.Sprintf("%s|%d", ClarificationID(ev), index)
}

// PanelID identifies a filter panel by the receipt time of its
// filter_options event.
func PanelID(ev *Event) string {
	return fmt.Sprintf("%d", ev.ReceivedAt.UnixMilli())
}
