// Package planner drives the slot-filling conversation that turns a planning
// request into a structured generation request, one clarifying question at a
// time.
package planner

import (
	"errors"

	"github.com/google/uuid"

	"journalmate/internal/registry"
)

// Mode controls how deep the question dialogue goes. Quick asks only
// critical questions; Smart walks all three priority tiers. The mode is
// fixed when the session is created.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeSmart Mode = "smart"
)

// ParseMode validates a mode string, defaulting empty input to Smart.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeQuick, ModeSmart:
		return Mode(s), nil
	case "":
		return ModeSmart, nil
	}
	return "", errors.New("mode must be quick or smart")
}

// MaxPriority is the deepest question tier the mode enumerates.
func (m Mode) MaxPriority() int {
	if m == ModeQuick {
		return registry.PriorityCritical
	}
	return registry.PriorityHelpful
}

// Session statuses.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusReady      Status = "ready"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether the session can no longer change.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusAbandoned
}

// FieldValue is one collected slot. Fields keep the order the user supplied
// them in, which is not necessarily question order.
type FieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Session is the state of one planning conversation. A session belongs to a
// single conversation and is never mutated concurrently.
type Session struct {
	ID     string
	Domain registry.Domain
	Mode   Mode
	Fields []FieldValue
	Cursor int
	Status Status
}

// NewSession creates a collecting session for the resolved domain.
func NewSession(domain registry.Domain, mode Mode) *Session {
	return &Session{
		ID:     uuid.New().String(),
		Domain: domain,
		Mode:   mode,
		Status: StatusCollecting,
	}
}

// Value returns the collected value for a field name, if any.
func (s *Session) Value(field string) (string, bool) {
	for _, fv := range s.Fields {
		if fv.Field == field {
			return fv.Value, true
		}
	}
	return "", false
}

// FieldMap returns the collected fields as a plain map.
func (s *Session) FieldMap() map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, fv := range s.Fields {
		out[fv.Field] = fv.Value
	}
	return out
}

func (s *Session) set(field, value string) {
	for i, fv := range s.Fields {
		if fv.Field == field {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, FieldValue{Field: field, Value: value})
}

// answered reports whether any collected field satisfies the question.
func (s *Session) answered(q registry.Question) bool {
	for _, fv := range s.Fields {
		if q.Satisfies(fv.Field) {
			return true
		}
	}
	return false
}
