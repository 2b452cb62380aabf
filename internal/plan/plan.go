// Package plan defines the structured output contract the generation model
// must satisfy before a plan is surfaced to a user.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Task priorities accepted from the model.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

type Activity struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Summary  string `json:"summary,omitempty"`
}

type Task struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Priority     string `json:"priority" enum:"high,medium,low"`
	TimeEstimate string `json:"time_estimate,omitempty"`
	Order        int    `json:"order"`
	Context      string `json:"context,omitempty"`
}

// Plan is the model's structured answer to a generation request.
type Plan struct {
	Activity Activity `json:"activity"`
	Tasks    []Task   `json:"tasks"`
}

// Validate enforces the output contract: a titled activity, at least one
// task, an enumerated priority on every task, and order values forming a
// contiguous 1..N sequence matching list position. A plan failing any check
// must not be shown to the user.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Activity.Title) == "" {
		return fmt.Errorf("activity title is required")
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("plan has no tasks")
	}
	for i, t := range p.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("task %d missing title", i+1)
		}
		switch t.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			return fmt.Errorf("task %d has invalid priority %q", i+1, t.Priority)
		}
		if t.Order != i+1 {
			return fmt.Errorf("task order not contiguous: position %d has order %d", i+1, t.Order)
		}
	}
	return nil
}

// Decode parses raw model output into a validated Plan. Models wrap JSON in
// markdown fences or emit slightly broken JSON often enough that we strip
// fences first and fall back to jsonrepair before giving up.
func Decode(raw string) (*Plan, error) {
	text := stripFences(raw)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty model response")
	}
	var p Plan
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, fmt.Errorf("decode plan: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &p); err != nil {
			return nil, fmt.Errorf("decode repaired plan: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
