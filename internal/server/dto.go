package server

import (
	"encoding/json"

	"github.com/google/uuid"

	"journalmate/internal/domain"
	"journalmate/internal/planner"
	"journalmate/internal/registry"
	"journalmate/internal/repo"
)

// Request payloads

type CreateSessionRequest struct {
	Request string  `json:"request,omitempty"`
	Domain  *string `json:"domain,omitempty"`
	Mode    string  `json:"mode,omitempty" enum:"quick,smart"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

// Response payloads

type SessionFieldResponse struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

type SessionResponse struct {
	ID        string                 `json:"id"`
	Domain    string                 `json:"domain"`
	Mode      string                 `json:"mode" enum:"quick,smart"`
	Status    string                 `json:"status" enum:"collecting,ready,generating,complete,abandoned"`
	Request   string                 `json:"request,omitempty"`
	Fields    []SessionFieldResponse `json:"fields,omitempty"`
	CreatedAt string                 `json:"created_at" format:"date-time"`
	UpdatedAt string                 `json:"updated_at" format:"date-time"`
	ClosedAt  *string                `json:"closed_at,omitempty" format:"date-time"`
}

type QuestionResponse struct {
	Field    string `json:"field"`
	Text     string `json:"text"`
	Examples string `json:"examples,omitempty"`
}

type TurnResponse struct {
	Session  SessionResponse   `json:"session"`
	Question *QuestionResponse `json:"question,omitempty"`
	Reasked  bool              `json:"reasked,omitempty"`
	Ready    bool              `json:"ready"`
}

type PlanTaskResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Priority     string `json:"priority" enum:"high,medium,low"`
	TimeEstimate string `json:"time_estimate,omitempty"`
	Position     int    `json:"position"`
	Context      string `json:"context,omitempty"`
}

type PlanResponse struct {
	ID               string             `json:"id"`
	SessionID        string             `json:"session_id"`
	Domain           string             `json:"domain"`
	ActivityTitle    string             `json:"activity_title"`
	ActivityCategory string             `json:"activity_category,omitempty"`
	ActivitySummary  string             `json:"activity_summary,omitempty"`
	Tasks            []PlanTaskResponse `json:"tasks"`
	CreatedAt        string             `json:"created_at" format:"date-time"`
}

type DomainResponse struct {
	Key     string `json:"key"`
	Default bool   `json:"default,omitempty"`
}

type DomainQuestionResponse struct {
	Field           string   `json:"field"`
	Prompt          string   `json:"prompt"`
	Priority        int      `json:"priority" minimum:"1" maximum:"3"`
	AlternateFields []string `json:"alternate_fields,omitempty"`
	Examples        string   `json:"examples,omitempty"`
}

type EventResponse struct {
	ID         int64           `json:"id"`
	TS         string          `json:"ts" format:"date-time"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	Key       string `json:"key,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Mappers

func sessionResponse(s domain.Session) SessionResponse {
	out := SessionResponse{
		ID:        s.ID,
		Domain:    s.Domain,
		Mode:      s.Mode,
		Status:    s.Status,
		Request:   s.Request,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ClosedAt:  s.ClosedAt,
	}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, SessionFieldResponse{Field: f.Field, Value: f.Value, Position: f.Position})
	}
	return out
}

func mapSessions(in []domain.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(in))
	for _, s := range in {
		out = append(out, sessionResponse(s))
	}
	return out
}

func questionResponse(p *planner.Prompt) *QuestionResponse {
	if p == nil {
		return nil
	}
	return &QuestionResponse{Field: p.Field, Text: p.Text, Examples: p.Examples}
}

func turnResponse(s domain.Session, turn planner.Turn) TurnResponse {
	return TurnResponse{
		Session:  sessionResponse(s),
		Question: questionResponse(turn.Question),
		Reasked:  turn.Reasked,
		Ready:    turn.Ready,
	}
}

func planResponse(p domain.Plan) PlanResponse {
	out := PlanResponse{
		ID:               p.ID,
		SessionID:        p.SessionID,
		Domain:           p.Domain,
		ActivityTitle:    p.ActivityTitle,
		ActivityCategory: p.ActivityCategory,
		ActivitySummary:  p.ActivitySummary,
		Tasks:            []PlanTaskResponse{},
		CreatedAt:        p.CreatedAt,
	}
	for _, t := range p.Tasks {
		out.Tasks = append(out.Tasks, PlanTaskResponse{
			ID:           t.ID,
			Title:        t.Title,
			Description:  t.Description,
			Category:     t.Category,
			Priority:     t.Priority,
			TimeEstimate: t.TimeEstimate,
			Position:     t.Position,
			Context:      t.Context,
		})
	}
	return out
}

func mapPlans(in []domain.Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(in))
	for _, p := range in {
		out = append(out, planResponse(p))
	}
	return out
}

func mapQuestions(in []registry.Question) []DomainQuestionResponse {
	out := make([]DomainQuestionResponse, 0, len(in))
	for _, q := range in {
		out = append(out, DomainQuestionResponse{
			Field:           q.Field,
			Prompt:          q.Prompt,
			Priority:        q.Priority,
			AlternateFields: q.AlternateFields,
			Examples:        q.Examples,
		})
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	out := EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
	}
	if e.Payload != "" && json.Valid([]byte(e.Payload)) {
		out.Payload = json.RawMessage(e.Payload)
	}
	return out
}

func mapEvents(in []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(in))
	for _, e := range in {
		out = append(out, eventResponse(e))
	}
	return out
}

// NewAPIKey mints a raw key and its stored record. The raw value is only
// available at creation time; persistence keeps the hash.
func NewAPIKey(actorID, name string) (domain.APIKey, string) {
	rawKey := uuid.New().String() + uuid.New().String()
	return apiKeyRecord(actorID, name, rawKey), rawKey
}

func apiKeyRecord(actorID, name, rawKey string) domain.APIKey {
	return domain.APIKey{
		ID:      uuid.New().String(),
		ActorID: actorID,
		Name:    name,
		KeyHash: repo.HashAPIKey(rawKey),
	}
}

func apiKeyResponse(k domain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		ActorID:   k.ActorID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt,
	}
}
