package domain

type Session struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	Mode      string         `json:"mode" enum:"quick,smart"`
	Status    string         `json:"status" enum:"collecting,ready,generating,complete,abandoned"`
	ActorID   string         `json:"actor_id"`
	Request   string         `json:"request,omitempty"`
	Fields    []SessionField `json:"fields,omitempty"`
	CreatedAt string         `json:"created_at" format:"date-time"`
	UpdatedAt string         `json:"updated_at" format:"date-time"`
	ClosedAt  *string        `json:"closed_at,omitempty" format:"date-time"`
}

type SessionField struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

type Plan struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	Domain           string     `json:"domain"`
	ActivityTitle    string     `json:"activity_title"`
	ActivityCategory string     `json:"activity_category,omitempty"`
	ActivitySummary  string     `json:"activity_summary,omitempty"`
	Tasks            []PlanTask `json:"tasks,omitempty"`
	CreatedAt        string     `json:"created_at" format:"date-time"`
}

type PlanTask struct {
	ID           string `json:"id"`
	PlanID       string `json:"plan_id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Priority     string `json:"priority" enum:"high,medium,low"`
	TimeEstimate string `json:"time_estimate,omitempty"`
	Position     int    `json:"position"`
	Context      string `json:"context,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
