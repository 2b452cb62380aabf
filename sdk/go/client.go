package journalmatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal JournalMate HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Question is the next prompt in a session dialogue.
type Question struct {
	Field    string `json:"field"`
	Text     string `json:"text"`
	Examples string `json:"examples,omitempty"`
}

// SessionField is one collected answer.
type SessionField struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

// Session represents the API session model.
type Session struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	Mode      string         `json:"mode"`
	Status    string         `json:"status"`
	Request   string         `json:"request,omitempty"`
	Fields    []SessionField `json:"fields,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	ClosedAt  *string        `json:"closed_at,omitempty"`
}

// Turn is the result of starting a session or submitting an answer.
type Turn struct {
	Session  Session   `json:"session"`
	Question *Question `json:"question,omitempty"`
	Reasked  bool      `json:"reasked,omitempty"`
	Ready    bool      `json:"ready"`
}

// PlanTask is one step of a generated plan.
type PlanTask struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Priority     string `json:"priority"`
	TimeEstimate string `json:"time_estimate,omitempty"`
	Position     int    `json:"position"`
	Context      string `json:"context,omitempty"`
}

// Plan is a generated activity with its tasks.
type Plan struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	Domain           string     `json:"domain"`
	ActivityTitle    string     `json:"activity_title"`
	ActivityCategory string     `json:"activity_category,omitempty"`
	ActivitySummary  string     `json:"activity_summary,omitempty"`
	Tasks            []PlanTask `json:"tasks"`
	CreatedAt        string     `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StartSession opens a planning session. Domain and mode are optional;
// an empty domain lets the server detect one from the request text.
func (c *Client) StartSession(ctx context.Context, request, domain, mode string) (Turn, error) {
	body := map[string]any{"request": request}
	if domain != "" {
		body["domain"] = domain
	}
	if mode != "" {
		body["mode"] = mode
	}
	var resp Turn
	err := c.do(ctx, http.MethodPost, "v0/sessions", body, &resp)
	return resp, err
}

// GetSession fetches a session by id.
func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, c.sessionPath(id, ""), nil, &resp)
	return resp, err
}

// NextQuestion returns the pending question for a collecting session.
func (c *Client) NextQuestion(ctx context.Context, id string) (Turn, error) {
	var resp Turn
	err := c.do(ctx, http.MethodGet, c.sessionPath(id, "question"), nil, &resp)
	return resp, err
}

// SubmitAnswer records an answer and returns the next turn.
func (c *Client) SubmitAnswer(ctx context.Context, id, answer string) (Turn, error) {
	body := map[string]any{"answer": answer}
	var resp Turn
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "answers"), body, &resp)
	return resp, err
}

// GeneratePlan asks the server to generate the plan for a ready session.
func (c *Client) GeneratePlan(ctx context.Context, id string) (Plan, error) {
	var resp Plan
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "plan"), nil, &resp)
	return resp, err
}

// AbandonSession closes a session without generating a plan.
func (c *Client) AbandonSession(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodDelete, c.sessionPath(id, ""), nil, &resp)
	return resp, err
}

// GetPlan fetches a plan by id.
func (c *Client) GetPlan(ctx context.Context, id string) (Plan, error) {
	var resp Plan
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/plans/%s", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) sessionPath(id, sub string) string {
	p := fmt.Sprintf("v0/sessions/%s", url.PathEscape(id))
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
