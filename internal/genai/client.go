// Package genai calls the external plan-generation model over HTTP. The
// model endpoint receives the collected session fields and answers with the
// plan as text, which may arrive fenced or slightly malformed; decoding and
// schema validation happen here so callers only ever see valid plans.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"journalmate/internal/plan"
	"journalmate/internal/planner"
)

// ErrUnavailable marks failures worth retrying: timeouts, connection
// errors, and 5xx or 429 responses. Anything else is a permanent failure
// for this request.
var ErrUnavailable = errors.New("generation model unavailable")

const defaultTimeout = 30 * time.Second

// Client is a planner.Generator backed by an HTTP model endpoint.
type Client struct {
	Endpoint string
	Model    string
	APIKey   string
	HTTP     *http.Client
}

// New builds a client with the default timeout.
func New(endpoint, model, apiKey string) *Client {
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: defaultTimeout},
	}
}

type generateRequest struct {
	Model     string               `json:"model,omitempty"`
	SessionID string               `json:"session_id"`
	Domain    string               `json:"domain"`
	Mode      string               `json:"mode"`
	Fields    []planner.FieldValue `json:"collected_fields"`
}

// GeneratePlan posts the collected fields and decodes the response body as a
// plan. One call per attempt; the session controller owns the retry budget.
func (c *Client) GeneratePlan(ctx context.Context, req planner.GenerationRequest) (*plan.Plan, error) {
	if strings.TrimSpace(c.Endpoint) == "" {
		return nil, fmt.Errorf("generator endpoint not configured")
	}
	body, err := json.Marshal(generateRequest{
		Model:     c.Model,
		SessionID: req.SessionID,
		Domain:    req.Domain,
		Mode:      req.Mode,
		Fields:    req.Fields,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		if transientNetErr(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("call generation model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		if transientStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("generation model returned status %d: %s", resp.StatusCode, firstLine(raw))
	}
	return plan.Decode(string(raw))
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultTimeout}
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func transientNetErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func firstLine(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
