package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"journalmate/internal/plan"
	"journalmate/internal/registry"
)

var (
	// ErrNotReady is returned when generation is requested before every
	// question for the session's mode has been answered.
	ErrNotReady = errors.New("session is not ready for generation")
	// ErrSessionClosed is returned when an answer arrives for a session
	// that already finished or was abandoned.
	ErrSessionClosed = errors.New("session is closed")
	// ErrGenerationFailed wraps the last generator error once the retry
	// ceiling is hit.
	ErrGenerationFailed = errors.New("plan generation failed")
	// ErrRegistryIntegrity signals a question catalog bug: the dialogue
	// finished but an essential field is still missing.
	ErrRegistryIntegrity = errors.New("question catalog integrity violation")
)

// DefaultMaxAttempts is the generation retry ceiling: one call plus one
// retry before the session is abandoned.
const DefaultMaxAttempts = 2

// FieldExtractor pulls structured fields out of a free-text answer. A single
// answer may carry more than the asked-for field ("dinner party for 12 next
// Saturday"), and recognized extras are banked so their questions are
// skipped. Extraction is best effort: an error falls back to storing the raw
// answer under the current question's field.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, domain registry.Domain, question registry.Question, answer string) (map[string]string, error)
}

// Generator produces a validated plan from the collected fields.
type Generator interface {
	GeneratePlan(ctx context.Context, req GenerationRequest) (*plan.Plan, error)
}

// GenerationRequest is the structured payload handed to the generator once
// a session is ready.
type GenerationRequest struct {
	SessionID string       `json:"session_id"`
	Domain    string       `json:"domain"`
	Mode      string       `json:"mode"`
	Fields    []FieldValue `json:"collected_fields"`
}

// Prompt is the next question to put to the user, with placeholders already
// substituted from collected context.
type Prompt struct {
	Field    string `json:"field"`
	Text     string `json:"text"`
	Examples string `json:"examples,omitempty"`
}

// Turn is the controller's response to a submitted answer: either the next
// question, a re-ask of the current one, or readiness for generation.
type Turn struct {
	Question *Prompt `json:"question,omitempty"`
	Reasked  bool    `json:"reasked,omitempty"`
	Ready    bool    `json:"ready"`
}

// Controller walks a session through its domain's question list, always
// asking exactly one question at a time.
type Controller struct {
	Registry    registry.Registry
	Extractor   FieldExtractor
	MaxAttempts int
}

// New builds a controller over the given catalog with the default retry
// ceiling and no extractor.
func New(reg registry.Registry) *Controller {
	return &Controller{Registry: reg, MaxAttempts: DefaultMaxAttempts}
}

// Start opens a collecting session. The domain is resolved through the
// catalog, so an unrecognized value lands on the default domain rather than
// failing.
func (c *Controller) Start(domain registry.Domain, mode Mode) *Session {
	return NewSession(registry.ParseDomain(string(domain)), mode)
}

// NextQuestion returns the first unanswered question in definition order, or
// nil when the dialogue is exhausted. It does not mutate session status.
func (c *Controller) NextQuestion(s *Session) *Prompt {
	q, idx := c.firstUnanswered(s)
	if q == nil {
		return nil
	}
	s.Cursor = idx
	return c.prompt(s, *q)
}

// SubmitAnswer records an answer against the current question and returns
// what to do next. A blank answer re-asks without touching session state.
// When every question for the mode is answered the session becomes ready.
func (c *Controller) SubmitAnswer(ctx context.Context, s *Session, answer string) (Turn, error) {
	switch s.Status {
	case StatusCollecting:
	case StatusReady:
		return Turn{Ready: true}, nil
	default:
		return Turn{}, fmt.Errorf("%w: status %s", ErrSessionClosed, s.Status)
	}

	current, idx := c.firstUnanswered(s)
	if current == nil {
		return c.finishCollecting(s)
	}
	s.Cursor = idx

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Turn{Question: c.prompt(s, *current), Reasked: true}, nil
	}

	c.apply(ctx, s, *current, answer)

	if next, nidx := c.firstUnanswered(s); next != nil {
		s.Cursor = nidx
		return Turn{Question: c.prompt(s, *next)}, nil
	}
	return c.finishCollecting(s)
}

// Generate calls the generator with bounded retries. A schema-invalid
// response counts as a failed attempt the same as a transport error. Hitting
// the ceiling, or the context being canceled, abandons the session.
func (c *Controller) Generate(ctx context.Context, s *Session, gen Generator) (*plan.Plan, error) {
	switch s.Status {
	case StatusReady, StatusGenerating:
	default:
		return nil, fmt.Errorf("%w: status %s", ErrNotReady, s.Status)
	}
	s.Status = StatusGenerating

	req := GenerationRequest{
		SessionID: s.ID,
		Domain:    string(s.Domain),
		Mode:      string(s.Mode),
		Fields:    s.Fields,
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			s.Status = StatusAbandoned
			return nil, err
		}
		p, err := gen.GeneratePlan(ctx, req)
		// A response that lands after cancellation is discarded, valid or not.
		if cerr := ctx.Err(); cerr != nil {
			s.Status = StatusAbandoned
			return nil, cerr
		}
		if err == nil {
			err = p.Validate()
		}
		if err == nil {
			s.Status = StatusComplete
			return p, nil
		}
		lastErr = err
	}
	s.Status = StatusAbandoned
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, attempts, lastErr)
}

// Abandon cancels the dialogue. Abandoning a terminal session is a no-op.
func (c *Controller) Abandon(s *Session) {
	if !s.Status.Terminal() {
		s.Status = StatusAbandoned
	}
}

func (c *Controller) questions(s *Session) []registry.Question {
	return c.Registry.QuestionsForDomain(s.Domain, s.Mode.MaxPriority())
}

func (c *Controller) firstUnanswered(s *Session) (*registry.Question, int) {
	for i, q := range c.questions(s) {
		if !s.answered(q) {
			return &q, i
		}
	}
	return nil, -1
}

// apply stores the answer. When an extractor is configured it may bank
// additional recognized fields from the same utterance; whatever happens,
// the current question must end up satisfied, so the raw answer is stored
// under its canonical field if extraction did not cover it.
func (c *Controller) apply(ctx context.Context, s *Session, q registry.Question, answer string) {
	if c.Extractor != nil {
		extracted, err := c.Extractor.ExtractFields(ctx, s.Domain, q, answer)
		if err == nil {
			recognized := c.recognizedFields(s.Domain)
			for field, value := range extracted {
				value = strings.TrimSpace(value)
				if value == "" || !recognized[field] {
					continue
				}
				if _, exists := s.Value(field); exists {
					continue
				}
				s.set(field, value)
			}
		}
	}
	if !s.answered(q) {
		s.set(q.Field, answer)
	}
}

func (c *Controller) recognizedFields(d registry.Domain) map[string]bool {
	names := c.Registry.FieldNames(d)
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func (c *Controller) finishCollecting(s *Session) (Turn, error) {
	if err := c.checkEssentials(s); err != nil {
		return Turn{}, err
	}
	s.Status = StatusReady
	return Turn{Ready: true}, nil
}

// checkEssentials guards against catalog drift: every critical question must
// be satisfied by the time collection finishes, in both modes.
func (c *Controller) checkEssentials(s *Session) error {
	for _, q := range c.Registry.QuestionsForDomain(s.Domain, registry.PriorityCritical) {
		if !s.answered(q) {
			return fmt.Errorf("%w: essential field %s unanswered", ErrRegistryIntegrity, q.Field)
		}
	}
	return nil
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9]*)\}`)

// prompt renders a question, filling {field} placeholders from collected
// context. A placeholder resolves through the same alternate-field matching
// as answers, so {destination} picks up a value stored as
// specificDestination.
func (c *Controller) prompt(s *Session, q registry.Question) *Prompt {
	text := placeholderRe.ReplaceAllStringFunc(q.Prompt, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := c.resolvePlaceholder(s, name); ok {
			return v
		}
		return "your " + name
	})
	return &Prompt{Field: q.Field, Text: text, Examples: q.Examples}
}

func (c *Controller) resolvePlaceholder(s *Session, name string) (string, bool) {
	if v, ok := s.Value(name); ok {
		return v, true
	}
	for _, q := range c.Registry.QuestionsForDomain(s.Domain, registry.PriorityHelpful) {
		if !q.Satisfies(name) {
			continue
		}
		for _, key := range q.Keys() {
			if v, ok := s.Value(key); ok {
				return v, true
			}
		}
	}
	return "", false
}
