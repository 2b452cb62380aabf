package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"journalmate/internal/config"
	"journalmate/internal/detect"
	"journalmate/internal/domain"
	"journalmate/internal/events"
	"journalmate/internal/plan"
	"journalmate/internal/planner"
	"journalmate/internal/registry"
	"journalmate/internal/repo"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Planner   *planner.Controller
	Generator planner.Generator
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	ctrl := planner.New(registry.Default())
	if cfg != nil && cfg.Planner.MaxGenerationAttempts > 0 {
		ctrl.MaxAttempts = cfg.Planner.MaxGenerationAttempts
	}
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.Writer{DB: db},
		Config:  cfg,
		Planner: ctrl,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// StartSessionOptions are parameters for opening a planning session.
type StartSessionOptions struct {
	Request    string
	DomainHint string
	Mode       string
	ActorID    string
}

// StartSession resolves the domain, persists a collecting session, and
// returns the first question to ask.
func (e Engine) StartSession(ctx context.Context, opts StartSessionOptions) (domain.Session, *planner.Prompt, error) {
	mode, err := planner.ParseMode(opts.Mode)
	if err != nil {
		return domain.Session{}, nil, err
	}
	if opts.Mode == "" && e.Config != nil && e.Config.Planner.Mode != "" {
		mode = planner.Mode(e.Config.Planner.Mode)
	}
	var fallback registry.Domain
	if e.Config != nil {
		fallback = registry.Domain(e.Config.Service.DefaultDomain)
	}
	dom := detect.Resolve(opts.DomainHint, opts.Request, fallback)

	ps := e.Planner.Start(dom, mode)
	now := e.now().UTC().Format(time.RFC3339)
	rec := domain.Session{
		ID:        ps.ID,
		Domain:    string(ps.Domain),
		Mode:      string(ps.Mode),
		Status:    string(ps.Status),
		ActorID:   opts.ActorID,
		Request:   opts.Request,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertSession(ctx, tx, rec); err != nil {
		return domain.Session{}, nil, fmt.Errorf("insert session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeSessionStarted, "session", rec.ID, opts.ActorID, events.EventPayload{
		"domain": rec.Domain,
		"mode":   rec.Mode,
	}); err != nil {
		return domain.Session{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, nil, err
	}
	return rec, e.Planner.NextQuestion(ps), nil
}

// SubmitAnswer records an answer and advances the dialogue. The returned
// turn carries either the next question or readiness for generation.
func (e Engine) SubmitAnswer(ctx context.Context, sessionID, answer, actorID string) (domain.Session, planner.Turn, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, planner.Turn{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		return domain.Session{}, planner.Turn{}, err
	}
	ps := plannerSession(rec)

	turn, err := e.Planner.SubmitAnswer(ctx, ps, answer)
	if err != nil {
		return domain.Session{}, planner.Turn{}, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	rec.Status = string(ps.Status)
	rec.UpdatedAt = now
	rec.Fields = recordFields(ps)
	if err := e.Repo.ReplaceSessionFields(ctx, tx, rec.ID, rec.Fields); err != nil {
		return domain.Session{}, planner.Turn{}, fmt.Errorf("store fields: %w", err)
	}
	if err := e.Repo.UpdateSessionStatus(ctx, tx, rec.ID, rec.Status, now, nil); err != nil {
		return domain.Session{}, planner.Turn{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeSessionAnswered, "session", rec.ID, actorID, events.EventPayload{
		"fields": len(rec.Fields),
		"ready":  turn.Ready,
	}); err != nil {
		return domain.Session{}, planner.Turn{}, err
	}
	if turn.Ready && rec.Status == string(planner.StatusReady) {
		if err := e.Events.Append(ctx, tx, events.TypeSessionReady, "session", rec.ID, actorID, nil); err != nil {
			return domain.Session{}, planner.Turn{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, planner.Turn{}, err
	}
	return rec, turn, nil
}

// NextQuestion re-renders the pending question for a collecting session.
func (e Engine) NextQuestion(ctx context.Context, sessionID string) (*planner.Prompt, error) {
	rec, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.Planner.NextQuestion(plannerSession(rec)), nil
}

// GeneratePlan runs the generator for a ready session and persists the
// result. Generation failures abandon the session and are recorded as
// plan.failed events.
func (e Engine) GeneratePlan(ctx context.Context, sessionID, actorID string) (domain.Plan, error) {
	if e.Generator == nil {
		return domain.Plan{}, errors.New("no generator configured")
	}
	rec, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Plan{}, err
	}
	ps := plannerSession(rec)

	generated, genErr := e.Planner.Generate(ctx, ps, e.Generator)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Plan{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC().Format(time.RFC3339)
	if genErr != nil {
		closed := nullableClose(ps.Status, now)
		if err := e.Repo.UpdateSessionStatus(ctx, tx, rec.ID, string(ps.Status), now, closed); err != nil {
			return domain.Plan{}, err
		}
		if err := e.Events.Append(ctx, tx, events.TypePlanFailed, "session", rec.ID, actorID, events.EventPayload{
			"error": genErr.Error(),
		}); err != nil {
			return domain.Plan{}, err
		}
		if err := tx.Commit(); err != nil {
			return domain.Plan{}, err
		}
		return domain.Plan{}, genErr
	}

	p := planRecord(rec, generated, now)
	if err := e.Repo.InsertPlan(ctx, tx, p); err != nil {
		return domain.Plan{}, fmt.Errorf("insert plan: %w", err)
	}
	if err := e.Repo.UpdateSessionStatus(ctx, tx, rec.ID, string(ps.Status), now, &now); err != nil {
		return domain.Plan{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypePlanGenerated, "plan", p.ID, actorID, events.EventPayload{
		"session_id": rec.ID,
		"tasks":      len(p.Tasks),
	}); err != nil {
		return domain.Plan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}

// AbandonSession cancels a session that has not finished.
func (e Engine) AbandonSession(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetSessionTx(ctx, tx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if planner.Status(rec.Status).Terminal() {
		return domain.Session{}, fmt.Errorf("%w: status %s", planner.ErrSessionClosed, rec.Status)
	}
	now := e.now().UTC().Format(time.RFC3339)
	rec.Status = string(planner.StatusAbandoned)
	rec.UpdatedAt = now
	rec.ClosedAt = &now
	if err := e.Repo.UpdateSessionStatus(ctx, tx, rec.ID, rec.Status, now, &now); err != nil {
		return domain.Session{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeSessionAbandoned, "session", rec.ID, actorID, nil); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	return rec, nil
}

func plannerSession(rec domain.Session) *planner.Session {
	ps := &planner.Session{
		ID:     rec.ID,
		Domain: registry.ParseDomain(rec.Domain),
		Mode:   planner.Mode(rec.Mode),
		Status: planner.Status(rec.Status),
	}
	for _, f := range rec.Fields {
		ps.Fields = append(ps.Fields, planner.FieldValue{Field: f.Field, Value: f.Value})
	}
	return ps
}

func recordFields(ps *planner.Session) []domain.SessionField {
	out := make([]domain.SessionField, 0, len(ps.Fields))
	for i, fv := range ps.Fields {
		out = append(out, domain.SessionField{Field: fv.Field, Value: fv.Value, Position: i + 1})
	}
	return out
}

func planRecord(rec domain.Session, p *plan.Plan, now string) domain.Plan {
	out := domain.Plan{
		ID:               uuid.New().String(),
		SessionID:        rec.ID,
		Domain:           rec.Domain,
		ActivityTitle:    p.Activity.Title,
		ActivityCategory: p.Activity.Category,
		ActivitySummary:  p.Activity.Summary,
		CreatedAt:        now,
	}
	for _, t := range p.Tasks {
		out.Tasks = append(out.Tasks, domain.PlanTask{
			ID:           uuid.New().String(),
			PlanID:       out.ID,
			Title:        t.Title,
			Description:  t.Description,
			Category:     t.Category,
			Priority:     t.Priority,
			TimeEstimate: t.TimeEstimate,
			Position:     t.Order,
			Context:      t.Context,
		})
	}
	return out
}

func nullableClose(status planner.Status, now string) *string {
	if status.Terminal() {
		return &now
	}
	return nil
}
