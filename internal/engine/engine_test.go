package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"journalmate/internal/config"
	"journalmate/internal/db"
	"journalmate/internal/engine"
	"journalmate/internal/events"
	"journalmate/internal/migrate"
	"journalmate/internal/plan"
	"journalmate/internal/planner"
	"journalmate/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("journalmate"))
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

type fixedGenerator struct {
	calls    int
	failures int
	result   *plan.Plan
}

func (g *fixedGenerator) GeneratePlan(_ context.Context, _ planner.GenerationRequest) (*plan.Plan, error) {
	g.calls++
	if g.calls <= g.failures {
		return nil, errors.New("model unavailable")
	}
	return g.result, nil
}

func samplePlan() *plan.Plan {
	return &plan.Plan{
		Activity: plan.Activity{Title: "Week in Lisbon", Category: "travel"},
		Tasks: []plan.Task{
			{Title: "Book flights", Priority: plan.PriorityHigh, Order: 1},
			{Title: "Reserve hotel", Priority: plan.PriorityMedium, Order: 2},
		},
	}
}

func readySession(t *testing.T, env testEnv) string {
	t.Helper()
	rec, q, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request: "plan a trip to Lisbon",
		Mode:    "quick",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if q == nil || q.Field != "specificDestination" {
		t.Fatalf("unexpected first question: %+v", q)
	}
	for _, answer := range []string{"Lisbon", "early May", "a week"} {
		if _, _, err := env.Engine.SubmitAnswer(env.Ctx, rec.ID, answer, "tester"); err != nil {
			t.Fatalf("submit %q: %v", answer, err)
		}
	}
	got, err := env.Engine.Repo.GetSession(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != "ready" {
		t.Fatalf("session status = %s", got.Status)
	}
	return rec.ID
}

func TestStartSessionDetectsDomain(t *testing.T) {
	env := newTestEnv(t)
	rec, _, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request: "birthday party for my daughter",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rec.Domain != "event" {
		t.Fatalf("domain = %s", rec.Domain)
	}
	if rec.Mode != "smart" {
		t.Fatalf("default mode = %s", rec.Mode)
	}
	if rec.Status != "collecting" {
		t.Fatalf("status = %s", rec.Status)
	}
}

func TestStartSessionHintOverridesText(t *testing.T) {
	env := newTestEnv(t)
	rec, _, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request:    "plan a trip",
		DomainHint: "dining",
		Mode:       "quick",
		ActorID:    "tester",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rec.Domain != "dining" {
		t.Fatalf("domain = %s", rec.Domain)
	}
}

func TestStartSessionUsesConfiguredDefaultDomain(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Service.DefaultDomain = "wellness"
	rec, _, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request: "xyzzy",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rec.Domain != "wellness" {
		t.Fatalf("domain = %s, want configured default", rec.Domain)
	}
}

func TestAnswersPersistAcrossLoads(t *testing.T) {
	env := newTestEnv(t)
	rec, _, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request: "trip to Spain", Mode: "quick", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.Engine.SubmitAnswer(env.Ctx, rec.ID, "Barcelona", "tester"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	q, err := env.Engine.NextQuestion(env.Ctx, rec.ID)
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if q == nil || q.Field != "dates" {
		t.Fatalf("expected dates question after reload, got %+v", q)
	}

	got, err := env.Engine.Repo.GetSession(env.Ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Fields) != 1 || got.Fields[0].Field != "specificDestination" || got.Fields[0].Value != "Barcelona" {
		t.Fatalf("persisted fields: %+v", got.Fields)
	}
}

func TestGeneratePlanPersistsPlanAndCompletesSession(t *testing.T) {
	env := newTestEnv(t)
	id := readySession(t, env)
	env.Engine.Generator = &fixedGenerator{result: samplePlan()}

	p, err := env.Engine.GeneratePlan(env.Ctx, id, "tester")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if p.ActivityTitle != "Week in Lisbon" || len(p.Tasks) != 2 {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if p.Tasks[0].Position != 1 || p.Tasks[1].Position != 2 {
		t.Fatalf("task positions: %+v", p.Tasks)
	}

	got, err := env.Engine.Repo.GetSession(env.Ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "complete" || got.ClosedAt == nil {
		t.Fatalf("session after generation: %+v", got)
	}

	stored, err := env.Engine.Repo.GetPlanBySession(env.Ctx, id)
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if stored.ID != p.ID || len(stored.Tasks) != 2 {
		t.Fatalf("stored plan: %+v", stored)
	}
}

func TestGeneratePlanRetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t)
	id := readySession(t, env)
	gen := &fixedGenerator{failures: 1, result: samplePlan()}
	env.Engine.Generator = gen

	if _, err := env.Engine.GeneratePlan(env.Ctx, id, "tester"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("calls = %d", gen.calls)
	}
}

func TestGeneratePlanExhaustionAbandonsSession(t *testing.T) {
	env := newTestEnv(t)
	id := readySession(t, env)
	env.Engine.Generator = &fixedGenerator{failures: 10}

	_, err := env.Engine.GeneratePlan(env.Ctx, id, "tester")
	if !errors.Is(err, planner.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	got, err := env.Engine.Repo.GetSession(env.Ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "abandoned" {
		t.Fatalf("status = %s", got.Status)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, repo.EventFilters{Type: events.TypePlanFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 1 {
		t.Fatalf("expected one plan.failed event, got %d", len(evts))
	}
}

func TestGeneratePlanRequiresReadySession(t *testing.T) {
	env := newTestEnv(t)
	rec, _, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request: "trip", Mode: "quick", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	env.Engine.Generator = &fixedGenerator{result: samplePlan()}
	if _, err := env.Engine.GeneratePlan(env.Ctx, rec.ID, "tester"); !errors.Is(err, planner.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestAbandonSession(t *testing.T) {
	env := newTestEnv(t)
	rec, _, err := env.Engine.StartSession(env.Ctx, engine.StartSessionOptions{
		Request: "trip", Mode: "quick", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.AbandonSession(env.Ctx, rec.ID, "tester")
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if got.Status != "abandoned" || got.ClosedAt == nil {
		t.Fatalf("abandoned session: %+v", got)
	}
	if _, err := env.Engine.AbandonSession(env.Ctx, rec.ID, "tester"); !errors.Is(err, planner.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, _, err := env.Engine.SubmitAnswer(env.Ctx, rec.ID, "Barcelona", "tester"); !errors.Is(err, planner.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed on answer, got %v", err)
	}
}

func TestEventAppendOnLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := readySession(t, env)
	env.Engine.Generator = &fixedGenerator{result: samplePlan()}
	if _, err := env.Engine.GeneratePlan(env.Ctx, id, "tester"); err != nil {
		t.Fatal(err)
	}

	for _, evtType := range []string{
		events.TypeSessionStarted,
		events.TypeSessionAnswered,
		events.TypeSessionReady,
		events.TypePlanGenerated,
	} {
		evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, repo.EventFilters{Type: evtType})
		if err != nil {
			t.Fatal(err)
		}
		if len(evts) == 0 {
			t.Fatalf("no %s events", evtType)
		}
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, _, err := env.Engine.SubmitAnswer(env.Ctx, "missing", "x", "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
