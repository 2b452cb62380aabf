package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"journalmate/internal/config"
	"journalmate/internal/db"
	"journalmate/internal/engine"
	"journalmate/internal/migrate"
	"journalmate/internal/plan"
	"journalmate/internal/planner"
)

type testServer struct {
	URL           string
	Engine        *engine.Engine
	failGenerator *stubGenerator
	client        *http.Client
	close         func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

type stubGenerator struct {
	fail bool
}

func (g *stubGenerator) GeneratePlan(_ context.Context, req planner.GenerationRequest) (*plan.Plan, error) {
	if g.fail {
		return nil, io.ErrUnexpectedEOF
	}
	return &plan.Plan{
		Activity: plan.Activity{Title: "Trip plan", Category: req.Domain},
		Tasks: []plan.Task{
			{Title: "Book transport", Priority: plan.PriorityHigh, Order: 1},
			{Title: "Book a place to stay", Priority: plan.PriorityMedium, Order: 2},
		},
	}, nil
}

func newTestServer(t *testing.T, auth AuthConfig) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("journalmate"))
	gen := &stubGenerator{}
	e.Generator = gen
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:           "http://" + ln.Addr().String(),
		Engine:        &e,
		failGenerator: gen,
		client:        &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func actorHeaders() map[string]string {
	return map[string]string{"X-Actor-Id": "tester"}
}

func legacyAuth() AuthConfig {
	return AuthConfig{AllowLegacyActorHeader: true}
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
	return out
}

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestRequestsRequireAuth(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/sessions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, data)
	}
}

func TestSessionPlanFlow(t *testing.T) {
	srv := newTestServer(t, legacyAuth())

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions",
		CreateSessionRequest{Request: "plan a trip to Spain", Mode: "quick"}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create session: %d %s", res.StatusCode, data)
	}
	turn := decode[TurnResponse](t, data)
	if turn.Session.Domain != "travel" || turn.Session.Status != "collecting" {
		t.Fatalf("unexpected session: %+v", turn.Session)
	}
	if turn.Question == nil || turn.Question.Field != "specificDestination" {
		t.Fatalf("unexpected first question: %+v", turn.Question)
	}
	id := turn.Session.ID

	for i, answer := range []string{"Barcelona", "mid June", "ten days"} {
		res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+id+"/answers",
			SubmitAnswerRequest{Answer: answer}, actorHeaders())
		if res.StatusCode != http.StatusOK {
			t.Fatalf("answer %d: %d %s", i, res.StatusCode, data)
		}
		turn = decode[TurnResponse](t, data)
	}
	if !turn.Ready || turn.Session.Status != "ready" {
		t.Fatalf("expected ready session, got %+v", turn)
	}
	if len(turn.Session.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %+v", turn.Session.Fields)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+id+"/plan", nil, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("generate plan: %d %s", res.StatusCode, data)
	}
	p := decode[PlanResponse](t, data)
	if p.SessionID != id || len(p.Tasks) != 2 || p.Tasks[0].Position != 1 {
		t.Fatalf("unexpected plan: %+v", p)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/plans/"+p.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get plan: %d %s", res.StatusCode, data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/sessions/"+id, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get session: %d", res.StatusCode)
	}
	s := decode[SessionResponse](t, data)
	if s.Status != "complete" {
		t.Fatalf("session status after plan: %s", s.Status)
	}
}

func TestGenerateBeforeReadyConflicts(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	_, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions",
		CreateSessionRequest{Request: "trip", Mode: "quick"}, actorHeaders())
	turn := decode[TurnResponse](t, data)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+turn.Session.ID+"/plan", nil, actorHeaders())
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, data)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/sessions/nope", nil, actorHeaders())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}

func TestAbandonSession(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	_, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions",
		CreateSessionRequest{Request: "trip", Mode: "quick"}, actorHeaders())
	turn := decode[TurnResponse](t, data)

	res, data := doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/sessions/"+turn.Session.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("abandon: %d %s", res.StatusCode, data)
	}
	s := decode[SessionResponse](t, data)
	if s.Status != "abandoned" {
		t.Fatalf("status = %s", s.Status)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/sessions/"+turn.Session.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("second abandon: expected 409, got %d", res.StatusCode)
	}
}

func TestDomainEndpoints(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/domains", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("domains: %d", res.StatusCode)
	}
	domains := decode[[]DomainResponse](t, data)
	if len(domains) != 9 {
		t.Fatalf("expected 9 domains, got %d", len(domains))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/domains/travel/questions?mode=quick", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("questions: %d %s", res.StatusCode, data)
	}
	qs := decode[[]DomainQuestionResponse](t, data)
	if len(qs) != 3 || qs[0].Field != "specificDestination" {
		t.Fatalf("unexpected quick travel questions: %+v", qs)
	}
}

func TestEventsRecorded(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions",
		CreateSessionRequest{Request: "trip", Mode: "quick"}, actorHeaders())

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/events?type=session.started", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d", res.StatusCode)
	}
	evts := decode[[]EventResponse](t, data)
	if len(evts) != 1 || evts[0].EntityKind != "session" {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/keys",
		CreateAPIKeyRequest{ActorID: "robot", Name: "ci"}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.StatusCode, data)
	}
	key := decode[APIKeyResponse](t, data)
	if key.Key == "" {
		t.Fatalf("raw key not returned on create")
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": key.Key})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me via api key: %d %s", res.StatusCode, data)
	}
	me := decode[map[string]string](t, data)
	if me["actor_id"] != "robot" || me["source"] != "api_key" {
		t.Fatalf("unexpected principal: %v", me)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/auth/keys", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list keys: %d", res.StatusCode)
	}
	keys := decode[[]APIKeyResponse](t, data)
	if len(keys) != 1 || keys[0].Key != "" {
		t.Fatalf("list must not leak raw keys: %+v", keys)
	}
}

func TestDevLoginAndJWT(t *testing.T) {
	srv := newTestServer(t, AuthConfig{JWTSecret: "test-secret"})
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login",
		DevLoginRequest{ActorID: "dev"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", res.StatusCode, data)
	}
	token := decode[DevLoginResponse](t, data).Token

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me via jwt: %d %s", res.StatusCode, data)
	}
	me := decode[map[string]string](t, data)
	if me["actor_id"] != "dev" || me["source"] != "jwt" {
		t.Fatalf("unexpected principal: %v", me)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil,
		map[string]string{"Authorization": "Bearer not-a-token"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestGenerationFailureIs502(t *testing.T) {
	srv := newTestServer(t, legacyAuth())
	srv.failGenerator.fail = true

	_, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions",
		CreateSessionRequest{Request: "trip", Mode: "quick"}, actorHeaders())
	turn := decode[TurnResponse](t, data)
	id := turn.Session.ID
	for _, answer := range []string{"Barcelona", "June", "a week"} {
		doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+id+"/answers",
			SubmitAnswerRequest{Answer: answer}, actorHeaders())
	}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+id+"/plan", nil, actorHeaders())
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/sessions/"+id, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get session: %d", res.StatusCode)
	}
	if s := decode[SessionResponse](t, data); s.Status != "abandoned" {
		t.Fatalf("session status after failed generation: %s", s.Status)
	}
}
