package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"journalmate/internal/config"
	"journalmate/internal/domain"

	"gopkg.in/yaml.v3"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sessions(id,domain,mode,status,actor_id,request,created_at,updated_at,closed_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Domain, s.Mode, s.Status, s.ActorID, s.Request, s.CreatedAt, s.UpdatedAt, nullableStringPtr(s.ClosedAt))
	return err
}

func (r Repo) UpdateSessionStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string, closedAt *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE sessions SET status=?, updated_at=?, closed_at=? WHERE id=?`,
		status, updatedAt, nullableStringPtr(closedAt), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var s domain.Session
	var closedAt sql.NullString
	err := row.Scan(&s.ID, &s.Domain, &s.Mode, &s.Status, &s.ActorID, &s.Request, &s.CreatedAt, &s.UpdatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if closedAt.Valid {
		s.ClosedAt = &closedAt.String
	}
	return s, err
}

const sessionColumns = `id,domain,mode,status,actor_id,request,created_at,updated_at,closed_at`

func (r Repo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.DB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=?`, id))
	if err != nil {
		return s, err
	}
	s.Fields, err = r.ListSessionFields(ctx, id)
	return s, err
}

func (r Repo) GetSessionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Session, error) {
	s, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=?`, id))
	if err != nil {
		return s, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT field,value,position FROM session_fields WHERE session_id=? ORDER BY position ASC`, id)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	s.Fields, err = collectFields(rows)
	return s, err
}

type SessionFilters struct {
	Status  string
	Domain  string
	ActorID string
	Limit   int
}

func (r Repo) ListSessions(ctx context.Context, f SessionFilters) ([]domain.Session, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Domain != "" {
		clauses = append(clauses, "domain=?")
		args = append(args, f.Domain)
	}
	if f.ActorID != "" {
		clauses = append(clauses, "actor_id=?")
		args = append(args, f.ActorID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY created_at DESC LIMIT ?`, sessionColumns, strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Session
	for rows.Next() {
		var s domain.Session
		var closedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.Domain, &s.Mode, &s.Status, &s.ActorID, &s.Request, &s.CreatedAt, &s.UpdatedAt, &closedAt); err != nil {
			return nil, err
		}
		if closedAt.Valid {
			s.ClosedAt = &closedAt.String
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ReplaceSessionFields rewrites the collected fields for a session, keeping
// the stored positions aligned with collection order.
func (r Repo) ReplaceSessionFields(ctx context.Context, tx *sql.Tx, sessionID string, fields []domain.SessionField) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_fields WHERE session_id=?`, sessionID); err != nil {
		return err
	}
	for _, f := range fields {
		if _, err := tx.ExecContext(ctx, `INSERT INTO session_fields(session_id,field,value,position) VALUES (?,?,?,?)`,
			sessionID, f.Field, f.Value, f.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) ListSessionFields(ctx context.Context, sessionID string) ([]domain.SessionField, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT field,value,position FROM session_fields WHERE session_id=? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFields(rows)
}

func collectFields(rows *sql.Rows) ([]domain.SessionField, error) {
	var res []domain.SessionField
	for rows.Next() {
		var f domain.SessionField
		if err := rows.Scan(&f.Field, &f.Value, &f.Position); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) InsertPlan(ctx context.Context, tx *sql.Tx, p domain.Plan) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO plans(id,session_id,domain,activity_title,activity_category,activity_summary,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.SessionID, p.Domain, p.ActivityTitle, p.ActivityCategory, p.ActivitySummary, p.CreatedAt)
	if err != nil {
		return err
	}
	for _, t := range p.Tasks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO plan_tasks(id,plan_id,title,description,category,priority,time_estimate,position,context) VALUES (?,?,?,?,?,?,?,?,?)`,
			t.ID, p.ID, t.Title, t.Description, t.Category, t.Priority, t.TimeEstimate, t.Position, t.Context); err != nil {
			return err
		}
	}
	return nil
}

const planColumns = `id,session_id,domain,activity_title,activity_category,activity_summary,created_at`

func scanPlanRow(row *sql.Row) (domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(&p.ID, &p.SessionID, &p.Domain, &p.ActivityTitle, &p.ActivityCategory, &p.ActivitySummary, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	p, err := scanPlanRow(r.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id=?`, id))
	if err != nil {
		return p, err
	}
	p.Tasks, err = r.listPlanTasks(ctx, p.ID)
	return p, err
}

func (r Repo) GetPlanBySession(ctx context.Context, sessionID string) (domain.Plan, error) {
	p, err := scanPlanRow(r.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE session_id=? ORDER BY created_at DESC LIMIT 1`, sessionID))
	if err != nil {
		return p, err
	}
	p.Tasks, err = r.listPlanTasks(ctx, p.ID)
	return p, err
}

type PlanFilters struct {
	Domain string
	Limit  int
}

func (r Repo) ListPlans(ctx context.Context, f PlanFilters) ([]domain.Plan, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Domain != "" {
		clauses = append(clauses, "domain=?")
		args = append(args, f.Domain)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM plans WHERE %s ORDER BY created_at DESC LIMIT ?`, planColumns, strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Domain, &p.ActivityTitle, &p.ActivityCategory, &p.ActivitySummary, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		tasks, err := r.listPlanTasks(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].Tasks = tasks
	}
	return res, nil
}

func (r Repo) listPlanTasks(ctx context.Context, planID string) ([]domain.PlanTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,plan_id,title,description,category,priority,time_estimate,position,context FROM plan_tasks WHERE plan_id=? ORDER BY position ASC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PlanTask
	for rows.Next() {
		var t domain.PlanTask
		if err := rows.Scan(&t.ID, &t.PlanID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.TimeEstimate, &t.Position, &t.Context); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpsertServiceConfig(ctx context.Context, cfg *config.Config) error {
	return upsertServiceConfig(ctx, r.DB, nil, cfg)
}

func (r Repo) UpsertServiceConfigTx(ctx context.Context, tx *sql.Tx, cfg *config.Config) error {
	return upsertServiceConfig(ctx, nil, tx, cfg)
}

func upsertServiceConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, cfg *config.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	query := `INSERT INTO service_config(id,yaml,updated_at) VALUES (1,?,?) ON CONFLICT(id) DO UPDATE SET yaml=excluded.yaml, updated_at=excluded.updated_at`
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, string(raw), now)
	} else {
		_, err = db.ExecContext(ctx, query, string(raw), now)
	}
	return err
}

func (r Repo) GetServiceConfig(ctx context.Context) (*config.Config, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT yaml FROM service_config WHERE id=1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return config.FromYAML([]byte(raw))
}

// CountSessionsByStatus returns session counts keyed by status.
func (r Repo) CountSessionsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountPlans returns the total number of stored plans.
func (r Repo) CountPlans(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&n)
	return n, err
}

type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   string
}

func (r Repo) LatestEvents(ctx context.Context, limit int, f EventFilters) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, f)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, f EventFilters) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	return r.queryEvents(ctx, query, cursor, limit)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
