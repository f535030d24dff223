package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"

	"github.com/xiaot623/loancourt/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cases (
			case_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			applicant TEXT,
			retrieval TEXT,
			debate TEXT,
			decision TEXT,
			verdict TEXT,
			active_run_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS documents (
			document_id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			content_type TEXT NOT NULL,
			status TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (case_id) REFERENCES cases(case_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_case ON documents(case_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			event_id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			metadata TEXT,
			FOREIGN KEY (case_id) REFERENCES cases(case_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_case ON audit_events(case_id, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateCase creates a new case.
func (s *SQLiteStore) CreateCase(ctx context.Context, c *domain.Case) error {
	var applicant sql.NullString
	if len(c.Applicant) > 0 {
		applicant = sql.NullString{String: string(c.Applicant), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (case_id, status, created_at, updated_at, applicant) VALUES (?, ?, ?, ?, ?)`,
		c.CaseID, c.Status, c.CreatedAt, c.UpdatedAt, applicant)
	return err
}

// GetCase retrieves a case by ID.
func (s *SQLiteStore) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT case_id, status, created_at, updated_at, applicant, retrieval, debate, decision, active_run_id
		 FROM cases WHERE case_id = ?`, caseID)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (*domain.Case, error) {
	var c domain.Case
	var applicant, retrieval, debate, decision, activeRunID sql.NullString
	if err := row.Scan(&c.CaseID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		&applicant, &retrieval, &debate, &decision, &activeRunID); err != nil {
		return nil, err
	}
	if applicant.Valid {
		c.Applicant = json.RawMessage(applicant.String)
	}
	if retrieval.Valid {
		c.Retrieval = json.RawMessage(retrieval.String)
	}
	if debate.Valid {
		c.Debate = json.RawMessage(debate.String)
	}
	if decision.Valid {
		c.Decision = json.RawMessage(decision.String)
	}
	if activeRunID.Valid {
		c.ActiveRunID = activeRunID.String
	}
	return &c, nil
}

// ListCases lists cases filtered by free-text query and status, newest
// first. The query matches the case id and the applicant's loan purpose.
func (s *SQLiteStore) ListCases(ctx context.Context, query string, status domain.CaseStatus, limit, offset int) ([]domain.Case, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}

	if query != "" {
		where += ` AND (case_id LIKE ? OR LOWER(COALESCE(json_extract(applicant, '$.loan_purpose'), '')) LIKE ?)`
		pattern := "%" + query + "%"
		args = append(args, pattern, "%"+strings.ToLower(query)+"%")
	}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT case_id, status, created_at, updated_at, applicant, retrieval, debate, decision, active_run_id
		 FROM cases `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, *c)
	}
	return cases, total, rows.Err()
}

// UpdateApplicant replaces the applicant payload and updates the status.
func (s *SQLiteStore) UpdateApplicant(ctx context.Context, caseID string, applicant json.RawMessage, status domain.CaseStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET applicant = ?, status = ?, updated_at = ? WHERE case_id = ?`,
		string(applicant), status, time.Now().UTC(), caseID)
	if err != nil {
		return err
	}
	return requireRow(res, caseID)
}

// SetActiveRun attaches (or clears) the case's active run reference.
func (s *SQLiteStore) SetActiveRun(ctx context.Context, caseID, runID string, status domain.CaseStatus) error {
	var run sql.NullString
	if runID != "" {
		run = sql.NullString{String: runID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET active_run_id = ?, status = ?, updated_at = ? WHERE case_id = ?`,
		run, status, time.Now().UTC(), caseID)
	if err != nil {
		return err
	}
	return requireRow(res, caseID)
}

// SetCaseOutcome stores the durable copies of a finished run's outputs on
// the case row. The verdict keyword is denormalized into its own column
// for dashboard aggregates.
func (s *SQLiteStore) SetCaseOutcome(ctx context.Context, caseID string, status domain.CaseStatus, retrieval, debate, decision json.RawMessage) error {
	verdict := gjson.GetBytes(decision, "verdict").String()
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET status = ?, retrieval = ?, debate = ?, decision = ?, verdict = ?, updated_at = ? WHERE case_id = ?`,
		status, nullable(retrieval), nullable(debate), nullable(decision), verdict, time.Now().UTC(), caseID)
	if err != nil {
		return err
	}
	return requireRow(res, caseID)
}

// CreateDocument creates a new document record.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (document_id, case_id, filename, content_type, status, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.DocumentID, doc.CaseID, doc.Filename, doc.ContentType, doc.Status, doc.Size, doc.CreatedAt)
	return err
}

// ListDocuments lists a case's documents in upload order.
func (s *SQLiteStore) ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, case_id, filename, content_type, status, size, created_at
		 FROM documents WHERE case_id = ? ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.DocumentID, &d.CaseID, &d.Filename, &d.ContentType, &d.Status, &d.Size, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CreateAuditEvent appends an audit event.
func (s *SQLiteStore) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	metadata := ""
	if event.Metadata != nil {
		metadata = string(event.Metadata)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (event_id, case_id, event_type, timestamp, metadata) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.CaseID, event.EventType, event.Timestamp, metadata)
	return err
}

// ListAuditEvents lists a case's audit trail in chronological order.
func (s *SQLiteStore) ListAuditEvents(ctx context.Context, caseID string) ([]domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, case_id, event_type, timestamp, metadata
		 FROM audit_events WHERE case_id = ? ORDER BY timestamp ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var metadata sql.NullString
		if err := rows.Scan(&e.EventID, &e.CaseID, &e.EventType, &e.Timestamp, &metadata); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			e.Metadata = json.RawMessage(metadata.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CaseStats aggregates dashboard counts in one scan.
func (s *SQLiteStore) CaseStats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN verdict = 'approve' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = 'reject' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = 'manual_review' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0)
		FROM cases`).Scan(
		&stats.TotalCases, &stats.Approvals, &stats.Rejects,
		&stats.ManualReviews, &stats.DraftCases, &stats.RunningCases)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return stats, nil
}

func nullable(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func requireRow(res sql.Result, caseID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("case %s not found", caseID)
	}
	return nil
}
