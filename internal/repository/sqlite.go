package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/safetrek/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// every connection to ":memory:" is its own database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			session_id TEXT NOT NULL,
			alert_id TEXT NOT NULL,
			tourist_id TEXT NOT NULL,
			team_id TEXT,
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_tourist_id ON incidents(tourist_id);
		CREATE INDEX IF NOT EXISTS idx_incidents_session_id ON incidents(session_id);
		CREATE INDEX IF NOT EXISTS idx_incidents_created_at ON incidents(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Add(ctx context.Context, r *models.IncidentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (id, kind, session_id, alert_id, tourist_id, team_id, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.SessionID, r.AlertID, r.TouristID, r.TeamID, r.Message, r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting incident %s: %w", r.ID, err)
	}
	return nil
}

// GetByID returns nil, nil when no incident has the id.
func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.IncidentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, session_id, alert_id, tourist_id, team_id, message, created_at
		FROM incidents WHERE id = ?`, id)

	r, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading incident %s: %w", id, err)
	}
	return r, nil
}

// ListIncidents returns matching incidents, newest first.
func (s *SQLiteDB) ListIncidents(ctx context.Context, opts Filter) ([]models.IncidentRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC())
	}
	if opts.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, string(*opts.Kind))
	}
	if opts.TouristID != "" {
		where = append(where, "tourist_id = ?")
		args = append(args, opts.TouristID)
	}
	if opts.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, opts.SessionID)
	}

	query := `SELECT id, kind, session_id, alert_id, tourist_id, team_id, message, created_at FROM incidents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying incidents: %w", err)
	}
	defer rows.Close()

	var out []models.IncidentRecord
	for rows.Next() {
		r, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning incident: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(sc scanner) (*models.IncidentRecord, error) {
	var (
		r         models.IncidentRecord
		kind      string
		teamID    sql.NullString
		createdAt time.Time
	)
	if err := sc.Scan(&r.ID, &kind, &r.SessionID, &r.AlertID, &r.TouristID, &teamID, &r.Message, &createdAt); err != nil {
		return nil, err
	}
	r.Kind = models.IncidentKind(kind)
	r.TeamID = teamID.String
	r.CreatedAt = createdAt
	return &r, nil
}
