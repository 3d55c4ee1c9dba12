package demoserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jmoralesv/enlace/internal/model"
)

var (
	ErrUserExists       = errors.New("username already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrLinkNotFound     = errors.New("link not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// storedUser is an account row. Passwords are kept in plain text: this is a
// development fixture seeded with throwaway credentials.
type storedUser struct {
	ID        int64
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Store persists users, links and analyses in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	nombre TEXT NOT NULL DEFAULT '',
	apellido TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'ROLE_USER'
);
CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	aplicacion TEXT NOT NULL DEFAULT 'web',
	mensaje TEXT NOT NULL DEFAULT '',
	usuario_id INTEGER NOT NULL REFERENCES users(id),
	fecha_creacion TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS analyses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	enlace_id INTEGER,
	usuario_id INTEGER,
	is_phishing INTEGER NOT NULL,
	aplicacion TEXT NOT NULL DEFAULT 'web',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// NewStore opens (or creates) the database at path and applies the schema.
// Use ":memory:" in tests.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under test parallelism.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ─── Users ─────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u storedUser) (int64, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE username = ?`, u.Username).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrUserExists
	}

	role := u.Role
	if role == "" {
		role = "ROLE_USER"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, nombre, apellido, role) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Password, u.FirstName, u.LastName, role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SeedUser inserts a throwaway account, for demos and tests.
func (s *Store) SeedUser(ctx context.Context, username, password, role string) (int64, error) {
	return s.CreateUser(ctx, storedUser{Username: username, Password: password, Role: role})
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*storedUser, error) {
	var u storedUser
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, nombre, apellido, role FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.Password, &u.FirstName, &u.LastName, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n)
	return n, err
}

// ─── Links ─────────────────────────────────────────────────────────────

func (s *Store) CreateLink(ctx context.Context, link model.Link) (*model.Link, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO links (url, aplicacion, mensaje, usuario_id, fecha_creacion) VALUES (?, ?, ?, ?, ?)`,
		link.URL, link.Application, link.Message, link.UserID, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	link.ID = id
	link.CreatedAt = now
	return &link, nil
}

func (s *Store) LinkByID(ctx context.Context, id int64) (*model.Link, error) {
	var link model.Link
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, aplicacion, mensaje, usuario_id, fecha_creacion FROM links WHERE id = ?`,
		id).Scan(&link.ID, &link.URL, &link.Application, &link.Message, &link.UserID, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *Store) LinksByUser(ctx context.Context, userID int64) ([]model.Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, aplicacion, mensaje, usuario_id, fecha_creacion
		 FROM links WHERE usuario_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		var link model.Link
		if err := rows.Scan(&link.ID, &link.URL, &link.Application, &link.Message,
			&link.UserID, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *Store) DeleteLink(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// ─── Analyses ──────────────────────────────────────────────────────────

// CreateAnalysis stores the full record as JSON next to the columns queries
// filter on, and stamps the generated id back into the payload.
func (s *Store) CreateAnalysis(ctx context.Context, a *model.Analysis, application string) (*model.Analysis, error) {
	if application == "" {
		application = "web"
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (enlace_id, usuario_id, is_phishing, aplicacion, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.LinkID, a.UserID, boolInt(a.IsPhishing || a.Verdict == model.VerdictPhishing),
		application, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	a.ID = id
	payload, err = json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET payload = ? WHERE id = ?`, string(payload), id); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) AnalysisByID(ctx context.Context, id int64) (*model.Analysis, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(payload)
}

func (s *Store) AnalysesByUser(ctx context.Context, userID int64) ([]model.Analysis, error) {
	return s.queryAnalyses(ctx,
		`SELECT payload FROM analyses WHERE usuario_id = ? ORDER BY id DESC`, userID)
}

func (s *Store) AnalysesByLink(ctx context.Context, linkID int64) ([]model.Analysis, error) {
	return s.queryAnalyses(ctx,
		`SELECT payload FROM analyses WHERE enlace_id = ? ORDER BY id DESC`, linkID)
}

func (s *Store) DeleteAnalysis(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (s *Store) queryAnalyses(ctx context.Context, query string, args ...any) ([]model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := []model.Analysis{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		a, err := decodeAnalysis(payload)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

// ─── Statistics ────────────────────────────────────────────────────────

// Statistics computes the system-wide aggregates of GET /estadisticas.
func (s *Store) Statistics(ctx context.Context) (*model.Statistics, error) {
	stats := &model.Statistics{}

	var total, phishing, week, prevWeek, month, prevMonth int
	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7).Format(time.RFC3339)
	twoWeeksAgo := now.AddDate(0, 0, -14).Format(time.RFC3339)
	monthAgo := now.AddDate(0, -1, 0).Format(time.RFC3339)
	twoMonthsAgo := now.AddDate(0, -2, 0).Format(time.RFC3339)

	row := s.db.QueryRowContext(ctx, `SELECT
		COUNT(1),
		COALESCE(SUM(is_phishing), 0),
		COALESCE(SUM(created_at >= ?), 0),
		COALESCE(SUM(created_at >= ? AND created_at < ?), 0),
		COALESCE(SUM(created_at >= ?), 0),
		COALESCE(SUM(created_at >= ? AND created_at < ?), 0)
		FROM analyses`,
		weekAgo, twoWeeksAgo, weekAgo, monthAgo, twoMonthsAgo, monthAgo)
	if err := row.Scan(&total, &phishing, &week, &prevWeek, &month, &prevMonth); err != nil {
		return nil, err
	}

	stats.TotalAnalyses = total
	stats.URLsAnalyzedThisWeek = week
	stats.WeekChangePercent = changePercent(week, prevWeek)
	stats.MonthChangePercent = changePercent(month, prevMonth)

	stats.GlobalDistribution.TotalPhishing = phishing
	stats.GlobalDistribution.TotalLegitimate = total - phishing
	if total > 0 {
		stats.GlobalDistribution.PhishingPercent = float64(phishing) / float64(total) * 100
		stats.GlobalDistribution.LegitimatePercent = 100 - stats.GlobalDistribution.PhishingPercent
	}

	users, err := s.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	stats.RegisteredUsers = users

	rows, err := s.db.QueryContext(ctx, `SELECT aplicacion, COUNT(1)
		FROM analyses WHERE is_phishing = 1
		GROUP BY aplicacion ORDER BY COUNT(1) DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.TopPhishingApplications = []model.ApplicationCount{}
	for rows.Next() {
		var ac model.ApplicationCount
		if err := rows.Scan(&ac.Application, &ac.Count); err != nil {
			return nil, err
		}
		if phishing > 0 {
			ac.Percent = float64(ac.Count) / float64(phishing) * 100
		}
		stats.TopPhishingApplications = append(stats.TopPhishingApplications, ac)
	}
	return stats, rows.Err()
}

func decodeAnalysis(payload string) (*model.Analysis, error) {
	var a model.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func changePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
