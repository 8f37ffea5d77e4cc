package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // register mysql as database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/ppiankov/legislens/internal/model"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationFiles embed.FS

// dialect holds the statements that differ between databases
type dialect struct {
	name       string // goose dialect
	driver     string // database/sql driver
	migrations string
	lookup     string
	upsert     string
}

var postgresDialect = dialect{
	name:       "postgres",
	driver:     "pgx",
	migrations: "migrations/postgres",
	lookup: `SELECT analysis FROM bill_analyses
WHERE bill_id = $1 AND analysis_level = $2 AND (expires_at IS NULL OR expires_at > $3)`,
	upsert: `INSERT INTO bill_analyses (bill_id, analysis_level, analysis, generated_at, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (bill_id, analysis_level) DO UPDATE SET
  analysis = EXCLUDED.analysis,
  generated_at = EXCLUDED.generated_at,
  expires_at = EXCLUDED.expires_at,
  updated_at = EXCLUDED.updated_at`,
}

var mysqlDialect = dialect{
	name:       "mysql",
	driver:     "mysql",
	migrations: "migrations/mysql",
	lookup: `SELECT analysis FROM bill_analyses
WHERE bill_id = ? AND analysis_level = ? AND (expires_at IS NULL OR expires_at > ?)`,
	upsert: `INSERT INTO bill_analyses (bill_id, analysis_level, analysis, generated_at, expires_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  analysis = VALUES(analysis),
  generated_at = VALUES(generated_at),
  expires_at = VALUES(expires_at),
  updated_at = VALUES(updated_at)`,
}

// SQLStore keeps one row per (bill_id, analysis_level)
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	ttl     time.Duration
	now     func() time.Time
}

// NewPostgresStore uses an open pgx-backed *sql.DB (e.g., Supabase)
func NewPostgresStore(db *sql.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, dialect: postgresDialect, ttl: ttl, now: time.Now}
}

// NewMySQLStore uses an open mysql *sql.DB
func NewMySQLStore(db *sql.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, dialect: mysqlDialect, ttl: ttl, now: time.Now}
}

// Connect opens and pings a database for the dialect ("postgres" or "mysql")
func Connect(ctx context.Context, dialectName, dsn string) (*sql.DB, error) {
	d, err := dialectFor(dialectName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s connection string is empty", d.name)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema for the store's dialect
func (s *SQLStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(s.dialect.name); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, s.dialect.migrations); err != nil {
		return fmt.Errorf("migrate %s: %w", s.dialect.name, err)
	}
	return nil
}

func (s *SQLStore) Lookup(ctx context.Context, billID string, level model.Level) (*model.CompositeAnalysis, bool, error) {
	billID = normalizeBillID(billID)
	if billID == "" {
		return nil, false, nil
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx, s.dialect.lookup, billID, string(level), s.now().UTC()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup analysis: %w", err)
	}

	var analysis model.CompositeAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, false, nil
	}
	return &analysis, true, nil
}

func (s *SQLStore) Store(ctx context.Context, billID string, level model.Level, analysis *model.CompositeAnalysis) error {
	billID = normalizeBillID(billID)
	if billID == "" {
		return ErrNoBillID
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	now := s.now().UTC()
	var expires sql.NullTime
	if s.ttl > 0 {
		expires = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}
	generated := analysis.GeneratedAt.UTC()
	if analysis.GeneratedAt.IsZero() {
		generated = now
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.upsert,
		billID, string(level), string(data), generated, expires, now,
	); err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func dialectFor(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "supabase":
		return postgresDialect, nil
	case "mysql":
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database dialect: %s", name)
	}
}
