// Package journal records every screening decision in a local SQLite
// database. The journal is an audit trail and the input to caution
// escalation: repeated caution verdicts for the same identifier can be
// promoted to a rejection when configured.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"subscreen/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; mismatched databases must
// be cleared rather than migrated in place.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// release.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Record is one screening decision.
type Record struct {
	ID         int64
	RunID      string
	VideoID    string
	Bucket     string
	Confidence float64
	// Evidence is the aggregated video evidence serialized as JSON.
	Evidence   string
	DurationMS int64
	CreatedAt  time.Time
}

// Journal is the SQLite-backed decision log.
type Journal struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database under the log
// directory.
func Open(cfg *config.Config) (*Journal, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: dbPath}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append writes one decision. A missing run id is generated; the returned
// record carries the stored values.
func (j *Journal) Append(ctx context.Context, record Record) (Record, error) {
	if record.VideoID == "" {
		return Record{}, errors.New("video id cannot be empty")
	}
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO decisions (run_id, video_id, bucket, confidence, evidence, duration_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.VideoID,
		record.Bucket,
		record.Confidence,
		record.Evidence,
		record.DurationMS,
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert decision: %w", err)
	}
	record.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("last insert id: %w", err)
	}
	return record, nil
}

// ListRecent returns the newest decisions, most recent first.
func (j *Journal) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, video_id, bucket, confidence, evidence, duration_ms, created_at
         FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return records, nil
}

// History returns every decision recorded for one identifier, oldest first.
func (j *Journal) History(ctx context.Context, videoID string) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, video_id, bucket, confidence, evidence, duration_ms, created_at
         FROM decisions WHERE video_id = ? ORDER BY id ASC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query decision history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// CountBucket reports how many times videoID landed in the given bucket.
func (j *Journal) CountBucket(ctx context.Context, videoID, bucket string) (int, error) {
	var count int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM decisions WHERE video_id = ? AND bucket = ?`,
		videoID, bucket).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bucket: %w", err)
	}
	return count, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := j.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record    Record
		evidence  sql.NullString
		createdAt string
	)
	if err := row.Scan(&record.ID, &record.RunID, &record.VideoID, &record.Bucket,
		&record.Confidence, &evidence, &record.DurationMS, &createdAt); err != nil {
		return Record{}, fmt.Errorf("scan decision: %w", err)
	}
	record.Evidence = evidence.String
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	record.CreatedAt = parsed
	return record, nil
}
