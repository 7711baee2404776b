// Package sqlite persists recorded games in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hersh/tetriscore/internal/replay"
	"github.com/hersh/tetriscore/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ErrNotFound is returned for replay ids that do not exist.
var ErrNotFound = errors.New("replay not found")

// ErrBusy is returned when the database stays locked past the busy timeout.
var ErrBusy = errors.New("replay store busy")

// Record is the stored metadata of one replay.
type Record struct {
	ID        int64
	Player    string
	Summary   replay.Summary
	CreatedAt time.Time
}

// Store persists replays in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite replay store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveReplay stores a log with its summary and returns the new id.
func (s *Store) SaveReplay(ctx context.Context, player string, log replay.Log, sum replay.Summary) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	data, err := log.Marshal()
	if err != nil {
		return 0, fmt.Errorf("encode replay: %w", err)
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO replays (
		   player, engine, seed, score, lines, level, pieces,
		   duration_ms, top_out, log, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(player),
		sum.Engine,
		sum.Seed,
		sum.Score,
		sum.Lines,
		sum.Level,
		sum.Pieces,
		sum.Duration.Milliseconds(),
		sum.TopOut,
		data,
		toMillis(s.now()),
	)
	if err != nil {
		return 0, classify("save replay", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save replay: %w", err)
	}
	return id, nil
}

// GetReplay returns the record and log stored under id.
func (s *Store) GetReplay(ctx context.Context, id int64) (Record, replay.Log, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, replay.Log{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Record{}, replay.Log{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+recordColumns+`, log FROM replays WHERE id = ?`, id)
	var data []byte
	rec, err := scanRecord(row, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, replay.Log{}, ErrNotFound
		}
		return Record{}, replay.Log{}, classify("get replay", err)
	}
	log, err := replay.Unmarshal(data)
	if err != nil {
		return Record{}, replay.Log{}, fmt.Errorf("get replay %d: %w", id, err)
	}
	return rec, log, nil
}

// ListReplays returns up to limit records, best score first.
func (s *Store) ListReplays(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM replays ORDER BY score DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, classify("list replays", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list replays: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list replays: %w", err)
	}
	return records, nil
}

const recordColumns = `id, player, engine, seed, score, lines, level, pieces, duration_ms, top_out, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, extra ...any) (Record, error) {
	var (
		rec        Record
		durationMS int64
		createdAt  int64
	)
	dest := []any{
		&rec.ID,
		&rec.Player,
		&rec.Summary.Engine,
		&rec.Summary.Seed,
		&rec.Summary.Score,
		&rec.Summary.Lines,
		&rec.Summary.Level,
		&rec.Summary.Pieces,
		&durationMS,
		&rec.Summary.TopOut,
		&createdAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Record{}, err
	}
	rec.Summary.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

// classify maps lock contention to ErrBusy and wraps everything else.
func classify(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w", op, ErrBusy)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
