// Package catalog tracks generated shorts in a SQLite-backed registry under
// the shorts output directory. Filenames are reserved before assembly starts;
// the table's UNIQUE constraint is the arbiter that keeps two concurrent jobs
// from ever sharing an output path.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound reports a lookup for an id or filename the catalog does not
// hold (or holds only as an uncommitted reservation).
var ErrNotFound = errors.New("short not found")

// Entry statuses. A reservation stays pending until assembly commits it.
const (
	statusPending = "pending"
	statusReady   = "ready"
)

// Store is the catalog persistence layer. Safe for concurrent use.
type Store struct {
	db        *sql.DB
	shortsDir string
}

// Open connects to (or creates) the catalog database in the shorts
// directory and applies the schema.
func Open(shortsDir string) (*Store, error) {
	if err := os.MkdirAll(shortsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create shorts dir: %w", err)
	}

	// busy_timeout and foreign_keys are per-connection settings, so they
	// ride the DSN and apply to every connection the pool opens.
	dsn := "file:" + filepath.Join(shortsDir, "catalog.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, shortsDir: shortsDir}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dir returns the shorts output directory the store manages.
func (s *Store) Dir() string { return s.shortsDir }

// Path returns the absolute output path for a cataloged filename.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.shortsDir, filename)
}

// Reservation is a claimed output slot: the filename is unique in the
// catalog and no other job can take it while the reservation lives.
type Reservation struct {
	ID       string
	Title    string
	Filename string
	Path     string
}

// Reserve allocates a unique `{sanitized_title}_{uuid8}.mp4` filename and
// inserts a pending row for it. The uuid suffix makes collisions unlikely;
// the UNIQUE constraint makes them impossible, so insertion retries with a
// fresh suffix instead of failing.
func (s *Store) Reserve(ctx context.Context, title string) (Reservation, error) {
	base := sanitizeFilename(title)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	for attempt := 0; attempt < 3; attempt++ {
		id := uuid.NewString()
		filename := fmt.Sprintf("%s_%s.mp4", base, id[:8])

		_, err := s.execRetry(ctx,
			`INSERT INTO shorts (id, title, filename, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, title, filename, statusPending, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return Reservation{}, fmt.Errorf("reserve filename: %w", err)
		}
		return Reservation{
			ID:       id,
			Title:    title,
			Filename: filename,
			Path:     s.Path(filename),
		}, nil
	}
	return Reservation{}, errors.New("reserve filename: exhausted unique name attempts")
}

// Commit promotes a reservation to a ready catalog entry once assembly has
// produced its file.
func (s *Store) Commit(ctx context.Context, res Reservation, text string, start, end, duration float64, rangeCount int) (types.GeneratedShort, error) {
	now := time.Now().UTC()
	result, err := s.execRetry(ctx,
		`UPDATE shorts
		 SET status = ?, text = ?, start_time = ?, end_time = ?, duration = ?,
		     source_range_count = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		statusReady, text, start, end, duration,
		rangeCount, now.Format(time.RFC3339Nano),
		res.ID, statusPending,
	)
	if err != nil {
		return types.GeneratedShort{}, fmt.Errorf("commit short: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return types.GeneratedShort{}, fmt.Errorf("commit short: rows affected: %w", err)
	}
	if n == 0 {
		return types.GeneratedShort{}, fmt.Errorf("commit short %s: %w", res.ID, ErrNotFound)
	}

	return types.GeneratedShort{
		ID:               res.ID,
		Title:            res.Title,
		Text:             text,
		StartTime:        start,
		EndTime:          end,
		Duration:         duration,
		FilePath:         res.Path,
		Filename:         res.Filename,
		SourceRangeCount: rangeCount,
		CreatedAt:        now,
	}, nil
}

// Release drops a failed reservation and any partial file written under its
// name.
func (s *Store) Release(ctx context.Context, res Reservation) error {
	_, err := s.execRetry(ctx,
		`DELETE FROM shorts WHERE id = ? AND status = ?`, res.ID, statusPending)
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	if rmErr := os.Remove(res.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return fmt.Errorf("remove partial file: %w", rmErr)
	}
	return nil
}

// Get returns a ready short by filename.
func (s *Store) Get(ctx context.Context, filename string) (types.GeneratedShort, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE filename = ? AND status = ?`, filename, statusReady)
	return s.scan(row)
}

// GetByID returns a ready short by id.
func (s *Store) GetByID(ctx context.Context, id string) (types.GeneratedShort, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE id = ? AND status = ?`, id, statusReady)
	return s.scan(row)
}

// List returns all ready shorts, newest first.
func (s *Store) List(ctx context.Context) ([]types.GeneratedShort, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE status = ? ORDER BY created_at DESC, id`, statusReady)
	if err != nil {
		return nil, fmt.Errorf("list shorts: %w", err)
	}
	defer rows.Close()

	var out []types.GeneratedShort
	for rows.Next() {
		short, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, short)
	}
	return out, rows.Err()
}

// Delete removes a short's row and its file.
func (s *Store) Delete(ctx context.Context, filename string) error {
	result, err := s.execRetry(ctx,
		`DELETE FROM shorts WHERE filename = ? AND status = ?`, filename, statusReady)
	if err != nil {
		return fmt.Errorf("delete short: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete short: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete short %q: %w", filename, ErrNotFound)
	}
	if rmErr := os.Remove(s.Path(filename)); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", rmErr)
	}
	return nil
}

// Sweep evicts ready entries older than maxAge and pending reservations that
// were never committed or released (a crashed job's leftovers). It returns
// the number of evicted entries.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(ctx,
		`SELECT filename FROM shorts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep query: %w", err)
	}
	var filenames []string
	for rows.Next() {
		var fn string
		if err := rows.Scan(&fn); err != nil {
			rows.Close()
			return 0, fmt.Errorf("sweep scan: %w", err)
		}
		filenames = append(filenames, fn)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sweep rows: %w", err)
	}

	evicted := 0
	for _, fn := range filenames {
		if _, err := s.execRetry(ctx,
			`DELETE FROM shorts WHERE filename = ?`, fn); err != nil {
			return evicted, fmt.Errorf("sweep delete %q: %w", fn, err)
		}
		if rmErr := os.Remove(s.Path(fn)); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return evicted, fmt.Errorf("sweep remove %q: %w", fn, rmErr)
		}
		evicted++
	}
	return evicted, nil
}

const selectColumns = `SELECT id, title, text, filename, start_time, end_time,
	duration, source_range_count, created_at FROM shorts`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row rowScanner) (types.GeneratedShort, error) {
	var (
		short     types.GeneratedShort
		createdAt string
	)
	err := row.Scan(
		&short.ID, &short.Title, &short.Text, &short.Filename,
		&short.StartTime, &short.EndTime, &short.Duration,
		&short.SourceRangeCount, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.GeneratedShort{}, ErrNotFound
	}
	if err != nil {
		return types.GeneratedShort{}, fmt.Errorf("scan short: %w", err)
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		short.CreatedAt = ts
	}
	short.FilePath = s.Path(short.Filename)
	return short, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const (
	sqliteBusyCode   = 5
	busyAttempts     = 5
	busyInitialDelay = 10 * time.Millisecond
	busyMaxDelay     = 200 * time.Millisecond
)

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// execRetry runs a write statement, backing off and retrying while another
// connection holds the write lock.
func (s *Store) execRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	delay := busyInitialDelay
	for attempt := 0; ; attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil || !isBusy(err) || attempt == busyAttempts-1 {
			return res, err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if next := delay * 2; next <= busyMaxDelay {
			delay = next
		}
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\-]+`)

// sanitizeFilename turns a title into a safe filename stem.
func sanitizeFilename(title string) string {
	s := strings.TrimSpace(title)
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "_")
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "short"
	}
	return s
}
