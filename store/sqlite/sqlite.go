/*
Package sqlite provides a SQLite-backed blob store and holiday calendar.

PURPOSE:
  Persists company documents as opaque blobs (the XLSX bytes produced by
  document.XLSX), keeps every backup copy the integrity guard requests, and
  stores the holiday calendars used for business-day counting.

INTERFACES IMPLEMENTED:
  document.BlobStore: Get / Put / Copy of document blobs

  Holiday lookups go through Calendar, which loads a date range into a
  payroll.StaticCalendar and reports query failures instead of guessing.

KEY TABLES:
  documents:        Current bytes of each document (overwrite on Put)
  document_backups: Immutable copies, one row per Copy
  holidays:         Company-specific and global ('' company) holidays

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The store does not serialize
  read-modify-write cycles of its callers: two writers of the same document
  still race, last Put wins.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  storage := document.NewBlobStorage(store)

SEE ALSO:
  - document/storage.go: BlobStore interface
  - document/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/document"
	"github.com/warp/payroll-engine/payroll"
	"go.uber.org/zap"
)

// Store implements document.BlobStore and serves holiday calendars.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
	now    func() time.Time
}

var _ document.BlobStore = (*Store)(nil)

// ErrHolidayNotFound is returned when deleting an unknown holiday.
var ErrHolidayNotFound = errors.New("holiday not found")

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &Store{db: db, logger: logger.Named("sqlite"), now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Current document bytes
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Backup copies (never updated)
	CREATE TABLE IF NOT EXISTS document_backups (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_document_backups_document
		ON document_backups(document_id, created_at);

	-- Holidays (company-specific and global)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_company_date
		ON holidays(company_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(company_id, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BLOB STORE
// =============================================================================

// Get returns the current bytes of a document, or of a backup when id names one.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE id = ?
		UNION ALL
		SELECT data FROM document_backups WHERE id = ?
		LIMIT 1
	`, id, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", document.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return data, nil
}

// Put overwrites the document.
func (s *Store) Put(ctx context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, id, data, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put document %s: %w", id, err)
	}
	return nil
}

// Copy stores the current bytes of srcID as backup dstID.
func (s *Store) Copy(ctx context.Context, srcID, dstID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO document_backups (id, document_id, data, created_at)
		SELECT ?, id, data, ? FROM documents WHERE id = ?
	`, dstID, s.now().UTC().Format(time.RFC3339Nano), srcID)
	if err != nil {
		return fmt.Errorf("copy document %s: %w", srcID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", document.ErrDocumentNotFound, srcID)
	}
	s.logger.Debug("backup stored", zap.String("document", srcID), zap.String("backup", dstID))
	return nil
}

// Backup describes one stored backup copy.
type Backup struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Size       int       `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListBackups returns the backups of a document, newest first.
func (s *Store) ListBackups(ctx context.Context, documentID string) ([]Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, length(data), created_at
		FROM document_backups
		WHERE document_id = ?
		ORDER BY created_at DESC, id DESC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []Backup
	for rows.Next() {
		var b Backup
		var createdAt string
		if err := rows.Scan(&b.ID, &b.DocumentID, &b.Size, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

// SaveHoliday saves a holiday to the database. A blank ID gets a fresh one;
// saving the same company, date and name again keeps the stored ID.
func (s *Store) SaveHoliday(ctx context.Context, h payroll.Holiday) (payroll.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	query := `
		INSERT INTO holidays (id, company_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		h.ID,
		h.CompanyID,
		h.Date.Format(time.DateOnly),
		h.Name,
		h.Recurring,
		s.now().UTC().Format(time.RFC3339),
	).Scan(&h.ID)
	if err != nil {
		return h, fmt.Errorf("save holiday %s: %w", h.Name, err)
	}
	return h, nil
}

// SeedHolidays saves every holiday, keeping existing rows.
func (s *Store) SeedHolidays(ctx context.Context, holidays []payroll.Holiday) error {
	for _, h := range holidays {
		if _, err := s.SaveHoliday(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// DeleteHoliday deletes one of the company's own holidays by ID. Global
// holidays and other companies' holidays are reported as not found.
func (s *Store) DeleteHoliday(ctx context.Context, companyID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ? AND company_id = ?", id, companyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrHolidayNotFound, id)
	}
	return nil
}

// GetHolidays returns all holidays for a company in a given year.
// Includes both company-specific and global holidays; recurring ones are
// dated in the requested year.
func (s *Store) GetHolidays(ctx context.Context, companyID string, year int) ([]payroll.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (recurring = TRUE OR strftime('%Y', date) = ?)
		ORDER BY strftime('%m-%d', date) ASC, name ASC
	`

	holidays, err := s.queryHolidays(ctx, query, companyID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, err
	}
	for i, h := range holidays {
		if h.Recurring {
			holidays[i].Date = time.Date(year, h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return holidays, nil
}

// GetAllHolidays returns all holidays (for admin UI).
func (s *Store) GetAllHolidays(ctx context.Context, companyID string) ([]payroll.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE company_id = ? OR company_id = ''
		ORDER BY date ASC
	`
	return s.queryHolidays(ctx, query, companyID)
}

// Calendar loads the company's holidays in [start, end], global ones
// included, into a static calendar. Recurring holidays match in any year.
// A query failure is ErrStorageUnavailable.
func (s *Store) Calendar(ctx context.Context, companyID string, start, end time.Time) (*payroll.StaticCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (recurring = TRUE OR date BETWEEN ? AND ?)
	`

	holidays, err := s.queryHolidays(ctx, query, companyID, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err != nil {
		s.logger.Error("holiday lookup failed", zap.String("company", companyID), zap.Error(err))
		return nil, fmt.Errorf("load holidays for %q: %w: %w", companyID, document.ErrStorageUnavailable, err)
	}
	return payroll.NewStaticCalendar(holidays...), nil
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]payroll.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []payroll.Holiday
	for rows.Next() {
		var h payroll.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &h.CompanyID, &dateStr, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: bad date %q: %w", h.ID, dateStr, err)
		}
		h.Date = t
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
