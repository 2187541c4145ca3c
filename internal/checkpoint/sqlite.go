package checkpoint

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	closed  bool
	writeMu sync.Mutex
}

// NewSQLiteStore creates a new SQLite checkpoint store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and a generous busy timeout keep concurrent worker writes from
	// tripping over each other.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(60000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS buckets (
		project TEXT NOT NULL,
		bucket TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		last_error TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (project, bucket)
	);

	CREATE INDEX IF NOT EXISTS idx_buckets_status ON buckets(status);
	`

	_, err := s.db.Exec(query)
	return err
}

// Get retrieves a bucket record, or nil when none exists.
func (s *SQLiteStore) Get(project, bucket string) (*Record, error) {
	if s.closed {
		return nil, fmt.Errorf("checkpoint store is closed")
	}

	var result *Record
	err := s.retryOnBusy(func() error {
		var err error
		result, err = s.getInternal(project, bucket)
		return err
	})
	return result, err
}

func (s *SQLiteStore) getInternal(project, bucket string) (*Record, error) {
	query := `
	SELECT project, bucket, status, attempts, last_error, updated_at
	FROM buckets WHERE project = ? AND bucket = ?
	`

	row := s.db.QueryRow(query, project, bucket)

	var record Record
	var lastError sql.NullString

	err := row.Scan(
		&record.Project,
		&record.Bucket,
		&record.Status,
		&record.Attempts,
		&lastError,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastError.Valid {
		record.LastError = lastError.String
	}

	return &record, nil
}

// Save upserts a bucket record.
func (s *SQLiteStore) Save(record *Record) error {
	if s.closed {
		return fmt.Errorf("checkpoint store is closed")
	}

	// Serialize writes to avoid SQLITE_BUSY from multiple concurrent workers.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		return s.saveWithTransaction(record)
	})
}

func (s *SQLiteStore) saveWithTransaction(record *Record) error {
	record.UpdatedAt = time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO buckets (project, bucket, status, attempts, last_error, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(project, bucket) DO UPDATE SET
		status = excluded.status,
		attempts = excluded.attempts,
		last_error = excluded.last_error,
		updated_at = excluded.updated_at
	`

	_, err = tx.Exec(query,
		record.Project,
		record.Bucket,
		record.Status,
		record.Attempts,
		record.LastError,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to execute upsert: %w", err)
	}

	return tx.Commit()
}

// retryOnBusy retries the operation if SQLite is busy.
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !isSQLiteBusyError(err) || attempt == maxRetries-1 {
			return err
		}

		delay := baseDelay * time.Duration(1<<uint(attempt))
		time.Sleep(delay + time.Duration(attempt*10)*time.Millisecond)
	}

	return err
}

func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// ListFailed returns all buckets whose last run failed.
func (s *SQLiteStore) ListFailed() ([]*Record, error) {
	query := `
	SELECT project, bucket, status, attempts, last_error, updated_at
	FROM buckets WHERE status = ?
	ORDER BY updated_at ASC
	`

	rows, err := s.db.Query(query, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		var lastError sql.NullString

		err := rows.Scan(
			&record.Project,
			&record.Bucket,
			&record.Status,
			&record.Attempts,
			&lastError,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if lastError.Valid {
			record.LastError = lastError.String
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.closed = true
	return s.db.Close()
}
