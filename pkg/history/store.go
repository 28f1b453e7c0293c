package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"serverlist/pkg/log"
	"serverlist/pkg/models"

	_ "modernc.org/sqlite"
)

// recordTimeout bounds the write done for each observed probe.
const recordTimeout = 5 * time.Second

// Record is one stored probe outcome.
type Record struct {
	ID         int64             `json:"id"`
	Address    string            `json:"address"`
	Kind       models.StatusKind `json:"kind"`
	PingMs     int64             `json:"ping_ms"`
	Online     int               `json:"online"`
	Max        int               `json:"max"`
	MOTD       string            `json:"motd,omitempty"`
	Version    string            `json:"version,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Store keeps probe history in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := database.ExecContext(context.Background(), "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	store := &Store{db: database}
	if err := store.Initialize(); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

// Initialize creates the database schema.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(context.Background(), Schema); err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a settled status for the address.
func (s *Store) Record(ctx context.Context, address string, status models.Status) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrEmptyAddress
	}
	if !status.Settled() {
		return ErrUnsettledStatus
	}

	recordedAt := status.UpdatedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO probes (address, kind, ping_ms, online, max_players, motd, version, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		address, string(status.Kind), status.PingMs, status.Online, status.Max,
		status.MOTD, status.Version, status.Reason, recordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

// Recent returns the newest records for the address, newest first.
func (s *Store) Recent(ctx context.Context, address string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address, kind, ping_ms, online, max_players, motd, version, reason, recorded_at
		 FROM probes WHERE address = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		strings.TrimSpace(address), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			record     Record
			kind       string
			recordedAt int64
		)
		scanErr := rows.Scan(&record.ID, &record.Address, &kind, &record.PingMs, &record.Online, &record.Max,
			&record.MOTD, &record.Version, &record.Reason, &recordedAt)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, scanErr)
		}
		record.Kind = models.StatusKind(kind)
		record.RecordedAt = time.UnixMilli(recordedAt).UTC()
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return records, nil
}

// Prune deletes records older than the given time and reports how many
// were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM probes WHERE recorded_at < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return removed, nil
}

// ProbeFinished records the entry's new status. Failures are logged.
func (s *Store) ProbeFinished(entry models.ServerEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.Record(ctx, entry.Address, entry.Status); err != nil {
		log.Warn().
			Err(err).
			Str("id", entry.ID).
			Str("address", entry.Address).
			Msg("Failed to record probe history")
	}
}
