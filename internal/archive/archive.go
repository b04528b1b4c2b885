// Package archive mirrors every appended log entry into sqlite so that
// closed-room history and departed participants' whisper threads remain
// readable for the rest of the session. The default DSN is :memory:; the
// archive is session-scoped state, not durable storage.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"breakout/internal/state"
)

// MemoryDSN keeps the archive entirely in process memory.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id          TEXT PRIMARY KEY,
	log         TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	from_user   TEXT NOT NULL,
	to_user     TEXT,
	scope       TEXT NOT NULL,
	room_id     TEXT,
	content     TEXT NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_transcripts_log ON transcripts(log, seq);
`

// Store is the sqlite-backed transcript mirror. All writes funnel through
// a single goroutine; sqlite does not tolerate write contention.
type Store struct {
	db       *sql.DB
	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
}

type writeOp struct {
	fn     func(*sql.DB) error
	result chan error
}

// Open opens (or creates) the archive at the given DSN. Pass MemoryDSN
// for a session-transient archive.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// One connection only: an in-memory DSN opens a fresh empty database
	// per connection, and the single-writer discipline wants one anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	s := &Store{
		db:       db,
		writeCh:  make(chan writeOp, 100),
		shutdown: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case op := <-s.writeCh:
			op.result <- op.fn(s.db)
		case <-s.shutdown:
			// Drain anything already queued before exiting.
			for {
				select {
				case op := <-s.writeCh:
					op.result <- op.fn(s.db)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) submit(ctx context.Context, fn func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrArchiveClosed
	}
	s.mu.RUnlock()

	op := writeOp{fn: fn, result: make(chan error, 1)}
	select {
	case s.writeCh <- op:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Append records one log entry. Failures are the caller's to log; an
// archive problem must never disturb the session itself.
func (s *Store) Append(ctx context.Context, logKey string, m state.Message) error {
	return s.submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT OR IGNORE INTO transcripts
			 (id, log, seq, from_user, to_user, scope, room_id, content)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, logKey, m.Sequence, m.From, m.To, string(m.Scope), m.RoomID, m.Content,
		)
		if err != nil {
			return fmt.Errorf("append transcript: %w", err)
		}
		return nil
	})
}

// History returns every archived entry for one log key in sequence order.
func (s *Store) History(ctx context.Context, logKey string) ([]state.Message, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrArchiveClosed
	}
	s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, from_user, to_user, scope, room_id, content
		 FROM transcripts WHERE log = ? ORDER BY seq`, logKey)
	if err != nil {
		return nil, fmt.Errorf("query transcript %s: %w", logKey, err)
	}
	defer rows.Close()

	var out []state.Message
	for rows.Next() {
		var m state.Message
		var scope string
		if err := rows.Scan(&m.ID, &m.Sequence, &m.From, &m.To, &scope, &m.RoomID, &m.Content); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		m.Scope = state.Scope(scope)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", logKey, err)
	}
	return out, nil
}

// Close flushes queued writes and releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		log.Printf("closing archive: %v", err)
		return err
	}
	return nil
}
