package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT,
	created_at REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(session_id),
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT,
	timestamp  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session
	ON messages(session_id, timestamp, id);
`

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at cfg.Path.
// The schema is created on first use of each connection.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Path != "" && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("session: create db dir: %w", err)
		}
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &SQLiteStore{pool: pool, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID string) (sess schema.Session, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return schema.Session{}, schema.NewStorageError("create session", err)
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return schema.Session{}, schema.NewStorageError("create session", err)
	}
	defer endFn(&err)

	var uid any
	if userID != "" {
		uid = userID
	}
	now := time.Now()
	err = sqlitex.Execute(conn, "INSERT INTO sessions (user_id, created_at) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{uid, toEpoch(now)},
	})
	if err != nil {
		return schema.Session{}, schema.NewStorageError("create session", err)
	}

	sess = schema.Session{ID: conn.LastInsertRowID(), UserID: userID, CreatedAt: now}
	s.logger.Debug("session created", "session_id", sess.ID, "user_id", userID)
	return sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (schema.Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return schema.Session{}, schema.NewStorageError("get session", err)
	}
	defer s.pool.Put(conn)

	var (
		sess  schema.Session
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT session_id, user_id, created_at FROM sessions WHERE session_id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			sess = scanSession(stmt)
			return nil
		},
	})
	if err != nil {
		return schema.Session{}, schema.NewStorageError("get session", err)
	}
	if !found {
		return schema.Session{}, fmt.Errorf("session %d: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

func (s *SQLiteStore) AppendMessages(ctx context.Context, sessionID int64, msgs ...schema.Message) (err error) {
	if len(msgs) == 0 {
		return nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return schema.NewStorageError("append messages", err)
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return schema.NewStorageError("append messages", err)
	}
	defer endFn(&err)

	for _, m := range msgs {
		meta, merr := encodeMetadata(m.Metadata)
		if merr != nil {
			return schema.NewStorageError("append messages", merr)
		}
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		err = sqlitex.Execute(conn,
			"INSERT INTO messages (session_id, role, content, metadata, timestamp) VALUES (?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{sessionID, string(m.Role), m.Content, meta, toEpoch(ts)},
			})
		if err != nil {
			return schema.NewStorageError("append messages", err)
		}
	}
	return nil
}

func (s *SQLiteStore) LoadMessages(ctx context.Context, sessionID int64, q Query) ([]StoredMessage, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, schema.NewStorageError("load messages", err)
	}
	defer s.pool.Put(conn)

	limit := q.Limit
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}

	const cols = "id, role, content, metadata, timestamp"
	var query string
	if q.Oldest {
		query = "SELECT " + cols + " FROM messages WHERE session_id = ? AND id > ? " +
			"ORDER BY timestamp, id LIMIT ?"
	} else {
		query = "SELECT " + cols + " FROM (SELECT " + cols + " FROM messages " +
			"WHERE session_id = ? AND id > ? ORDER BY timestamp DESC, id DESC LIMIT ?) " +
			"ORDER BY timestamp, id"
	}

	var out []StoredMessage
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{sessionID, q.AfterID, limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			m, err := scanMessage(stmt)
			if err != nil {
				return err
			}
			out = append(out, m)
			return nil
		},
	})
	if err != nil {
		return nil, schema.NewStorageError("load messages", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]Info, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, schema.NewStorageError("list sessions", err)
	}
	defer s.pool.Put(conn)

	const query = `SELECT s.session_id, s.user_id, s.created_at, COUNT(m.id), MAX(m.timestamp)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.session_id`

	var out []Info
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			info := Info{
				Session:      scanSession(stmt),
				MessageCount: stmt.ColumnInt(3),
			}
			if !stmt.ColumnIsNull(4) {
				info.LastActivity = fromEpoch(stmt.ColumnFloat(4))
			}
			out = append(out, info)
			return nil
		},
	})
	if err != nil {
		return nil, schema.NewStorageError("list sessions", err)
	}
	return out, nil
}

// Columns: session_id(0), user_id(1), created_at(2)
func scanSession(stmt *sqlite.Stmt) schema.Session {
	return schema.Session{
		ID:        stmt.ColumnInt64(0),
		UserID:    stmt.ColumnText(1),
		CreatedAt: fromEpoch(stmt.ColumnFloat(2)),
	}
}

// Columns: id(0), role(1), content(2), metadata(3), timestamp(4)
func scanMessage(stmt *sqlite.Stmt) (StoredMessage, error) {
	m := StoredMessage{
		ID: stmt.ColumnInt64(0),
		Message: schema.Message{
			Role:      schema.Role(stmt.ColumnText(1)),
			Content:   stmt.ColumnText(2),
			Timestamp: fromEpoch(stmt.ColumnFloat(4)),
		},
	}
	if !stmt.ColumnIsNull(3) {
		meta, err := decodeMetadata(stmt.ColumnText(3))
		if err != nil {
			return StoredMessage{}, fmt.Errorf("message %d: %w", m.ID, err)
		}
		m.Metadata = meta
	}
	return m, nil
}
