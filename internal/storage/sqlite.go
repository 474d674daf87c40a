package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqlitePragmas WAL + busy timeout，允许 CLI 与服务进程并发读写同一文件
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// SQLiteKV 基于 SQLite (WAL 模式) 的键值持久化实现
// SQLiteKV implements KV using SQLite with WAL mode.
type SQLiteKV struct {
	db   *sql.DB
	path string
}

// NewSQLiteKV 创建并初始化 SQLite 数据库
// NewSQLiteKV creates and initializes a SQLite database.
func NewSQLiteKV(dbPath string) (*SQLiteKV, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// pragma 写在 DSN 中，连接池里每个连接都会应用
	db, err := sql.Open("sqlite", dbPath+"?"+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	store := &SQLiteKV{db: db, path: dbPath}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteKV) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS operation_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id  TEXT NOT NULL DEFAULT '',
		kind        TEXT NOT NULL,
		status      TEXT NOT NULL,
		detail      TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operation_log_kind ON operation_log(kind, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path 返回数据库文件路径 / returns the database file path
func (s *SQLiteKV) Path() string {
	return s.path
}

// Close 关闭数据库连接 / Close the database connection
func (s *SQLiteKV) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteKV) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrClosed
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, fmt.Errorf("key is empty")
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key=?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteKV) Put(key, value string) error {
	if s.db == nil {
		return ErrClosed
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is empty")
	}
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, nowUTC())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// --- Operation Log ---

func (s *SQLiteKV) LogOperation(entry OperationEntry) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO operation_log (request_id, kind, status, detail, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Kind, entry.Status, entry.Detail, entry.Duration.Milliseconds(), nowUTC())
	if err != nil {
		return fmt.Errorf("log operation: %w", err)
	}
	return nil
}

// RecentOperations 按时间倒序返回最近的操作日志
// RecentOperations returns the most recent operation log entries, newest first.
func (s *SQLiteKV) RecentOperations(limit int) ([]OperationEntry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT request_id, kind, status, detail, duration_ms
		FROM operation_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var entries []OperationEntry
	for rows.Next() {
		var e OperationEntry
		var ms int64
		if err := rows.Scan(&e.RequestID, &e.Kind, &e.Status, &e.Detail, &ms); err != nil {
			continue
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Helpers ---

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
