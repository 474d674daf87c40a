package storage

import (
	"errors"
	"time"
)

// ErrClosed 后端已关闭 / the backend has been closed
var ErrClosed = errors.New("storage closed")

// KV 持久化键值接口，支持多后端 (SQLite / JSON 文件 / 内存)
// KV is the durable key/value interface implemented by the SQLite, file and memory backends.
type KV interface {
	// Get 返回 key 对应的值；不存在时 ok=false
	// Get returns the value for key; ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Put 覆盖写入 / Put overwrites the value for key
	Put(key, value string) error

	// Close 释放资源 / releases resources
	Close() error
}

// OperationLogger 记录 AI 操作结果（可选能力）
// OperationLogger records AI operation outcomes; optional capability of a backend.
type OperationLogger interface {
	LogOperation(entry OperationEntry) error
}

// OperationEntry AI 操作日志条目
// OperationEntry is a single AI operation outcome.
type OperationEntry struct {
	RequestID string
	Kind      string
	Status    string
	Detail    string
	Duration  time.Duration
}
