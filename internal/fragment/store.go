package fragment

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lumina/internal/apperr"
	"lumina/internal/storage"
)

// StorageKey 持久化键 / durable storage key
const StorageKey = storage.FragmentsKey

// BackupKey 无法解析的原值备份 / holds a stored value Load could not read
const BackupKey = StorageKey + "_unreadable"

// storageVersion 当前持久化格式版本；0 表示旧版裸数组
// storageVersion is the current persisted format; 0 is the legacy bare array.
const storageVersion = 1

type envelope struct {
	Version   int        `json:"version"`
	Fragments []Fragment `json:"fragments"`
}

// Store 碎片集合的状态容器，所有变更都经过它并立即持久化
// Store is the state container for the fragment collection. Every mutation goes
// through it and is persisted immediately. Order is newest first.
type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	logger *zap.Logger
	locale string
	now    func() time.Time
	lastID int64
	items  []Fragment
}

// NewStore 创建空集合；调用 Load 载入持久化数据
// NewStore returns an empty store bound to kv. Call Load to read persisted data.
// A nil kv keeps the collection in memory only.
func NewStore(kv storage.KV, logger *zap.Logger, locale string) *Store {
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     kv,
		logger: logger.Named("fragments"),
		locale: locale,
		now:    time.Now,
	}
}

// Load 读取持久化集合；不存在或为空时写入种子数据。
// 无法解析时原值备份到 BackupKey，种子只留在内存中。
// Load reads the persisted collection. When it is absent or empty the seed set
// is installed and persisted. When it is unreadable (corrupt, or written by a
// newer version) the raw value is copied to BackupKey, the seeds are used in
// memory only and a storage error is returned; the stored value is left as is.
// Storage errors never leave the store unusable.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.logger.Warn("read fragments failed, using seed data", zap.Error(err))
		s.items = Seed(s.locale, s.now())
		return apperr.Storage("load", err)
	}
	if ok {
		items, derr := decodeCollection(raw)
		if derr != nil {
			s.logger.Warn("stored fragments unreadable, using seed data in memory",
				zap.String("backup_key", BackupKey), zap.Error(derr))
			s.items = Seed(s.locale, s.now())
			if berr := s.kv.Put(BackupKey, raw); berr != nil {
				s.logger.Warn("back up unreadable fragments failed", zap.Error(berr))
			}
			return apperr.Storage("load", derr)
		}
		if len(items) > 0 {
			s.items = items
			return nil
		}
	}

	s.items = Seed(s.locale, s.now())
	return s.saveLocked()
}

// Reload 重新读取存储（外部进程修改后调用）
// Reload re-reads storage, typically after another process wrote to it.
// Unlike Load it never reseeds; an unreadable value leaves memory untouched.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		return apperr.Storage("reload", err)
	}
	if !ok {
		return nil
	}
	items, err := decodeCollection(raw)
	if err != nil {
		return apperr.Storage("reload", err)
	}
	s.items = items
	return nil
}

// Save 将整个集合写入存储 / writes the entire collection
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(envelope{Version: storageVersion, Fragments: nonNil(s.items)})
	if err != nil {
		return apperr.Storage("save", fmt.Errorf("encode fragments: %w", err))
	}
	if err := s.kv.Put(StorageKey, string(data)); err != nil {
		s.logger.Warn("persist fragments failed, keeping in-memory state", zap.Error(err))
		return apperr.Storage("save", err)
	}
	return nil
}

// persist 在变更后调用；持久化失败不回滚内存状态
func (s *Store) persist() {
	_ = s.saveLocked()
}

// Add 新建碎片并置于最前；内容为空白时返回校验错误
// Add prepends a new fragment. Blank content is rejected with a validation error
// and leaves the collection unchanged.
func (s *Store) Add(content string) (Fragment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Fragment{}, apperr.Validation("add", "content is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	f := Fragment{
		ID:        s.nextID(now),
		Content:   content,
		CreatedAt: now.UnixMilli(),
		Tags:      []string{},
		Type:      TypeFragment,
		Status:    StatusPending,
	}
	s.items = append([]Fragment{f}, s.items...)
	s.persist()
	return f.clone(), nil
}

// nextID 纳秒时间戳；同一时钟刻度内保持单调递增
func (s *Store) nextID(now time.Time) string {
	n := now.UnixNano()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return formatID(n)
}

// Remove 删除指定 id；不存在时不做任何事
// Remove filters out the fragment with id. Unknown ids are a no-op.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	s.persist()
	return true
}

// ToggleTodo 在 fragment 与 todo 之间切换
// ToggleTodo flips Type between fragment and todo. Promotion sets status pending
// when absent; demotion clears status. Other types are left as they are.
func (s *Store) ToggleTodo(id string) (Fragment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Fragment{}, false
	}
	f := &s.items[idx]
	switch f.Type {
	case TypeTodo:
		f.Type = TypeFragment
		f.Status = StatusNone
	case TypeFragment:
		f.Type = TypeTodo
		if f.Status == StatusNone {
			f.Status = StatusPending
		}
	default:
		return f.clone(), false
	}
	s.persist()
	return f.clone(), true
}

// SetStatus 设置待办状态；只对 todo 生效
// SetStatus updates the status of a todo.
func (s *Store) SetStatus(id string, status Status) (Fragment, error) {
	if status == StatusNone {
		return Fragment{}, apperr.Validation("set status", "status is empty")
	}
	if _, ok := ParseStatus(string(status)); !ok {
		return Fragment{}, apperr.Validation("set status", fmt.Sprintf("unknown status %q", status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Fragment{}, apperr.NotFound("set status", "fragment "+id)
	}
	f := &s.items[idx]
	if f.Type != TypeTodo {
		return Fragment{}, apperr.Validation("set status", "fragment is not a todo")
	}
	if f.Status != status {
		f.Status = status
		s.persist()
	}
	return f.clone(), nil
}

// List 返回集合副本（最新在前）/ returns a copy, newest first
func (s *Store) List() []Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneAll(nonNil(s.items))
}

func (s *Store) Get(id string) (Fragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Fragment{}, false
	}
	return s.items[idx].clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func decodeCollection(raw string) ([]Fragment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []Fragment
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("decode legacy fragments: %w", err)
		}
		return normalize(items), nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode fragments: %w", err)
	}
	if env.Version > storageVersion {
		return nil, fmt.Errorf("unsupported fragments version %d", env.Version)
	}
	return normalize(env.Fragments), nil
}

func normalize(items []Fragment) []Fragment {
	for i := range items {
		if items[i].Tags == nil {
			items[i].Tags = []string{}
		}
		if items[i].Type == "" {
			items[i].Type = TypeFragment
		}
	}
	return items
}

func nonNil(items []Fragment) []Fragment {
	if items == nil {
		return []Fragment{}
	}
	return items
}
