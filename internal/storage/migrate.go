package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// FragmentsKey 碎片集合在 KV 中的键（沿用浏览器 localStorage 的键名）
// FragmentsKey is the key holding the fragment collection, same as the browser localStorage key.
const FragmentsKey = "lumina_fragments"

// ImportLegacy 导入浏览器 localStorage 导出文件
// ImportLegacy imports a browser localStorage export into kv.
//
// Two shapes are accepted: a JSON object mapping keys to values (string values are stored
// verbatim, other values re-encoded), or a bare fragment array stored under FragmentsKey.
// Returns the number of imported keys.
func ImportLegacy(path string, kv KV) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, fmt.Errorf("import path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return 0, fmt.Errorf("%s is empty", path)
	}

	switch trimmed[0] {
	case '[':
		var probe []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
			return 0, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := kv.Put(FragmentsKey, trimmed); err != nil {
			return 0, err
		}
		return 1, nil
	case '{':
		var entries map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return 0, fmt.Errorf("parse %s: %w", path, err)
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		imported := 0
		for _, k := range keys {
			if strings.TrimSpace(k) == "" {
				continue
			}
			raw := entries[k]
			value := string(raw)
			var s string
			if json.Unmarshal(raw, &s) == nil {
				value = s
			}
			if err := kv.Put(k, value); err != nil {
				return imported, fmt.Errorf("import %s: %w", k, err)
			}
			imported++
		}
		return imported, nil
	default:
		return 0, fmt.Errorf("%s: expected a JSON array or object", path)
	}
}
