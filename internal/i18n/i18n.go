package i18n

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"sync/atomic"
)

const (
	LocaleEN   = "en"
	LocaleZhCN = "zh-CN"
)

// catalogs 各语言的覆盖表，缺失的键回退到英文
var catalogs = map[string]map[string]string{
	LocaleZhCN: ZhCNMessages,
}

// I18n 某一语言下的只读消息表
// I18n is an immutable message table for one locale.
type I18n struct {
	locale   string
	messages map[string]string
}

var current atomic.Pointer[I18n]

// Global 当前全局实例；首次使用时按环境检测语言
// Global returns the process-wide instance, detecting the locale on first use.
func Global() *I18n {
	if g := current.Load(); g != nil {
		return g
	}
	current.CompareAndSwap(nil, New(""))
	return current.Load()
}

// Init 切换全局语言 / switches the process-wide locale
func Init(locale string) {
	current.Store(New(locale))
}

// T 使用全局实例翻译
func T(key string, args ...any) string {
	return Global().T(key, args...)
}

// New 构造指定语言的消息表；空 locale 表示自动检测
// New builds the table for locale; an empty locale is detected from the environment.
func New(locale string) *I18n {
	if strings.TrimSpace(locale) == "" {
		locale = DetectLocale()
	}
	locale = normalizeLocale(locale)

	messages := maps.Clone(EnMessages)
	if overlay, ok := catalogs[locale]; ok {
		maps.Copy(messages, overlay)
	}
	return &I18n{locale: locale, messages: messages}
}

// T 查表并按 fmt 格式化；未知键原样返回
// T looks key up and formats it with args. Unknown keys are returned verbatim.
func (i *I18n) T(key string, args ...any) string {
	tmpl, ok := i.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func (i *I18n) Locale() string {
	return i.locale
}

// DetectLocale 按 LUMINA_LANG、LC_ALL、LC_MESSAGES、LANG 的顺序检测
// DetectLocale reads LUMINA_LANG first, then the POSIX locale variables.
func DetectLocale() string {
	for _, env := range []string{"LUMINA_LANG", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" && v != "C" && v != "POSIX" {
			return normalizeLocale(v)
		}
	}
	return LocaleEN
}

// normalizeLocale "zh_CN.UTF-8" → "zh-CN"; 其它中文变体同样映射到 zh-CN
func normalizeLocale(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), ".")
	s = strings.ReplaceAll(s, "_", "-")
	switch lower := strings.ToLower(s); {
	case s == "":
		return LocaleEN
	case strings.HasPrefix(lower, "zh"):
		return LocaleZhCN
	case strings.HasPrefix(lower, "en"):
		return LocaleEN
	default:
		return s
	}
}
