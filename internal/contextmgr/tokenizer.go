package contextmgr

import (
	"strings"
	"sync"
	"unicode"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"lumina/internal/chat"
	"lumina/internal/fragment"
)

const (
	encodingCL100K = "cl100k_base"
	encodingO200K  = "o200k_base"

	// messageOverhead 每轮对话的结构 token / framing tokens per chat turn
	messageOverhead = 4
	// fragmentOverhead "[type] " 前缀与 "\n---\n" 分隔符
	fragmentOverhead = 6
)

// Tokenizer 统计送往模型的文本 token 数
// Tokenizer counts tokens for text sent to the model. The BPE table is loaded on
// first use; when it cannot be loaded (offline, no cache) counts fall back to a
// script-aware estimate.
type Tokenizer struct {
	encoding string

	once sync.Once
	bpe  *tiktoken.Tiktoken
}

var (
	sharedMu         sync.Mutex
	sharedTokenizers = map[string]*Tokenizer{}
)

// DefaultTokenizer 共享的 cl100k_base 计数器
func DefaultTokenizer() *Tokenizer {
	return sharedTokenizer(encodingCL100K)
}

// NewTokenizerForModel 按模型名选择编码，同一编码共享实例
// NewTokenizerForModel picks an encoding from the model name. Tokenizers are
// shared per encoding so the BPE table is loaded once per process.
func NewTokenizerForModel(model string) *Tokenizer {
	return sharedTokenizer(encodingForModel(model))
}

// NewHeuristicTokenizer 永不加载 BPE 表 / never loads a BPE table
func NewHeuristicTokenizer() *Tokenizer {
	t := &Tokenizer{encoding: "heuristic"}
	t.once.Do(func() {})
	return t
}

func sharedTokenizer(encoding string) *Tokenizer {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if t, ok := sharedTokenizers[encoding]; ok {
		return t
	}
	t := &Tokenizer{encoding: encoding}
	sharedTokenizers[encoding] = t
	return t
}

func (t *Tokenizer) load() *tiktoken.Tiktoken {
	t.once.Do(func() {
		if enc, err := tiktoken.GetEncoding(t.encoding); err == nil {
			t.bpe = enc
		}
	})
	return t.bpe
}

// Encoding 编码名 / encoding name
func (t *Tokenizer) Encoding() string { return t.encoding }

// Exact 是否使用 BPE 精确计数 / reports whether counts come from a BPE table
func (t *Tokenizer) Exact() bool { return t.load() != nil }

// CountText 单段文本的 token 数 / tokens in one text
func (t *Tokenizer) CountText(text string) int {
	if text == "" {
		return 0
	}
	if bpe := t.load(); bpe != nil {
		return len(bpe.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// CountMessage 单轮对话 token 数（含结构开销）
// CountMessage counts one chat turn including framing overhead.
func (t *Tokenizer) CountMessage(msg chat.Message) int {
	return messageOverhead + t.CountText(string(msg.Role)) + t.CountText(msg.Content)
}

// CountFragment 碎片在 prompt 中占用的 token 数
// CountFragment counts a fragment as it appears in an organize or chat prompt.
func (t *Tokenizer) CountFragment(f fragment.Fragment) int {
	return fragmentOverhead + t.CountText(f.Content)
}

// estimateTokens 粗估：表意文字约 1.5 token/字，其余约 4 字符/token
func estimateTokens(text string) int {
	var wide, narrow int
	for _, r := range text {
		if isWideScript(r) {
			wide++
		} else {
			narrow++
		}
	}
	n := (wide*3+1)/2 + (narrow+3)/4
	if n < 1 {
		n = 1
	}
	return n
}

func isWideScript(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}

// encodingForModel Gemini 无公开 BPE，以 o200k_base 近似
// encodingForModel maps a model name to a tiktoken encoding. Gemini has no public
// BPE table, so o200k_base stands in as the closest approximation.
func encodingForModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"gemini", "gpt-4o", "gpt-4.1", "gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(m, prefix) {
			return encodingO200K
		}
	}
	return encodingCL100K
}
