package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type ModelsConfig struct {
	Organize   string `json:"organize,omitempty"`
	Brainstorm string `json:"brainstorm,omitempty"`
	Review     string `json:"review,omitempty"`
	Chat       string `json:"chat,omitempty"`
}

type ProviderConfig struct {
	Name       string       `json:"name" validate:"oneof=gemini openai"`
	BaseURL    string       `json:"base_url,omitempty" validate:"omitempty,url"`
	APIKey     string       `json:"api_key,omitempty"`
	TimeoutMS  int          `json:"timeout_ms" validate:"gte=0"`
	MaxRetries int          `json:"max_retries" validate:"gte=0,lte=10"`
	Models     ModelsConfig `json:"models"`
}

// Timeout 请求超时 / per-request timeout
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

type StorageConfig struct {
	Backend string `json:"backend" validate:"oneof=sqlite file memory"`
	BaseDir string `json:"base_dir"`
}

type LoggingConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=json console"`
	File   string `json:"file,omitempty"`
}

type ServerConfig struct {
	Addr           string   `json:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type ContextConfig struct {
	TokenBudget int `json:"token_budget" validate:"gte=0"`
}

type RecordingConfig struct {
	DelayMS    int    `json:"delay_ms" validate:"gte=0"`
	Transcript string `json:"transcript,omitempty"`
}

// Delay 模拟录音时长 / simulated recording duration
func (r RecordingConfig) Delay() time.Duration {
	return time.Duration(r.DelayMS) * time.Millisecond
}

type Config struct {
	Provider  ProviderConfig  `json:"provider"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Server    ServerConfig    `json:"server"`
	Context   ContextConfig   `json:"context"`
	Recording RecordingConfig `json:"recording"`
	Locale    string          `json:"locale,omitempty"`
}

type fileConfig struct {
	Provider  *ProviderConfig  `json:"provider"`
	Storage   *StorageConfig   `json:"storage"`
	Logging   *LoggingConfig   `json:"logging"`
	Server    *ServerConfig    `json:"server"`
	Context   *ContextConfig   `json:"context"`
	Recording *RecordingConfig `json:"recording"`
	Locale    *string          `json:"locale"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Name:       DefaultProvider,
			TimeoutMS:  DefaultProviderTimeoutMS,
			MaxRetries: DefaultProviderMaxRetries,
		},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			BaseDir: "~/.lumina",
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			Addr:           DefaultServerAddr,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Context: ContextConfig{
			TokenBudget: DefaultContextTokenBudget,
		},
		Recording: RecordingConfig{
			DelayMS: DefaultRecordingDelayMS,
		},
	}
}

// Load 依次合并：默认值 → 全局配置 → 项目配置（或显式路径）→ 环境变量
// Load merges defaults, the global config, the project config (or an explicit
// path) and finally environment overrides. It does not check the API key; call
// Validate before talking to the gateway.
func Load(path string) (Config, error) {
	cfg := Default()
	for _, layer := range configLayers(path) {
		fc, err := readLayer(layer)
		if err != nil {
			return Config{}, err
		}
		if fc != nil {
			fc.applyTo(&cfg)
		}
	}
	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

// configLayers 按优先级从低到高列出配置文件
func configLayers(explicit string) []string {
	var layers []string
	if home, err := os.UserHomeDir(); err == nil {
		layers = append(layers, filepath.Join(home, ".lumina", "config.json"))
	}

	project := strings.TrimSpace(explicit)
	if env := strings.TrimSpace(os.Getenv("LUMINA_CONFIG_PATH")); env != "" {
		project = env
	}
	if project == "" {
		project = discoverProjectConfig()
	}
	if project != "" {
		layers = append(layers, project)
	}
	return layers
}

func discoverProjectConfig() string {
	for _, name := range []string{"lumina.config.json", filepath.Join(".lumina", "config.json")} {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

// readLayer 读取一层配置；文件不存在时返回 nil
func readLayer(path string) (*fileConfig, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("config path %q: %w", path, err)
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", resolved, err)
	}
	var fc fileConfig
	if err := decodeJSONC(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", resolved, err)
	}
	return &fc, nil
}

// override 非零值覆盖 / replaces *dst when v is set
func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// applyTo 逐字段覆盖，文件中缺省的字段保留下层的值
// applyTo overlays the fields present in the file onto cfg.
func (fc *fileConfig) applyTo(cfg *Config) {
	if p := fc.Provider; p != nil {
		override(&cfg.Provider.Name, p.Name)
		override(&cfg.Provider.BaseURL, p.BaseURL)
		override(&cfg.Provider.APIKey, p.APIKey)
		override(&cfg.Provider.TimeoutMS, p.TimeoutMS)
		override(&cfg.Provider.MaxRetries, p.MaxRetries)
		override(&cfg.Provider.Models.Organize, p.Models.Organize)
		override(&cfg.Provider.Models.Brainstorm, p.Models.Brainstorm)
		override(&cfg.Provider.Models.Review, p.Models.Review)
		override(&cfg.Provider.Models.Chat, p.Models.Chat)
	}
	if s := fc.Storage; s != nil {
		override(&cfg.Storage.Backend, s.Backend)
		override(&cfg.Storage.BaseDir, s.BaseDir)
	}
	if l := fc.Logging; l != nil {
		override(&cfg.Logging.Level, l.Level)
		override(&cfg.Logging.Format, l.Format)
		override(&cfg.Logging.File, l.File)
	}
	if s := fc.Server; s != nil {
		override(&cfg.Server.Addr, s.Addr)
		if s.AllowedOrigins != nil {
			cfg.Server.AllowedOrigins = s.AllowedOrigins
		}
	}
	if c := fc.Context; c != nil && c.TokenBudget > 0 {
		cfg.Context.TokenBudget = c.TokenBudget
	}
	if r := fc.Recording; r != nil {
		if r.DelayMS > 0 {
			cfg.Recording.DelayMS = r.DelayMS
		}
		override(&cfg.Recording.Transcript, r.Transcript)
	}
	if fc.Locale != nil {
		cfg.Locale = *fc.Locale
	}
}

// normalize 去空白、小写化枚举值、补默认值并展开路径
// normalize trims and lower-cases enum values, fills defaults and expands paths.
func normalize(cfg *Config) error {
	def := Default()
	clean := func(dst *string, fallback string, lower bool) {
		v := strings.TrimSpace(*dst)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			v = fallback
		}
		*dst = v
	}

	clean(&cfg.Provider.Name, def.Provider.Name, true)
	cfg.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Provider.BaseURL), "/")
	cfg.Provider.APIKey = strings.TrimSpace(cfg.Provider.APIKey)
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = def.Provider.TimeoutMS
	}

	clean(&cfg.Storage.Backend, def.Storage.Backend, true)
	clean(&cfg.Storage.BaseDir, def.Storage.BaseDir, false)
	clean(&cfg.Logging.Level, def.Logging.Level, true)
	clean(&cfg.Logging.Format, def.Logging.Format, true)
	clean(&cfg.Server.Addr, def.Server.Addr, false)
	clean(&cfg.Locale, "", false)

	var err error
	if cfg.Storage.BaseDir, err = expandPath(cfg.Storage.BaseDir); err != nil {
		return fmt.Errorf("storage.base_dir: %w", err)
	}
	if cfg.Logging.File, err = expandPath(cfg.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	cfg.Server.AllowedOrigins = origins

	if cfg.Context.TokenBudget <= 0 {
		cfg.Context.TokenBudget = def.Context.TokenBudget
	}
	if cfg.Recording.DelayMS <= 0 {
		cfg.Recording.DelayMS = def.Recording.DelayMS
	}
	return nil
}

// apiKeyEnv API key 的环境变量，按优先级排列
var apiKeyEnv = []string{"LUMINA_API_KEY", "GEMINI_API_KEY", "API_KEY", "OPENAI_API_KEY"}

// applyEnv 环境变量最后生效 / environment variables win over every file
func applyEnv(cfg Config) (Config, error) {
	env := func(name string) string { return strings.TrimSpace(os.Getenv(name)) }

	override(&cfg.Provider.Name, env("LUMINA_PROVIDER"))
	override(&cfg.Provider.BaseURL, env("LUMINA_BASE_URL"))
	for _, name := range apiKeyEnv {
		if v := env(name); v != "" {
			cfg.Provider.APIKey = v
			break
		}
	}
	if v := env("LUMINA_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid LUMINA_MAX_RETRIES: %q", v)
		}
		cfg.Provider.MaxRetries = n
	}
	override(&cfg.Storage.BaseDir, env("LUMINA_DATA_DIR"))
	override(&cfg.Logging.Level, env("LUMINA_LOG_LEVEL"))
	override(&cfg.Server.Addr, env("LUMINA_ADDR"))
	override(&cfg.Locale, env("LUMINA_LANG"))

	return cfg, normalize(&cfg)
}

// expandPath 展开 ~ 并转为绝对路径；空路径原样返回
func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}
