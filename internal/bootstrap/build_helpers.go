package bootstrap

import (
	"path/filepath"

	"go.uber.org/zap"

	"lumina/internal/config"
	"lumina/internal/contextmgr"
	"lumina/internal/gateway"
	"lumina/internal/storage"
)

// DatabaseFile SQLite 后端的文件名 / file name of the SQLite backend
const DatabaseFile = "lumina.db"

// OpenStorage 按配置打开存储后端 / opens the configured storage backend
func OpenStorage(cfg config.StorageConfig) (storage.KV, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryKV(), nil
	case "file":
		return storage.NewFileKV(cfg.BaseDir)
	default:
		return storage.NewSQLiteKV(filepath.Join(cfg.BaseDir, DatabaseFile))
	}
}

// openStorage 打开失败时退回内存存储，应用照常运行
func openStorage(cfg config.StorageConfig, logger *zap.Logger) storage.KV {
	kv, err := OpenStorage(cfg)
	if err != nil {
		logger.Warn("storage backend unavailable, keeping data in memory",
			zap.String("backend", cfg.Backend),
			zap.Error(err),
		)
		return storage.NewMemoryKV()
	}
	return kv
}

func newBudget(cfg config.Config) *contextmgr.Budget {
	model := cfg.Provider.Models.Chat
	if model == "" {
		model = cfg.Provider.Name
	}
	tok := contextmgr.NewTokenizerForModel(model)
	return contextmgr.NewBudget(tok, cfg.Context.TokenBudget)
}

func gatewayConfig(cfg config.Config) gateway.Config {
	return gateway.Config{
		Provider:   cfg.Provider.Name,
		BaseURL:    cfg.Provider.BaseURL,
		APIKey:     cfg.Provider.APIKey,
		Timeout:    cfg.Provider.Timeout(),
		MaxRetries: cfg.Provider.MaxRetries,
		Models: gateway.Models{
			Organize:   cfg.Provider.Models.Organize,
			Brainstorm: cfg.Provider.Models.Brainstorm,
			Review:     cfg.Provider.Models.Review,
			Chat:       cfg.Provider.Models.Chat,
		},
	}
}
