// Package bootstrap 按固定顺序装配 Lumina 的运行时组件
// Package bootstrap wires Lumina's runtime components in a fixed order.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lumina/internal/config"
	"lumina/internal/fragment"
	"lumina/internal/gateway"
	"lumina/internal/i18n"
	"lumina/internal/logging"
	"lumina/internal/metrics"
	"lumina/internal/orchestrator"
	"lumina/internal/storage"
)

// Options 构建选项 / build options
type Options struct {
	// Interactive 为 true 时日志不干扰终端界面
	// Interactive keeps console logging quiet so it does not break the terminal UI.
	Interactive bool
	// Gateway 非空时替代按配置创建的网关（测试与离线演示）
	// Gateway, when set, replaces the configured gateway.
	Gateway gateway.Gateway
	Logger  *zap.Logger
}

// App 与 UI 无关的构建结果，供 REPL / TUI / HTTP 服务使用
// App is UI-agnostic; the REPL, TUI and HTTP server are all built on it.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	KV        storage.KV
	Fragments *fragment.Store
	Gateway   gateway.Gateway
	Metrics   *metrics.Collector
	Manager   *orchestrator.Manager

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// Build 按顺序初始化：日志 → 网关 → 存储 → 碎片 → 指标 → 管理器；调用方负责 Close
// Build initializes logging, the gateway, storage, fragments, metrics and the manager,
// in that order. The caller must Close the returned App.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.ValidateFields(); err != nil {
		return nil, err
	}
	i18n.Init(cfg.Locale)

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging, opts.Interactive)
		if err != nil {
			return nil, fmt.Errorf("init logging: %w", err)
		}
	}

	gw := opts.Gateway
	if gw == nil {
		if strings.TrimSpace(cfg.Provider.APIKey) == "" {
			return nil, config.ErrMissingAPIKey
		}
		var err error
		gw, err = gateway.New(ctx, gatewayConfig(cfg), newBudget(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("init gateway: %w", err)
		}
	}

	kv := openStorage(cfg.Storage, logger)
	store := fragment.NewStore(kv, logger, i18n.Global().Locale())
	if err := store.Load(); err != nil {
		// 存储不可用时仍可在内存中继续工作
		logger.Warn("fragment storage unavailable", zap.Error(err))
	}

	collector := metrics.NewCollector()
	mgrOpts := orchestrator.Options{
		Logger:              logger,
		Metrics:             collector,
		RecordingDelay:      cfg.Recording.Delay(),
		RecordingTranscript: cfg.Recording.Transcript,
	}
	if oplog, ok := kv.(storage.OperationLogger); ok {
		mgrOpts.OperationLog = oplog
	}
	mgr := orchestrator.New(store, gw, mgrOpts)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		KV:        kv,
		Fragments: store,
		Gateway:   gw,
		Metrics:   collector,
		Manager:   mgr,
	}
	app.watchStorage(kv)

	logger.Info("lumina ready",
		zap.String("provider", gw.Name()),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("fragments", store.Len()),
	)
	return app, nil
}

// watchStorage 文件后端被其他进程修改时重新加载碎片
// watchStorage reloads fragments when another process rewrites the file backend.
func (a *App) watchStorage(kv storage.KV) {
	fkv, ok := kv.(*storage.FileKV)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	a.watchDone = make(chan struct{})
	go func() {
		defer close(a.watchDone)
		err := fkv.Watch(ctx, fragment.StorageKey, func() {
			if err := a.Manager.ReloadFragments(); err != nil {
				a.Logger.Warn("reload fragments failed", zap.Error(err))
			}
		})
		if err != nil {
			a.Logger.Warn("storage watch stopped", zap.Error(err))
		}
	}()
}

// Close 停止后台任务并释放存储
// Close stops background work and releases storage.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.stopWatch != nil {
		a.stopWatch()
		<-a.watchDone
	}
	var errs []error
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
