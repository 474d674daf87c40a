package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lumina/internal/bootstrap"
	"lumina/internal/config"
	"lumina/internal/i18n"
	"lumina/internal/repl"
	"lumina/internal/tui"
)

var (
	configPath string
	useTUI     bool
)

var rootCmd = &cobra.Command{
	Use:   "lumina",
	Short: "Lumina - capture thought fragments and let AI organize them",
	Long: `Lumina captures short thought fragments and todos, and uses an AI model to
organize them into a plan, write a weekly review, brainstorm around an idea
and chat about what you have captured.

Run without arguments to start the interactive shell.`,
	SilenceUsage: true,
	RunE:         runInteractive,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config JSON/JSONC file")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "start the full-screen terminal interface")

	rootCmd.AddCommand(serveCmd, importCmd, initCmd, opsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取配置并按配置初始化语言
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	i18n.Init(cfg.Locale)
	return cfg, nil
}

func buildApp(ctx context.Context, cfg config.Config, interactive bool) (*bootstrap.App, error) {
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{Interactive: interactive})
	if errors.Is(err, config.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: set LUMINA_API_KEY (or GEMINI_API_KEY / OPENAI_API_KEY)", err)
	}
	return app, err
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer app.Close()

	if useTUI {
		return tui.Run(cmd.Context(), app.Manager)
	}
	return repl.Run(cmd.Context(), repl.NewLoop(app))
}
