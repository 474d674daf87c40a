package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lumina/internal/bootstrap"
	"lumina/internal/config"
	"lumina/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a browser localStorage export",
	Long: `Imports data exported from the browser version of Lumina. The file may be a
JSON object of localStorage keys or a bare fragment array.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kv, err := bootstrap.OpenStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer kv.Close()

		n, err := storage.ImportLegacy(args[0], kv)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d key(s) into %s storage\n", n, cfg.Storage.Backend)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a project config template to .lumina/config.json",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := config.InitProjectConfigScaffold(dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var opsLimit int

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Show recent AI operations from the operation log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kv, err := bootstrap.OpenStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer kv.Close()

		db, ok := kv.(*storage.SQLiteKV)
		if !ok {
			return fmt.Errorf("operation log requires the sqlite backend (current: %s)", cfg.Storage.Backend)
		}
		entries, err := db.RecentOperations(opsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REQUEST\tKIND\tSTATUS\tDURATION\tDETAIL")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.RequestID, e.Kind, e.Status, e.Duration, e.Detail)
		}
		return tw.Flush()
	},
}

func init() {
	opsCmd.Flags().IntVar(&opsLimit, "limit", 20, "number of entries to show")
}
