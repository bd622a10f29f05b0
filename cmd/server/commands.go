package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/phrazzld/lexis-api/internal/config"
	"github.com/phrazzld/lexis-api/internal/importer"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/platform/metrics"
	"github.com/phrazzld/lexis-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lexis",
		Short:        "Adaptive vocabulary practice API",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Path to a YAML config file (default ./config.yaml if present)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newImportCmd())
	return root
}

// loadConfig reads the configuration named by --config, or the default
// locations, and installs the configured logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("redis_enabled", cfg.Redis.URL != ""))
	return cfg, l, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap(ctx, cfg, l)
			if err != nil {
				return err
			}
			defer app.cleanup()

			return app.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return runMigrations(cmd.Context(), db.DB, args[0], l)
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		file                  string
		sheet                 string
		targetLanguageID      int64
		translationLanguageID int64
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import vocabulary and translations from an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if targetLanguageID == 0 {
				targetLanguageID = cfg.Learning.DefaultTargetLanguageID
			}
			if translationLanguageID == 0 {
				translationLanguageID = cfg.Learning.DefaultTranslationLanguageID
			}

			db, err := setupAppDatabase(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			importCfg := importer.DefaultConfig(targetLanguageID, translationLanguageID)
			importCfg.Sheet = sheet

			result, err := importer.New(postgres.NewStore(db, l), l).ImportFile(cmd.Context(), file, importCfg)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return printImportResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the .xlsx workbook")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default: first sheet)")
	cmd.Flags().Int64Var(&targetLanguageID, "target-language", 0, "Target language id (default from config)")
	cmd.Flags().Int64Var(&translationLanguageID, "translation-language", 0, "Translation language id (default from config)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printImportResult(cmd *cobra.Command, r *importer.Result) error {
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "processed %d rows: %d items created, %d translations, %d skipped\n",
		r.Processed, r.Created, r.Translations, r.Skipped); err != nil {
		return err
	}
	for _, msg := range r.Errors {
		if _, err := fmt.Fprintln(out, "  "+msg); err != nil {
			return err
		}
	}
	return nil
}

// bootstrap opens every external dependency and assembles the application.
func bootstrap(ctx context.Context, cfg *config.Config, l *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(ctx, cfg, l)
	if err != nil {
		return nil, err
	}

	st, redisClient, err := setupStore(ctx, cfg, db, l)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApplication(cfg, l, st, metrics.NewCollector())
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = db.Close()
		return nil, err
	}
	app.db = db
	app.redis = redisClient
	return app, nil
}
