package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/lexis-api/internal/config"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/evaluation"
	"github.com/phrazzld/lexis-api/internal/platform/metrics"
	"github.com/phrazzld/lexis-api/internal/selection"
	"github.com/phrazzld/lexis-api/internal/service/practice"
	"github.com/phrazzld/lexis-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db and redis are nil when the application runs on an injected store.
	db    *sqlx.DB
	redis *goredis.Client

	store           store.Store
	metrics         *metrics.Collector
	practiceService practice.Service
}

// newApplication wires the selectors, the evaluator and the practice
// service on top of st.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	st store.Store,
	collector *metrics.Collector,
) (*application, error) {
	selectionParams := selection.ParamsFromConfig(cfg.Selection, cfg.Onboarding)
	if err := selectionParams.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection settings: %w", err)
	}
	evaluationParams := evaluation.ParamsFromConfig(cfg.Evaluation)
	if err := evaluationParams.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation settings: %w", err)
	}
	startingLevel, err := domain.ParseLevel(cfg.Learning.StartingLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid starting level: %w", err)
	}

	sources := selection.SourcesFrom(st)
	onboarding := selection.NewOnboardingSelector(sources, selectionParams,
		selection.WithLogger(logger),
		selection.WithMetrics(collector))
	selector := selection.NewItemSelector(sources, selectionParams,
		selection.WithLogger(logger),
		selection.WithMetrics(collector))
	evaluator := evaluation.NewEvaluator(st, evaluationParams,
		evaluation.WithLogger(logger),
		evaluation.WithMetrics(collector))

	app := &application{
		config:          cfg,
		logger:          logger,
		store:           st,
		metrics:         collector,
		practiceService: practice.NewService(st, onboarding, selector, evaluator, startingLevel, logger),
	}

	logger.Info("application initialized",
		slog.String("starting_level", startingLevel.String()),
		slog.Int("batch_size", selectionParams.BatchSize))
	return app, nil
}

// Run serves HTTP until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup closes the external connections.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", slog.Any("error", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.Any("error", err))
		}
	}
	app.logger.Info("application shutdown completed")
}
