package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

// Evaluation results reported to Metrics.
const (
	ResultPromoted  = "promoted"
	ResultDemoted   = "demoted"
	ResultUnchanged = "unchanged"
	ResultFrozen    = "frozen"
	ResultDegraded  = "degraded"
	ResultRepeated  = "repeated"
)

// Level change directions reported to Metrics.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Metrics receives one observation per evaluation.
type Metrics interface {
	Evaluated(result string)
	LevelChanged(direction string)
}

type noopMetrics struct{}

func (noopMetrics) Evaluated(string)    {}
func (noopMetrics) LevelChanged(string) {}

// Outcome is what the caller learns from an evaluation.
type Outcome struct {
	// ExtraPatch asks the next batches to widen the patch quota.
	ExtraPatch    bool
	PreviousLevel domain.Level
	Level         domain.Level
	LevelChanged  bool
	WSR           float64
	Frozen        bool
	// Degraded is set when the store failed. The outcome then carries the
	// caller's level, no patch boost and no change.
	Degraded bool
	// Repeated is set when the session was already evaluated. The outcome
	// is read from the stored state and nothing advances.
	Repeated bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the evaluation metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Evaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// Evaluator decides level changes at the end of a session.
type Evaluator struct {
	store   store.Store
	params  Params
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewEvaluator creates an Evaluator. It panics if s is nil.
func NewEvaluator(s store.Store, params Params, opts ...Option) *Evaluator {
	if s == nil {
		panic("store cannot be nil")
	}
	e := &Evaluator{
		store:   s,
		params:  params,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "session_evaluator"))
	return e
}

// Evaluate runs the evaluation of sessionID for the learner-language pair.
// currentLevel is only used for the degraded outcome; the stored level is
// authoritative. Each session is evaluated at most once: a repeated call
// for the last evaluated session reports the stored state.
//
// Evaluate never returns an error. Store failures are logged and produce a
// Degraded outcome, and the transaction is rolled back so no partial state
// is written.
func (e *Evaluator) Evaluate(ctx context.Context, learnerLanguageID int64, sessionID string, currentLevel domain.Level) Outcome {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.Int64("learner_language_id", learnerLanguageID),
		slog.String("session_id", sessionID))

	var out Outcome
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		out, err = e.evaluate(ctx, tx, learnerLanguageID, sessionID)
		return err
	})
	if err != nil {
		level := currentLevel.Clamp()
		log.Error("session evaluation failed, keeping level",
			slog.String("level", level.String()),
			slog.String("error", err.Error()))
		e.metrics.Evaluated(ResultDegraded)
		return Outcome{
			PreviousLevel: level,
			Level:         level,
			WSR:           e.params.NeutralRate,
			Degraded:      true,
		}
	}

	switch {
	case out.Repeated:
		e.metrics.Evaluated(ResultRepeated)
		log.Info("session already evaluated, reporting stored state",
			slog.String("level", out.Level.String()))
		return out
	case out.LevelChanged && out.Level.Tier() > out.PreviousLevel.Tier():
		e.metrics.Evaluated(ResultPromoted)
		e.metrics.LevelChanged(DirectionUp)
		log.Info("level promoted",
			slog.String("from", out.PreviousLevel.String()),
			slog.String("to", out.Level.String()),
			slog.Float64("wsr", out.WSR))
	case out.LevelChanged && out.Level.Tier() < out.PreviousLevel.Tier():
		e.metrics.Evaluated(ResultDemoted)
		e.metrics.LevelChanged(DirectionDown)
		log.Info("level demoted",
			slog.String("from", out.PreviousLevel.String()),
			slog.String("to", out.Level.String()),
			slog.Float64("wsr", out.WSR))
	case out.Frozen:
		e.metrics.Evaluated(ResultFrozen)
	default:
		e.metrics.Evaluated(ResultUnchanged)
	}

	log.Debug("session evaluated",
		slog.Float64("wsr", out.WSR),
		slog.Bool("frozen", out.Frozen),
		slog.Bool("extra_patch", out.ExtraPatch))
	return out
}

func (e *Evaluator) evaluate(ctx context.Context, tx store.Store, learnerLanguageID int64, sessionID string) (Outcome, error) {
	state, err := tx.Learners().GetForUpdate(ctx, learnerLanguageID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lock learner state: %w", err)
	}
	if state.Evaluated(sessionID) {
		return repeatedOutcome(state, e.params.NeutralRate), nil
	}

	rates, err := tx.Progress().SessionSuccessRates(ctx, learnerLanguageID, len(e.params.Weights))
	if err != nil {
		return Outcome{}, fmt.Errorf("session success rates: %w", err)
	}
	wsr := WeightedSuccessRate(rates, e.params.Weights, e.params.NeutralRate)

	// The long-break gap runs from the latest activity before this session:
	// an earlier evaluation or an answer given in a session never finished.
	prior := *state
	lastSeen, err := tx.Progress().LastSeenOutside(ctx, learnerLanguageID, sessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("last activity: %w", err)
	}
	if lastSeen != nil && (prior.LastActiveAt == nil || lastSeen.After(*prior.LastActiveAt)) {
		prior.LastActiveAt = lastSeen
	}

	now := e.now().UTC()
	t := Advance(prior, wsr, now, e.params)
	next := t.State

	if t.LongBreak {
		logger.FromContextOrDefault(ctx, e.logger).Info("long break detected, freezing level",
			slog.Int64("learner_language_id", learnerLanguageID),
			slog.Int("freeze_remaining", next.FreezeRemaining))
	}

	learners := tx.Learners()
	if err := learners.SetStreaks(ctx, state.ID, next.PromotionStreak, next.DemotionStreak); err != nil {
		return Outcome{}, fmt.Errorf("set streaks: %w", err)
	}
	if err := learners.SetPatchFlag(ctx, state.ID, next.PatchBoost, next.FreezeRemaining); err != nil {
		return Outcome{}, fmt.Errorf("set patch flag: %w", err)
	}
	if t.LevelChanged {
		if err := learners.SetLevel(ctx, state.ID, next.Level, now); err != nil {
			return Outcome{}, fmt.Errorf("set level: %w", err)
		}
	}
	if err := learners.Touch(ctx, state.ID, sessionID, now); err != nil {
		return Outcome{}, fmt.Errorf("touch learner: %w", err)
	}

	return Outcome{
		ExtraPatch:    next.PatchBoost,
		PreviousLevel: state.Level.Clamp(),
		Level:         next.Level,
		LevelChanged:  t.LevelChanged,
		WSR:           wsr,
		Frozen:        t.Frozen,
	}, nil
}

// repeatedOutcome describes the last evaluation from the stored state. The
// level before a change is not stored, so PreviousLevel equals Level and no
// WSR is recomputed.
func repeatedOutcome(state *domain.LearnerLanguageState, neutral float64) Outcome {
	level := state.Level.Clamp()
	return Outcome{
		ExtraPatch:    state.PatchBoost,
		PreviousLevel: level,
		Level:         level,
		LevelChanged:  state.LevelChangedAtLastEvaluation(),
		WSR:           neutral,
		Repeated:      true,
	}
}
