package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Learning   LearningConfig   `mapstructure:"learning" validate:"required"`
	Selection  SelectionConfig  `mapstructure:"selection" validate:"required"`
	Onboarding OnboardingConfig `mapstructure:"onboarding" validate:"required"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" validate:"gte=0"` // minutes
}

// RedisConfig configures the optional translation cache.
// An empty URL disables caching.
type RedisConfig struct {
	URL              string `mapstructure:"url" validate:"omitempty,url"`
	TranslationTTL   int    `mapstructure:"translation_ttl" validate:"gte=0"`   // minutes
	OperationTimeout int    `mapstructure:"operation_timeout" validate:"gte=0"` // milliseconds
}

// LearningConfig holds learner defaults applied when a learner first
// practices a target language.
type LearningConfig struct {
	StartingLevel                string `mapstructure:"starting_level" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
	DefaultTargetLanguageID      int64  `mapstructure:"default_target_language_id" validate:"required,gt=0"`
	DefaultTranslationLanguageID int64  `mapstructure:"default_translation_language_id" validate:"required,gt=0"`
}

// SelectionConfig holds every constant used to compose a practice batch.
// Success rates and thresholds are percentages in [0, 100].
type SelectionConfig struct {
	BatchSize       int `mapstructure:"batch_size" validate:"required,gt=0,lte=100"`
	DistractorCount int `mapstructure:"distractor_count" validate:"gte=0,lte=10"`

	WeakThreshold  float64 `mapstructure:"weak_threshold" validate:"gte=0,lte=100"`
	WeakFallback   float64 `mapstructure:"weak_fallback" validate:"gte=0,lte=100"`
	WeakLastResort float64 `mapstructure:"weak_last_resort" validate:"gte=0,lte=100"`
	WeakQuota      int     `mapstructure:"weak_quota" validate:"gte=0"`
	WeakMinimum    int     `mapstructure:"weak_minimum" validate:"gte=0"`
	WeakPool       int     `mapstructure:"weak_pool" validate:"gte=0"`

	ReviewThreshold float64 `mapstructure:"review_threshold" validate:"gte=0,lte=100"`
	ReviewFallback  float64 `mapstructure:"review_fallback" validate:"gte=0,lte=100"`
	ReviewQuota     int     `mapstructure:"review_quota" validate:"gte=0"`
	ReviewPool      int     `mapstructure:"review_pool" validate:"gte=0"`
	ReviewMinimum   int     `mapstructure:"review_minimum" validate:"gte=0"`

	StretchQuota int `mapstructure:"stretch_quota" validate:"gte=0"`
	StretchPool  int `mapstructure:"stretch_pool" validate:"gte=0"`

	PatchQuota        int `mapstructure:"patch_quota" validate:"gte=0"`
	PatchBoostedQuota int `mapstructure:"patch_boosted_quota" validate:"gte=0"`

	// Recency windows in days.
	ShortRecencyDays  int `mapstructure:"short_recency_days" validate:"gte=0"`
	MediumRecencyDays int `mapstructure:"medium_recency_days" validate:"gte=0"`
	LongRecencyDays   int `mapstructure:"long_recency_days" validate:"gte=0"`

	// Adaptive new-item cap: RecentSampleSize touches feed the rate, which
	// is compared against NewItemBands (ascending) to pick from NewItemCounts.
	RecentSampleSize  int       `mapstructure:"recent_sample_size" validate:"required,gt=0"`
	DefaultRecentRate float64   `mapstructure:"default_recent_rate" validate:"gte=0,lte=100"`
	NewItemBands      []float64 `mapstructure:"new_item_bands" validate:"required,min=1,dive,gte=0,lte=100"`
	NewItemCounts     []int     `mapstructure:"new_item_counts" validate:"required,min=2,dive,gte=0"`
}

// OnboardingConfig holds the fixed compositions of a learner's first two sessions.
type OnboardingConfig struct {
	FirstSessionEasyItems  int `mapstructure:"first_session_easy_items" validate:"gte=0"`
	SecondSessionReinforce int `mapstructure:"second_session_reinforce" validate:"gte=0"`
	SecondSessionNewItems  int `mapstructure:"second_session_new_items" validate:"gte=0"`
}

// EvaluationConfig holds the level state machine constants.
type EvaluationConfig struct {
	Weights            []float64 `mapstructure:"weights" validate:"required,min=1,dive,gt=0"`
	PromotionThreshold float64   `mapstructure:"promotion_threshold" validate:"gte=0,lte=100"`
	DemotionThreshold  float64   `mapstructure:"demotion_threshold" validate:"gte=0,lte=100,ltefield=PromotionThreshold"`
	StreakLength       int       `mapstructure:"streak_length" validate:"required,gt=0"`
	LongBreakDays      int       `mapstructure:"long_break_days" validate:"required,gt=0"`
	FreezeEvaluations  int       `mapstructure:"freeze_evaluations" validate:"gte=0"`
	NeutralRate        float64   `mapstructure:"neutral_rate" validate:"gte=0,lte=100"`
}
