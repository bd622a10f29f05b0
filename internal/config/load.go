package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. LEXIS_SERVER_PORT or LEXIS_SELECTION_BATCH_SIZE.
const EnvPrefix = "LEXIS"

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from config files. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	return load("")
}

// LoadFile behaves like Load but reads the given config file instead of
// searching the working directory. The file must exist.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is empty")
	}
	return load(path)
}

func load(path string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"database.url", "redis.url"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if len(cfg.Selection.NewItemCounts) != len(cfg.Selection.NewItemBands)+1 {
		return nil, fmt.Errorf(
			"validation failed: selection.new_item_counts needs %d entries for %d bands, got %d",
			len(cfg.Selection.NewItemBands)+1,
			len(cfg.Selection.NewItemBands),
			len(cfg.Selection.NewItemCounts),
		)
	}

	return &cfg, nil
}

// setDefaults registers the default value of every key. The learning
// constants mirror the values the product was tuned with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5)

	v.SetDefault("redis.translation_ttl", 24*60)
	v.SetDefault("redis.operation_timeout", 200)

	v.SetDefault("learning.starting_level", "A2")
	v.SetDefault("learning.default_target_language_id", 3)
	v.SetDefault("learning.default_translation_language_id", 2)

	v.SetDefault("selection.batch_size", 10)
	v.SetDefault("selection.distractor_count", 3)
	v.SetDefault("selection.weak_threshold", 50)
	v.SetDefault("selection.weak_fallback", 65)
	v.SetDefault("selection.weak_last_resort", 80)
	v.SetDefault("selection.weak_quota", 3)
	v.SetDefault("selection.weak_minimum", 2)
	v.SetDefault("selection.weak_pool", 5)
	v.SetDefault("selection.review_threshold", 70)
	v.SetDefault("selection.review_fallback", 60)
	v.SetDefault("selection.review_quota", 3)
	v.SetDefault("selection.review_pool", 4)
	v.SetDefault("selection.review_minimum", 2)
	v.SetDefault("selection.stretch_quota", 1)
	v.SetDefault("selection.stretch_pool", 2)
	v.SetDefault("selection.patch_quota", 1)
	v.SetDefault("selection.patch_boosted_quota", 3)
	v.SetDefault("selection.short_recency_days", 1)
	v.SetDefault("selection.medium_recency_days", 7)
	v.SetDefault("selection.long_recency_days", 30)
	v.SetDefault("selection.recent_sample_size", 20)
	v.SetDefault("selection.default_recent_rate", 50)
	v.SetDefault("selection.new_item_bands", []float64{40, 60, 80})
	v.SetDefault("selection.new_item_counts", []int{1, 2, 4, 5})

	v.SetDefault("onboarding.first_session_easy_items", 5)
	v.SetDefault("onboarding.second_session_reinforce", 3)
	v.SetDefault("onboarding.second_session_new_items", 4)

	v.SetDefault("evaluation.weights", []float64{3, 2, 1})
	v.SetDefault("evaluation.promotion_threshold", 85)
	v.SetDefault("evaluation.demotion_threshold", 55)
	v.SetDefault("evaluation.streak_length", 3)
	v.SetDefault("evaluation.long_break_days", 14)
	v.SetDefault("evaluation.freeze_evaluations", 2)
	v.SetDefault("evaluation.neutral_rate", 50)
}
