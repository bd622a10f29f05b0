package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "lexis:tr:"

// cachedTranslation is the JSON value stored per key. Found is false for a
// remembered miss.
type cachedTranslation struct {
	Text  string `json:"text,omitempty"`
	Found bool   `json:"found"`
}

// CachedTranslationStore decorates a store.TranslationStore with a Redis
// read-through cache for Get. Distractors are randomised per call and always
// go to the underlying store.
type CachedTranslationStore struct {
	next    store.TranslationStore
	client  goredis.Cmdable
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger

	// pending is set inside a transaction. Keys written there are
	// invalidated after commit and bypass the cache until then.
	pending *pendingKeys
}

// pendingKeys collects the keys a transaction wrote.
type pendingKeys struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newPendingKeys() *pendingKeys {
	return &pendingKeys{keys: map[string]struct{}{}}
}

func (p *pendingKeys) add(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[key] = struct{}{}
}

func (p *pendingKeys) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.keys[key]
	return ok
}

func (p *pendingKeys) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.keys))
	for key := range p.keys {
		out = append(out, key)
	}
	return out
}

// Ensure CachedTranslationStore implements store.TranslationStore interface
var _ store.TranslationStore = (*CachedTranslationStore)(nil)

// NewCachedTranslationStore wraps next. A zero timeout leaves cache calls
// bounded only by the caller's context.
func NewCachedTranslationStore(
	next store.TranslationStore,
	client goredis.Cmdable,
	ttl, timeout time.Duration,
	logger *slog.Logger,
) *CachedTranslationStore {
	if next == nil {
		panic("next cannot be nil")
	}
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedTranslationStore{
		next:    next,
		client:  client,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "translation_cache")),
	}
}

// Key returns the cache key for one translation.
func Key(itemID, languageID int64) string {
	return fmt.Sprintf("%s%d:%d", KeyPrefix, itemID, languageID)
}

func (c *CachedTranslationStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Get implements store.TranslationStore.Get
func (c *CachedTranslationStore) Get(ctx context.Context, itemID, languageID int64) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)
	key := Key(itemID, languageID)

	if c.pending != nil && c.pending.has(key) {
		return c.next.Get(ctx, itemID, languageID)
	}

	opCtx, cancel := c.opContext(ctx)
	raw, err := c.client.Get(opCtx, key).Bytes()
	cancel()

	switch {
	case err == nil:
		var entry cachedTranslation
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			if !entry.Found {
				return "", store.ErrTranslationNotFound
			}
			return entry.Text, nil
		}
		log.Warn("discarding malformed cache entry", slog.String("key", key))
	case errors.Is(err, goredis.Nil):
	default:
		log.Warn("translation cache read failed, using store",
			slog.String("error", err.Error()),
			slog.String("key", key))
	}

	text, err := c.next.Get(ctx, itemID, languageID)
	switch {
	case err == nil:
		c.put(ctx, key, cachedTranslation{Text: text, Found: true})
	case errors.Is(err, store.ErrTranslationNotFound):
		c.put(ctx, key, cachedTranslation{Found: false})
	}
	return text, err
}

func (c *CachedTranslationStore) put(ctx context.Context, key string, entry cachedTranslation) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	if err := c.client.Set(opCtx, key, raw, c.ttl).Err(); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("translation cache write failed",
			slog.String("error", err.Error()),
			slog.String("key", key))
	}
}

// Distractors implements store.TranslationStore.Distractors
func (c *CachedTranslationStore) Distractors(
	ctx context.Context,
	itemID int64,
	tier int,
	languageID int64,
	count int,
) ([]string, error) {
	return c.next.Distractors(ctx, itemID, tier, languageID, count)
}

// Upsert implements store.TranslationStore.Upsert
// The cached entry is dropped after a successful write, or after commit when
// the write runs inside a transaction.
func (c *CachedTranslationStore) Upsert(ctx context.Context, t *domain.Translation) error {
	if err := c.next.Upsert(ctx, t); err != nil {
		return err
	}

	key := Key(t.ItemID, t.LanguageID)
	if c.pending != nil {
		c.pending.add(key)
		return nil
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *CachedTranslationStore) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	if err := c.client.Del(opCtx, keys...).Err(); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("translation cache invalidation failed",
			slog.String("error", err.Error()),
			slog.Int("keys", len(keys)))
	}
}

// Store wraps a store.Store so that translation reads go through the cache,
// including inside transactions.
type Store struct {
	store.Store
	client  goredis.Cmdable
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	cached  *CachedTranslationStore
}

// Ensure Store implements store.Store interface
var _ store.Store = (*Store)(nil)

// WrapStore returns s with a cached TranslationStore.
func WrapStore(s store.Store, client goredis.Cmdable, ttl, timeout time.Duration, logger *slog.Logger) *Store {
	return &Store{
		Store:   s,
		client:  client,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
		cached:  NewCachedTranslationStore(s.Translations(), client, ttl, timeout, logger),
	}
}

// Translations implements store.Store.
func (s *Store) Translations() store.TranslationStore { return s.cached }

// WithinTx implements store.Store.
// Translations written inside fn are invalidated once the outermost
// transaction commits; a rollback leaves the cache untouched.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	pending := s.cached.pending
	outermost := pending == nil
	if outermost {
		pending = newPendingKeys()
	}

	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		txStore := WrapStore(tx, s.client, s.ttl, s.timeout, s.logger)
		txStore.cached.pending = pending
		return fn(ctx, txStore)
	})
	if err != nil {
		return err
	}

	if outermost {
		s.cached.invalidate(ctx, pending.list()...)
	}
	return nil
}
