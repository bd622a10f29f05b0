// Package memstore provides an in-memory implementation of the store
// interfaces for unit tests. It follows the same filter, ordering and
// tie-breaking rules as the PostgreSQL implementation, with a seeded random
// source so tests are reproducible.
package memstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/store"
)

// Operation names accepted by FailOn.
const (
	OpFindItems           = "items.find"
	OpCreateItem          = "items.create"
	OpGetProgress         = "progress.get"
	OpUpsertProgress      = "progress.upsert"
	OpCountProgress       = "progress.count"
	OpRecentSuccessRate   = "progress.recent_success_rate"
	OpSessionSuccessRates = "progress.session_success_rates"
	OpLastSeen            = "progress.last_seen_outside"
	OpGetLearner          = "learners.get"
	OpLockLearner         = "learners.get_for_update"
	OpSetLevel            = "learners.set_level"
	OpSetStreaks          = "learners.set_streaks"
	OpSetPatchFlag        = "learners.set_patch_flag"
	OpTouch               = "learners.touch"
	OpGetTranslation      = "translations.get"
	OpDistractors         = "translations.distractors"
)

type progressKey struct {
	learnerLanguageID int64
	itemID            int64
}

type translationKey struct {
	itemID     int64
	languageID int64
}

type data struct {
	items         map[int64]domain.VocabularyItem
	translations  map[translationKey]string
	progress      map[progressKey]domain.ProgressRecord
	learners      map[int64]domain.LearnerLanguageState
	nextItemID    int64
	nextLearnerID int64
}

func (d *data) clone() *data {
	c := &data{
		items:         make(map[int64]domain.VocabularyItem, len(d.items)),
		translations:  make(map[translationKey]string, len(d.translations)),
		progress:      make(map[progressKey]domain.ProgressRecord, len(d.progress)),
		learners:      make(map[int64]domain.LearnerLanguageState, len(d.learners)),
		nextItemID:    d.nextItemID,
		nextLearnerID: d.nextLearnerID,
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.translations {
		c.translations[k] = v
	}
	for k, v := range d.progress {
		c.progress[k] = v
	}
	for k, v := range d.learners {
		c.learners[k] = v
	}
	return c
}

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	rng      *rand.Rand
	data     *data
	failures map[string]error
	calls    map[string]int
}

var _ store.Store = (*Store)(nil)

// New creates an empty store whose random tie-breaks derive from seed.
func New(seed uint64) *Store {
	return &Store{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		data: &data{
			items:         map[int64]domain.VocabularyItem{},
			translations:  map[translationKey]string{},
			progress:      map[progressKey]domain.ProgressRecord{},
			learners:      map[int64]domain.LearnerLanguageState{},
			nextItemID:    1,
			nextLearnerID: 1,
		},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter locks the store and records the call; it returns the injected failure, if any.
func (s *Store) enter(op string) error {
	s.mu.Lock()
	s.calls[op]++
	return s.failures[op]
}

// Items implements store.Store.
func (s *Store) Items() store.ItemStore { return itemStore{s} }

// Progress implements store.Store.
func (s *Store) Progress() store.ProgressStore { return progressStore{s} }

// Learners implements store.Store.
func (s *Store) Learners() store.LearnerStore { return learnerStore{s} }

// Translations implements store.Store.
func (s *Store) Translations() store.TranslationStore { return translationStore{s} }

// WithinTx serializes transactions and restores the previous contents when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// AddItem inserts an item with an optional translation per language and returns its id.
func (s *Store) AddItem(text string, targetLanguageID int64, tier int, rank *int, translations map[int64]string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.data.nextItemID
	s.data.nextItemID++
	s.data.items[id] = domain.VocabularyItem{
		ID:               id,
		Text:             text,
		TargetLanguageID: targetLanguageID,
		Tier:             tier,
		FrequencyRank:    rank,
	}
	for lang, tr := range translations {
		s.data.translations[translationKey{id, lang}] = tr
	}
	return id
}

// PutProgress stores a record verbatim.
func (s *Store) PutProgress(p domain.ProgressRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.progress[progressKey{p.LearnerLanguageID, p.ItemID}] = p
}

// PutLearner stores a learner state verbatim, assigning an id when it has none.
func (s *Store) PutLearner(state domain.LearnerLanguageState) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.ID == 0 {
		state.ID = s.data.nextLearnerID
		s.data.nextLearnerID++
	}
	s.data.learners[state.ID] = state
	return state.ID
}

// Learner returns a copy of the stored state.
func (s *Store) Learner(id int64) (domain.LearnerLanguageState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.data.learners[id]
	return state, ok
}

// ProgressFor returns a copy of the stored record.
func (s *Store) ProgressFor(learnerLanguageID, itemID int64) (domain.ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.progress[progressKey{learnerLanguageID, itemID}]
	return p, ok
}

type itemStore struct{ s *Store }

func (i itemStore) FindItems(ctx context.Context, q store.ItemQuery) ([]domain.VocabularyItem, error) {
	s := i.s
	if err := s.enter(OpFindItems); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	if q.Limit <= 0 {
		return []domain.VocabularyItem{}, nil
	}

	excluded := make(map[int64]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	type candidate struct {
		item     domain.VocabularyItem
		progress *domain.ProgressRecord
	}

	ids := make([]int64, 0, len(s.data.items))
	for id := range s.data.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	var matches []candidate
	for _, id := range ids {
		item := s.data.items[id]
		if excluded[id] {
			continue
		}
		if q.TargetLanguageID != 0 && item.TargetLanguageID != q.TargetLanguageID {
			continue
		}
		if q.Tier != 0 && item.Tier != q.Tier {
			continue
		}

		var p *domain.ProgressRecord
		if rec, ok := s.data.progress[progressKey{q.LearnerLanguageID, id}]; ok {
			p = &rec
		}
		if !matchesProgress(q, p) {
			continue
		}
		matches = append(matches, candidate{item: item, progress: p})
	}

	// Shuffle first so the stable sort leaves ties in random order
	s.rng.Shuffle(len(matches), func(a, b int) { matches[a], matches[b] = matches[b], matches[a] })
	sort.SliceStable(matches, func(a, b int) bool {
		return less(q.Order, matches[a].item, matches[a].progress, matches[b].item, matches[b].progress)
	})

	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	out := make([]domain.VocabularyItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.item)
	}
	return out, nil
}

func matchesProgress(q store.ItemQuery, p *domain.ProgressRecord) bool {
	switch q.Progress {
	case store.Unseen:
		return p == nil
	case store.UnseenOrStale:
		if p == nil {
			return true
		}
		return q.SeenBefore != nil && p.LastSeen.Before(*q.SeenBefore)
	case store.Seen:
		if p == nil {
			return false
		}
		if q.SeenBefore != nil && !p.LastSeen.Before(*q.SeenBefore) {
			return false
		}
		if !q.HasBand() {
			return true
		}
		inBand := (q.MinSuccessRate == nil || p.SuccessRate >= *q.MinSuccessRate) &&
			(q.MaxSuccessRate == nil || p.SuccessRate < *q.MaxSuccessRate)
		return inBand || (q.OrLastAnswerWrong && p.LastAnswerWrong)
	default:
		return true
	}
}

func less(order store.ItemOrder, a domain.VocabularyItem, ap *domain.ProgressRecord, b domain.VocabularyItem, bp *domain.ProgressRecord) bool {
	switch order {
	case store.OrderSuccessRate:
		return rateOf(ap) < rateOf(bp)
	case store.OrderLastSeen:
		return seenOf(ap).Before(seenOf(bp))
	case store.OrderRecentlySeen:
		return seenOf(ap).After(seenOf(bp))
	case store.OrderFrequency:
		return rankOf(a) < rankOf(b)
	default:
		return false
	}
}

func rateOf(p *domain.ProgressRecord) float64 {
	if p == nil {
		return 0
	}
	return p.SuccessRate
}

func seenOf(p *domain.ProgressRecord) time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.LastSeen
}

func rankOf(item domain.VocabularyItem) int {
	if item.FrequencyRank == nil {
		return int(^uint(0) >> 1)
	}
	return *item.FrequencyRank
}

func (i itemStore) Create(ctx context.Context, item *domain.VocabularyItem) error {
	s := i.s
	if err := s.enter(OpCreateItem); err != nil {
		s.mu.Unlock()
		return err
	}
	defer s.mu.Unlock()

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	for _, existing := range s.data.items {
		if existing.TargetLanguageID == item.TargetLanguageID && existing.Text == item.Text {
			return store.ErrItemExists
		}
	}
	item.ID = s.data.nextItemID
	s.data.nextItemID++
	s.data.items[item.ID] = *item
	return nil
}

func (i itemStore) GetByText(ctx context.Context, targetLanguageID int64, text string) (*domain.VocabularyItem, error) {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.data.items {
		if item.TargetLanguageID == targetLanguageID && item.Text == text {
			found := item
			return &found, nil
		}
	}
	return nil, store.ErrItemNotFound
}

type progressStore struct{ s *Store }

func (p progressStore) Get(ctx context.Context, learnerLanguageID, itemID int64) (*domain.ProgressRecord, error) {
	s := p.s
	if err := s.enter(OpGetProgress); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	rec, ok := s.data.progress[progressKey{learnerLanguageID, itemID}]
	if !ok {
		return nil, store.ErrProgressNotFound
	}
	return &rec, nil
}

func (p progressStore) Upsert(
	ctx context.Context,
	learnerLanguageID, itemID int64,
	correct bool,
	sessionID string,
	at time.Time,
) (*domain.ProgressRecord, error) {
	s := p.s
	if err := s.enter(OpUpsertProgress); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	if _, ok := s.data.items[itemID]; !ok {
		return nil, fmt.Errorf("%w: unknown item %d", store.ErrInvalidEntity, itemID)
	}

	key := progressKey{learnerLanguageID, itemID}
	rec, ok := s.data.progress[key]
	if !ok {
		rec = *domain.NewProgressRecord(learnerLanguageID, itemID)
	}
	rec.RecordAnswer(correct, sessionID, at)
	s.data.progress[key] = rec
	return &rec, nil
}

func (p progressStore) Count(ctx context.Context, learnerLanguageID int64) (int, error) {
	s := p.s
	if err := s.enter(OpCountProgress); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	defer s.mu.Unlock()

	n := 0
	for key := range s.data.progress {
		if key.learnerLanguageID == learnerLanguageID {
			n++
		}
	}
	return n, nil
}

func (p progressStore) CountSession(ctx context.Context, learnerLanguageID int64, sessionID string) (int, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, rec := range s.data.progress {
		if key.learnerLanguageID == learnerLanguageID && rec.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (p progressStore) records(learnerLanguageID int64) []domain.ProgressRecord {
	var out []domain.ProgressRecord
	for key, rec := range p.s.data.progress {
		if key.learnerLanguageID == learnerLanguageID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].LastSeen.Equal(out[b].LastSeen) {
			return out[a].ItemID < out[b].ItemID
		}
		return out[a].LastSeen.After(out[b].LastSeen)
	})
	return out
}

func (p progressStore) RecentSuccessRate(ctx context.Context, learnerLanguageID int64, sampleSize int) (float64, int, error) {
	s := p.s
	if err := s.enter(OpRecentSuccessRate); err != nil {
		s.mu.Unlock()
		return 0, 0, err
	}
	defer s.mu.Unlock()

	recs := p.records(learnerLanguageID)
	if len(recs) > sampleSize {
		recs = recs[:sampleSize]
	}
	successes, repeats := 0, 0
	for _, rec := range recs {
		successes += rec.Successes
		repeats += rec.Repeats
	}
	return domain.SuccessRate(successes, repeats), len(recs), nil
}

func (p progressStore) SessionSuccessRates(ctx context.Context, learnerLanguageID int64, sessionCount int) ([]float64, error) {
	s := p.s
	if err := s.enter(OpSessionSuccessRates); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	type session struct {
		id        string
		successes int
		repeats   int
		latest    time.Time
	}
	byID := map[string]*session{}
	for _, rec := range p.records(learnerLanguageID) {
		if rec.SessionID == "" {
			continue
		}
		sess, ok := byID[rec.SessionID]
		if !ok {
			sess = &session{id: rec.SessionID}
			byID[rec.SessionID] = sess
		}
		sess.successes += rec.Successes
		sess.repeats += rec.Repeats
		if rec.LastSeen.After(sess.latest) {
			sess.latest = rec.LastSeen
		}
	}

	sessions := make([]*session, 0, len(byID))
	for _, sess := range byID {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(a, b int) bool {
		if sessions[a].latest.Equal(sessions[b].latest) {
			return strings.Compare(sessions[a].id, sessions[b].id) < 0
		}
		return sessions[a].latest.After(sessions[b].latest)
	})
	if len(sessions) > sessionCount {
		sessions = sessions[:sessionCount]
	}

	rates := make([]float64, 0, len(sessions))
	for _, sess := range sessions {
		rates = append(rates, domain.SuccessRate(sess.successes, sess.repeats))
	}
	return rates, nil
}

func (p progressStore) LastSeenOutside(ctx context.Context, learnerLanguageID int64, sessionID string) (*time.Time, error) {
	s := p.s
	if err := s.enter(OpLastSeen); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	for _, rec := range p.records(learnerLanguageID) {
		if rec.SessionID != sessionID {
			last := rec.LastSeen.UTC()
			return &last, nil
		}
	}
	return nil, nil
}

type learnerStore struct{ s *Store }

func (l learnerStore) GetOrCreate(ctx context.Context, learnerID, targetLanguageID int64, start domain.Level) (*domain.LearnerLanguageState, error) {
	s := l.s
	if err := s.enter(OpGetLearner); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	for _, state := range s.data.learners {
		if state.LearnerID == learnerID && state.TargetLanguageID == targetLanguageID {
			found := state
			return &found, nil
		}
	}

	state, err := domain.NewLearnerLanguageState(learnerID, targetLanguageID, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	state.ID = s.data.nextLearnerID
	s.data.nextLearnerID++
	s.data.learners[state.ID] = *state
	return state, nil
}

func (l learnerStore) Get(ctx context.Context, learnerID, targetLanguageID int64) (*domain.LearnerLanguageState, error) {
	s := l.s
	if err := s.enter(OpGetLearner); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	for _, state := range s.data.learners {
		if state.LearnerID == learnerID && state.TargetLanguageID == targetLanguageID {
			found := state
			return &found, nil
		}
	}
	return nil, store.ErrLearnerStateNotFound
}

func (l learnerStore) GetForUpdate(ctx context.Context, id int64) (*domain.LearnerLanguageState, error) {
	s := l.s
	if err := s.enter(OpLockLearner); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	state, ok := s.data.learners[id]
	if !ok {
		return nil, store.ErrLearnerStateNotFound
	}
	return &state, nil
}

func (l learnerStore) update(op string, id int64, fn func(*domain.LearnerLanguageState)) error {
	s := l.s
	if err := s.enter(op); err != nil {
		s.mu.Unlock()
		return err
	}
	defer s.mu.Unlock()

	state, ok := s.data.learners[id]
	if !ok {
		return store.ErrLearnerStateNotFound
	}
	fn(&state)
	state.UpdatedAt = time.Now().UTC()
	s.data.learners[id] = state
	return nil
}

func (l learnerStore) SetLevel(ctx context.Context, id int64, level domain.Level, changedAt time.Time) error {
	return l.update(OpSetLevel, id, func(state *domain.LearnerLanguageState) {
		state.Level = level
		at := changedAt.UTC()
		state.LevelChangedAt = &at
	})
}

func (l learnerStore) SetStreaks(ctx context.Context, id int64, promotion, demotion int) error {
	return l.update(OpSetStreaks, id, func(state *domain.LearnerLanguageState) {
		state.PromotionStreak = promotion
		state.DemotionStreak = demotion
	})
}

func (l learnerStore) SetPatchFlag(ctx context.Context, id int64, patch bool, freezeRemaining int) error {
	return l.update(OpSetPatchFlag, id, func(state *domain.LearnerLanguageState) {
		state.PatchBoost = patch
		state.FreezeRemaining = freezeRemaining
	})
}

func (l learnerStore) Touch(ctx context.Context, id int64, sessionID string, at time.Time) error {
	return l.update(OpTouch, id, func(state *domain.LearnerLanguageState) {
		t := at.UTC()
		state.LastActiveAt = &t
		state.LastEvaluatedSessionID = sessionID
	})
}

type translationStore struct{ s *Store }

func (t translationStore) Get(ctx context.Context, itemID, languageID int64) (string, error) {
	s := t.s
	if err := s.enter(OpGetTranslation); err != nil {
		s.mu.Unlock()
		return "", err
	}
	defer s.mu.Unlock()

	text, ok := s.data.translations[translationKey{itemID, languageID}]
	if !ok {
		return "", store.ErrTranslationNotFound
	}
	return text, nil
}

func (t translationStore) Distractors(ctx context.Context, itemID int64, tier int, languageID int64, count int) ([]string, error) {
	s := t.s
	if err := s.enter(OpDistractors); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.mu.Unlock()

	item, ok := s.data.items[itemID]
	if !ok || count <= 0 {
		return []string{}, nil
	}
	correct := s.data.translations[translationKey{itemID, languageID}]

	type candidate struct {
		text     string
		distance int
	}
	best := map[string]int{}

	ids := make([]int64, 0, len(s.data.items))
	for id := range s.data.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	for _, id := range ids {
		other := s.data.items[id]
		if id == itemID || other.TargetLanguageID != item.TargetLanguageID {
			continue
		}
		text, ok := s.data.translations[translationKey{id, languageID}]
		if !ok || text == correct {
			continue
		}
		distance := other.Tier - tier
		if distance < 0 {
			distance = -distance
		}
		if d, dup := best[text]; !dup || distance < d {
			best[text] = distance
		}
	}

	candidates := make([]candidate, 0, len(best))
	for text, distance := range best {
		candidates = append(candidates, candidate{text: text, distance: distance})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].text < candidates[b].text })

	s.rng.Shuffle(len(candidates), func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].distance < candidates[b].distance })

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.text)
	}
	return out, nil
}

func (t translationStore) Upsert(ctx context.Context, tr *domain.Translation) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := tr.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if _, ok := s.data.items[tr.ItemID]; !ok {
		return fmt.Errorf("%w: unknown item %d", store.ErrInvalidEntity, tr.ItemID)
	}
	s.data.translations[translationKey{tr.ItemID, tr.LanguageID}] = tr.Text
	return nil
}
