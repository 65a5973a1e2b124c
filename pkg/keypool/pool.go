package keypool

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgeo/forgeoagent/internal/observability"
)

var (
	// ErrNotInitialized is returned when the pool is used before Initialize.
	ErrNotInitialized = errors.New("key pool not initialized")

	// ErrNoKeys is returned when Initialize is called with an empty key set.
	ErrNoKeys = errors.New("key pool requires at least one API key")

	// ErrExhausted is returned when every key in the pool is marked failed.
	ErrExhausted = errors.New("all API keys exhausted")
)

// KeyRecord tracks per-key usage and health. Records are created at
// Initialize time and reset only by daily rollover or an explicit reset,
// never deleted.
type KeyRecord struct {
	Attempts          int
	Successes         int
	Failures          int
	LastFailureReason string
	LastUsedAt        time.Time
	Failed            bool
}

// Pool is the process-wide credential pool. All mutation paths hold the
// exclusive lock; Status takes the shared lock. The pool never blocks on
// I/O, so hold times are short even under heavy concurrency.
type Pool struct {
	mu sync.RWMutex

	keys        []string
	records     map[string]*KeyRecord
	failed      map[string]struct{}
	cursor      int
	lastReset   time.Time
	initialized bool

	logger zerolog.Logger
	now    func() time.Time
}

// New creates an uninitialized pool. Initialize must be called with the
// key set before CurrentKey can hand out credentials.
func New(logger zerolog.Logger) *Pool {
	observability.EnsureRegistered()

	return &Pool{
		records: make(map[string]*KeyRecord),
		failed:  make(map[string]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

// Initialize installs the key set. The first call starts all counters at
// zero with the cursor at index 0. Subsequent calls are idempotent with
// respect to already-active keys: existing records and failure state are
// preserved, and keys not seen before are appended in order. Duplicate
// entries collapse onto one record.
func (p *Pool) Initialize(keys []string) error {
	if len(keys) == 0 {
		return ErrNoKeys
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, key := range keys {
		if _, exists := p.records[key]; exists {
			continue
		}
		p.keys = append(p.keys, key)
		p.records[key] = &KeyRecord{}
		added++
	}

	if !p.initialized {
		p.initialized = true
		p.cursor = 0
		p.lastReset = p.now()
	}

	p.logger.Info().
		Int("totalKeys", len(p.keys)).
		Int("addedKeys", added).
		Msg("Key pool initialized")

	p.publishGauges()

	return nil
}

// CurrentKey returns the key at the rotation cursor, skipping keys in the
// failure registry. The daily rollover check runs first, so a pool that
// exhausted all keys yesterday becomes usable again today without operator
// action. Increments the returned key's attempt count.
func (p *Pool) CurrentKey() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return "", ErrNotInitialized
	}

	p.rolloverLocked()

	for offset := 0; offset < len(p.keys); offset++ {
		idx := (p.cursor + offset) % len(p.keys)
		key := p.keys[idx]
		if _, isFailed := p.failed[key]; isFailed {
			continue
		}

		p.cursor = idx
		rec := p.records[key]
		rec.Attempts++
		rec.LastUsedAt = p.now()

		observability.RecordKeyIssued()
		return key, nil
	}

	p.logger.Warn().
		Int("totalKeys", len(p.keys)).
		Msg("Key pool exhausted")
	observability.RecordPoolExhausted()

	return "", ErrExhausted
}

// MarkFailed adds the key to the failure registry and advances the cursor
// so the next CurrentKey call does not re-offer the same key. Marking an
// already-failed key is a no-op apart from logging. Unknown keys are
// recorded defensively but never handed out.
func (p *Pool) MarkFailed(key, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, known := p.records[key]
	if !known {
		rec = &KeyRecord{}
		p.records[key] = rec
	}

	if _, already := p.failed[key]; already {
		p.logger.Debug().
			Str("key", MaskKey(key)).
			Str("reason", reason).
			Msg("Key already marked failed")
		return
	}

	p.failed[key] = struct{}{}
	rec.Failed = true
	rec.Failures++
	rec.LastFailureReason = reason

	if len(p.keys) > 0 {
		p.cursor = (p.cursor + 1) % len(p.keys)
	}

	p.logger.Warn().
		Str("key", MaskKey(key)).
		Str("reason", reason).
		Int("failedKeys", p.failedInPoolLocked()).
		Int("totalKeys", len(p.keys)).
		Msg("Key marked failed")

	observability.RecordKeyFailure()
	p.publishGauges()
}

// MarkSucceeded records a successful call for the key. Bookkeeping only.
func (p *Pool) MarkSucceeded(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rec, ok := p.records[key]; ok {
		rec.Successes++
	}
}

// ForceReset clears the failure registry unconditionally. Usage counters
// are kept. Intended for operator intervention and test isolation.
func (p *Pool) ForceReset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cleared := len(p.failed)
	p.clearFailedLocked()

	p.logger.Info().
		Int("clearedKeys", cleared).
		Msg("Failure registry force-reset")

	observability.RecordPoolReset("forced")
	p.publishGauges()
}

// rolloverLocked clears the failure registry at most once per calendar day,
// on the first access that observes a date change. Dates are compared in
// process-local time.
func (p *Pool) rolloverLocked() {
	nowY, nowM, nowD := p.now().Date()
	lastY, lastM, lastD := p.lastReset.Date()
	if nowY == lastY && nowM == lastM && nowD == lastD {
		return
	}

	cleared := len(p.failed)
	p.clearFailedLocked()
	p.lastReset = p.now()

	if cleared > 0 {
		p.logger.Info().
			Int("clearedKeys", cleared).
			Msg("Daily rollover reset failed keys")
	}

	observability.RecordPoolReset("daily")
	p.publishGauges()
}

func (p *Pool) clearFailedLocked() {
	p.failed = make(map[string]struct{})
	for _, rec := range p.records {
		rec.Failed = false
	}
}

// failedInPoolLocked counts failed keys that belong to the pool, excluding
// defensively-recorded unknown keys.
func (p *Pool) failedInPoolLocked() int {
	count := 0
	for _, key := range p.keys {
		if _, isFailed := p.failed[key]; isFailed {
			count++
		}
	}
	return count
}

func (p *Pool) publishGauges() {
	failed := p.failedInPoolLocked()
	observability.SetKeyPoolState(len(p.keys)-failed, failed)
}
