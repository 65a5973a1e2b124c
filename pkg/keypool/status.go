package keypool

import "time"

// KeyStats is the per-key view exposed by Status. The key value is masked
// to a short prefix so status output is safe to log or display.
type KeyStats struct {
	KeyPrefix         string    `json:"key_prefix"`
	Attempts          int       `json:"attempts"`
	Successes         int       `json:"successes"`
	Failures          int       `json:"failures"`
	Failed            bool      `json:"failed"`
	LastFailureReason string    `json:"last_failure_reason,omitempty"`
	LastUsedAt        time.Time `json:"last_used_at,omitzero"`
}

// DetailedStatus is a point-in-time snapshot of pool health.
type DetailedStatus struct {
	TotalKeys        int        `json:"total_keys"`
	ActiveKeys       int        `json:"active_keys"`
	FailedKeys       int        `json:"failed_keys"`
	CurrentKeyPrefix string     `json:"current_key_prefix"`
	LastResetDate    string     `json:"last_reset_date"`
	UsageStats       []KeyStats `json:"usage_stats"`
}

// Status reports pool health without mutating any state. Safe to call
// concurrently with rotation.
func (p *Pool) Status() DetailedStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := DetailedStatus{
		TotalKeys:     len(p.keys),
		LastResetDate: p.lastReset.Format("2006-01-02"),
	}

	for _, key := range p.keys {
		rec := p.records[key]
		_, isFailed := p.failed[key]
		if isFailed {
			status.FailedKeys++
		} else {
			status.ActiveKeys++
		}

		status.UsageStats = append(status.UsageStats, KeyStats{
			KeyPrefix:         MaskKey(key),
			Attempts:          rec.Attempts,
			Successes:         rec.Successes,
			Failures:          rec.Failures,
			Failed:            isFailed,
			LastFailureReason: rec.LastFailureReason,
			LastUsedAt:        rec.LastUsedAt,
		})
	}

	if len(p.keys) > 0 {
		status.CurrentKeyPrefix = MaskKey(p.keys[p.cursor%len(p.keys)])
	}

	return status
}

// ActiveKeys returns the number of keys currently outside the failure
// registry.
func (p *Pool) ActiveKeys() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.keys) - p.failedInPoolLocked()
}

// MaskKey reduces a credential to a short prefix for display.
func MaskKey(key string) string {
	const prefixLen = 8
	if len(key) <= prefixLen {
		return key + "..."
	}
	return key[:prefixLen] + "..."
}
