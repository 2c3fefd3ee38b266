// Package quota tracks per-provider daily/monthly usage against
// configured limits, blocking a provider once it crosses the block
// threshold and auto-resetting at the period boundary.
package quota

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	dailyPeriod   = "daily"
	monthlyPeriod = "monthly"
)

// Limit describes one provider's quota configuration.
type Limit struct {
	Provider string
	Period   string // "daily" or "monthly"
	Max      int    // 0 means unlimited; can_use/use always return true/succeed
}

// State is a single provider's usage record, persisted to disk.
type State struct {
	Used        int    `json:"used"`
	PeriodBound string `json:"period_bound"` // "2006-01-02" for daily, "2006-01" for monthly
	Blocked     bool   `json:"blocked"`
}

// Status is the read-only view returned by Status.
type Status struct {
	Used      int
	Limit     int
	Remaining int
	Period    string
}

type fileFormat struct {
	States map[string]*State `json:"states"`
}

// Manager is the process-wide quota tracker. It is best-effort durable: a
// lost write loses at most the delta since the last persisted write, and a
// missing or corrupt file is treated as every provider starting at zero
// usage.
type Manager struct {
	mu      sync.Mutex
	path    string
	limits  map[string]Limit
	warnPct int
	blockPct int
	states  map[string]*State
	now     func() time.Time
}

// New builds a Manager backed by a single file at path, for the given
// provider limits. warnPct/blockPct default to 80/95 if zero.
func New(path string, limits []Limit, warnPct, blockPct int) *Manager {
	if warnPct == 0 {
		warnPct = 80
	}
	if blockPct == 0 {
		blockPct = 95
	}
	m := &Manager{
		path:     path,
		limits:   make(map[string]Limit, len(limits)),
		warnPct:  warnPct,
		blockPct: blockPct,
		states:   make(map[string]*State),
		now:      time.Now,
	}
	for _, l := range limits {
		m.limits[l.Provider] = l
	}
	m.load()
	return m
}

func (m *Manager) load() {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return // missing file: every provider starts at zero.
	}
	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return // corrupt file: treated the same as missing.
	}
	if ff.States != nil {
		m.states = ff.States
	}
}

func (m *Manager) persist() {
	_ = os.MkdirAll(filepath.Dir(m.path), 0o755)
	raw, err := json.MarshalIndent(fileFormat{States: m.states}, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(m.path, raw, 0o644)
}

func (m *Manager) periodBound(period string) string {
	switch period {
	case monthlyPeriod:
		return m.now().UTC().Format("2006-01")
	default:
		return m.now().UTC().Format("2006-01-02")
	}
}

// resetIfBoundary clears usage and the blocked flag if the stored period
// has rolled over.
func (m *Manager) resetIfBoundary(provider string, limit Limit) *State {
	st, ok := m.states[provider]
	bound := m.periodBound(limit.Period)
	if !ok || st.PeriodBound != bound {
		st = &State{Used: 0, PeriodBound: bound, Blocked: false}
		m.states[provider] = st
		m.persist()
	}
	return st
}

// CanUse reports whether provider may be called: false if blocked or at
// or above the block threshold percentage of its limit.
func (m *Manager) CanUse(provider string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit, ok := m.limits[provider]
	if !ok || limit.Max <= 0 {
		return true
	}
	st := m.resetIfBoundary(provider, limit)
	if st.Blocked {
		return false
	}
	return percentOf(st.Used, limit.Max) < m.blockPct
}

// Use atomically increments usage by n. If the new total would cross the
// block threshold, the provider is marked blocked and usage is NOT
// incremented past the threshold; Use returns false in that case.
func (m *Manager) Use(provider string, n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit, ok := m.limits[provider]
	if !ok || limit.Max <= 0 {
		return true
	}
	st := m.resetIfBoundary(provider, limit)
	if st.Blocked {
		return false
	}
	newTotal := st.Used + n
	if percentOf(newTotal, limit.Max) >= m.blockPct {
		st.Blocked = true
		m.persist()
		return false
	}
	st.Used = newTotal
	m.persist()
	return true
}

// Status returns the current usage snapshot for provider.
func (m *Manager) Status(provider string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit, ok := m.limits[provider]
	if !ok || limit.Max <= 0 {
		return Status{Limit: -1, Remaining: -1, Period: "unlimited"}
	}
	st := m.resetIfBoundary(provider, limit)
	return Status{
		Used:      st.Used,
		Limit:     limit.Max,
		Remaining: limit.Max - st.Used,
		Period:    limit.Period,
	}
}

func percentOf(used, max int) int {
	if max <= 0 {
		return 0
	}
	return used * 100 / max
}
