package quota

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "quota.json"), []Limit{
		{Provider: "groq", Period: dailyPeriod, Max: 100},
		{Provider: "local", Period: dailyPeriod, Max: 0},
	}, 80, 95)
	return m
}

func TestCanUse_BelowThreshold(t *testing.T) {
	m := newTestManager(t)
	assert.True(t, m.CanUse("groq"))
}

func TestUse_BlocksAtThreshold(t *testing.T) {
	m := newTestManager(t)
	ok := m.Use("groq", 94)
	require.True(t, ok)
	assert.True(t, m.CanUse("groq"))

	// crossing 95% blocks and does not commit the increment.
	ok = m.Use("groq", 2)
	assert.False(t, ok)
	assert.False(t, m.CanUse("groq"))
	assert.Equal(t, 94, m.Status("groq").Used)
}

func TestUnlimitedProviderAlwaysUsable(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < 1000; i++ {
		assert.True(t, m.Use("local", 1))
	}
	assert.True(t, m.CanUse("local"))
}

func TestMonotonicityWithinPeriod(t *testing.T) {
	m := newTestManager(t)
	last := 0
	for i := 0; i < 10; i++ {
		m.Use("groq", 1)
		used := m.Status("groq").Used
		assert.GreaterOrEqual(t, used, last)
		last = used
	}
}

func TestAutoResetAcrossDayBoundary(t *testing.T) {
	m := newTestManager(t)
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return day1 }
	m.Use("groq", 50)
	assert.Equal(t, 50, m.Status("groq").Used)

	day2 := day1.Add(24 * time.Hour)
	m.now = func() time.Time { return day2 }
	assert.Equal(t, 0, m.Status("groq").Used)
	assert.True(t, m.CanUse("groq"))
}

func TestMissingFileTreatedAsZeroUsage(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "does-not-exist.json"), []Limit{
		{Provider: "groq", Period: dailyPeriod, Max: 10},
	}, 80, 95)
	assert.Equal(t, 0, m.Status("groq").Used)
}

func TestCorruptFileTreatedAsZeroUsage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quota.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))
	m := New(path, []Limit{{Provider: "groq", Period: dailyPeriod, Max: 10}}, 80, 95)
	assert.Equal(t, 0, m.Status("groq").Used)
}
