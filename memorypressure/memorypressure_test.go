package memorypressure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserveLevelThresholds(t *testing.T) {
	cfg := DefaultConfig()

	normal := Observe(500, 1000, cfg)
	assert.Equal(t, Normal, normal.Level)

	warning := Observe(850, 1000, cfg)
	assert.Equal(t, Warning, warning.Level)

	critical := Observe(960, 1000, cfg)
	assert.Equal(t, Critical, critical.Level)
}

func TestObserveWithZeroTotalIsNormal(t *testing.T) {
	s := Observe(100, 0, DefaultConfig())
	assert.Equal(t, Normal, s.Level)
	assert.Equal(t, 0.0, s.UsagePercent)
}

func TestCanInsertBlocksOnlyWhenCriticalAndPolicyEnabled(t *testing.T) {
	cfg := DefaultConfig()
	critical := Observe(960, 1000, cfg)
	assert.False(t, cfg.CanInsert(critical))

	cfg.BlockInsertsOnCritical = false
	assert.True(t, cfg.CanInsert(critical))

	warning := Observe(850, 1000, cfg)
	assert.True(t, cfg.CanInsert(warning))
}
