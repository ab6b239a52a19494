// Package memorypressure implements EdgeVec's pure observation monitor
// over the engine's own tracked buffer sizes. There is no allocator
// hook here (Go exposes no per-object attribution without cgo, which
// the engine's WASM target disallows), so UsedBytes is a monotone sum
// over every owned buffer's SizeBytes, recomputed on demand from the
// owning Index.
package memorypressure

// Level classifies current usage against the configured thresholds.
type Level int

const (
	Normal Level = iota
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Config holds the usage-percent thresholds separating Normal/Warning/
// Critical, and whether Critical should block inserts.
type Config struct {
	WarningThreshold       float64
	CriticalThreshold      float64
	BlockInsertsOnCritical bool
}

// DefaultConfig returns the default thresholds: warning at 80%,
// critical at 95%, inserts blocked once critical.
func DefaultConfig() Config {
	return Config{
		WarningThreshold:       0.80,
		CriticalThreshold:      0.95,
		BlockInsertsOnCritical: true,
	}
}

// Status is one observation of memory pressure.
type Status struct {
	UsedBytes    int64
	TotalBytes   int64
	UsagePercent float64
	Level        Level
}

// Observe computes a Status from usedBytes/totalBytes under cfg's
// thresholds. totalBytes <= 0 reports UsagePercent 0 and Level Normal,
// since there is nothing meaningful to divide by (an index with an
// unconfigured capacity bound should not spuriously trip Critical).
func Observe(usedBytes, totalBytes int64, cfg Config) Status {
	if totalBytes <= 0 {
		return Status{UsedBytes: usedBytes, TotalBytes: totalBytes, UsagePercent: 0, Level: Normal}
	}
	pct := float64(usedBytes) / float64(totalBytes)
	level := Normal
	switch {
	case pct >= cfg.CriticalThreshold:
		level = Critical
	case pct >= cfg.WarningThreshold:
		level = Warning
	}
	return Status{UsedBytes: usedBytes, TotalBytes: totalBytes, UsagePercent: pct, Level: level}
}

// CanInsert reports whether an insert should proceed under cfg's policy:
// false only when BlockInsertsOnCritical is set and the status is
// Critical.
func (cfg Config) CanInsert(s Status) bool {
	return !(cfg.BlockInsertsOnCritical && s.Level == Critical)
}
