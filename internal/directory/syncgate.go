package directory

import "time"

// DefaultSyncInterval is how long a completed directory sync stays fresh.
const DefaultSyncInterval = 24 * time.Hour

// SyncGate decides whether a directory sync is due. It carries no state of
// its own; the caller passes in the last completed run, so the decision stays
// testable and safe under concurrent triggers.
type SyncGate struct {
	Interval time.Duration
}

// Due reports whether a sync should run at now given the last completed run.
// A zero lastRun means no sync has ever completed.
func (g SyncGate) Due(lastRun, now time.Time) bool {
	interval := g.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun) >= interval
}
