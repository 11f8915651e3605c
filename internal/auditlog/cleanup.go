package auditlog

import "time"

// CleanupInterval is how often retention cleanup runs.
const CleanupInterval = 1 * time.Hour

// RunCleanupLoop runs cleanupFn immediately, then at CleanupInterval,
// until the stop channel is closed.
func RunCleanupLoop(stop <-chan struct{}, cleanupFn func()) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	cleanupFn()

	for {
		select {
		case <-ticker.C:
			cleanupFn()
		case <-stop:
			return
		}
	}
}
