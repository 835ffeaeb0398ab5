package vtestd

import "github.com/go-vtest/vtestd/internal/constants"

// Re-exported constants for callers that only need the root package.
const (
	MaxSyncQueueCount     = constants.MaxSyncQueueCount
	MaxContextNameLength  = constants.MaxContextNameLength
	DefaultMaxLength      = constants.DefaultMaxLength
)

// DefaultExpiredWaitSweepInterval is the default period for the context
// manager's background sweep of expired SyncWaits (see §9).
const DefaultExpiredWaitSweepInterval = constants.DefaultExpiredWaitSweepInterval
