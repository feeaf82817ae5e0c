package ledger

import "time"

const (
	// DefaultTTL is how long a session may go untouched before the sweep removes it.
	DefaultTTL = time.Hour
	// DefaultCleanupInterval is how often the TTL sweep runs.
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultMaxSessions is the session capacity before eviction kicks in.
	DefaultMaxSessions = 1000
)

// Options configures a Store. Zero values fall back to the defaults above,
// except CleanupInterval where a negative value disables the sweeper and
// MaxRecords where zero means unlimited.
type Options struct {
	// Now overrides the clock; tests use it to drive TTL expiry.
	Now             func() time.Time
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	MaxRecords      int
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		TTL:             DefaultTTL,
		CleanupInterval: DefaultCleanupInterval,
		MaxSessions:     DefaultMaxSessions,
	}
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.CleanupInterval == 0 {
		o.CleanupInterval = DefaultCleanupInterval
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = DefaultMaxSessions
	}
	if o.MaxRecords < 0 {
		o.MaxRecords = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
