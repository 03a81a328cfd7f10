package providers

import "time"

// Timeouts carries configured overrides for external command deadlines,
// by command class. A zero field keeps the provider's built-in default.
type Timeouts struct {
	// List bounds listing commands that stay on the local host.
	List time.Duration
	// Network bounds listing commands that hit package registries.
	Network time.Duration
}

func (t Timeouts) listOr(def time.Duration) time.Duration {
	if t.List > 0 {
		return t.List
	}
	return def
}

func (t Timeouts) networkOr(def time.Duration) time.Duration {
	if t.Network > 0 {
		return t.Network
	}
	return def
}
