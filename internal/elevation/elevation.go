// Package elevation locates the privilege-escalation wrapper used to retry
// updates that fail for lack of administrative rights.
package elevation

import (
	"runtime"
	"sync"
)

// LookPathFunc resolves a command name on the search path.
type LookPathFunc func(name string) bool

// Helper wraps the host's elevation command (gsudo on Windows, sudo
// elsewhere). Availability is probed once and cached for the process
// lifetime.
type Helper struct {
	lookPath LookPathFunc
	name     string

	detectOnce sync.Once
	available  bool
}

// NewHelper creates a Helper that probes with lookPath.
func NewHelper(lookPath LookPathFunc) *Helper {
	return &Helper{
		lookPath: lookPath,
		name:     defaultHelperName(),
	}
}

func defaultHelperName() string {
	if runtime.GOOS == "windows" {
		return "gsudo"
	}
	return "sudo"
}

// Name returns the helper command name for this host.
func (h *Helper) Name() string {
	return h.name
}

// Available reports whether the helper resolves on the search path. The
// first call probes; later calls return the cached answer.
func (h *Helper) Available() bool {
	h.detectOnce.Do(func() {
		h.available = h.lookPath(h.name)
	})
	return h.available
}

// Wrap prefixes argv with the helper command. Callers must check
// Available first; Wrap does not probe.
func (h *Helper) Wrap(argv []string) []string {
	wrapped := make([]string, 0, len(argv)+1)
	wrapped = append(wrapped, h.name)
	wrapped = append(wrapped, argv...)
	return wrapped
}
