//go:build !windows

package elevation

import "os"

// IsElevated returns true when running with UID 0 (root).
func IsElevated() bool {
	return os.Getuid() == 0
}
