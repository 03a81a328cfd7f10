package version

import "testing"

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current   string
		candidate string
		want      bool
	}{
		{"1.0.0", "2.0.0", true},
		{"2.0.0", "1.0.0", false},
		{"1.0.0", "1.0.0", false},
		{"1.2.3", "1.2.4", true},
		{"1.2.4", "1.2.3", false},
		{"1.9.0", "1.10.0", true},

		// Truncated versions: missing trailing segments count as zero.
		{"1.0", "1.0.1", true},
		{"1.0.0", "1.0", false},
		{"1", "1.0.0", false},
		{"2", "10", true},

		// Prerelease: a release beats its own prerelease and nothing else.
		{"2.4.0-beta0", "2.4.0", true},
		{"2.4.0", "2.4.0-beta0", false},
		{"2.4.0-alpha", "2.4.0-beta", false},
		{"2.4.0-beta0", "2.5.0-beta0", true},
		{"2.4.0-beta0", "2.4.1", true},

		// Unknown baseline never blocks an update; unknown candidate is
		// never an update.
		{"unknown", "1.0.0", true},
		{"Unknown", "0.0.1", true},
		{"1.0.0", "unknown", false},
		{"unknown", "unknown", false},

		// Non-numeric segments degrade to zero rather than erroring.
		{"1.x.0", "1.0.1", true},
		{"1.0.1", "1.x.0", false},
	}

	for _, tt := range tests {
		if got := IsNewer(tt.current, tt.candidate); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.current, tt.candidate, got, tt.want)
		}
	}
}

func TestIsNewerSymmetryOnEqualBases(t *testing.T) {
	pairs := [][2]string{
		{"1.0.0", "1.0"},
		{"3.2", "3.2.0.0"},
		{"5", "5.0"},
	}
	for _, p := range pairs {
		if IsNewer(p[0], p[1]) || IsNewer(p[1], p[0]) {
			t.Errorf("versions %q and %q should compare equal both ways", p[0], p[1])
		}
	}
}
