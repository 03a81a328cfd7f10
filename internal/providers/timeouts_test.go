package providers

import (
	"context"
	"testing"
	"time"

	"github.com/updeck/updeck/internal/elevation"
	"github.com/updeck/updeck/internal/executor"
)

// captureTimeout returns a RunFunc recording the deadline each check was
// invoked with.
func captureTimeout(got *time.Duration) executor.RunFunc {
	return func(ctx context.Context, argv []string, timeout time.Duration) executor.Result {
		*got = timeout
		return executor.Result{ExitCode: 0, Success: true}
	}
}

func TestConfiguredTimeoutsReachProviders(t *testing.T) {
	overrides := Timeouts{List: 7 * time.Second, Network: 42 * time.Second}

	cases := []struct {
		name string
		make func(run executor.RunFunc) Provider
		want time.Duration
	}{
		{"winget uses network class", func(run executor.RunFunc) Provider {
			return NewWingetProvider(run, pathYes, elevation.NewHelper(pathNo), overrides)
		}, 42 * time.Second},
		{"mise uses list class", func(run executor.RunFunc) Provider {
			return NewMiseProvider(run, pathYes, overrides)
		}, 7 * time.Second},
		{"npm uses network class", func(run executor.RunFunc) Provider {
			return NewNpmProvider(run, pathYes, overrides)
		}, 42 * time.Second},
		{"pnpm uses network class", func(run executor.RunFunc) Provider {
			return NewPnpmProvider(run, pathYes, overrides)
		}, 42 * time.Second},
		{"psmodule uses network class", func(run executor.RunFunc) Provider {
			return NewPSModuleProvider(run, pathYes, overrides)
		}, 42 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got time.Duration
			provider := tc.make(captureTimeout(&got))
			if _, err := provider.CheckUpdates(context.Background()); err != nil {
				t.Fatalf("CheckUpdates failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("check ran with timeout %v, want %v", got, tc.want)
			}
		})
	}
}

func TestZeroTimeoutsKeepProviderDefaults(t *testing.T) {
	var got time.Duration
	provider := NewMiseProvider(captureTimeout(&got), pathYes, Timeouts{})
	if _, err := provider.CheckUpdates(context.Background()); err != nil {
		t.Fatalf("CheckUpdates failed: %v", err)
	}
	if got != miseCheckTimeout {
		t.Errorf("check ran with timeout %v, want built-in default %v", got, miseCheckTimeout)
	}
}
