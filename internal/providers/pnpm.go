package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/updeck/updeck/internal/executor"
)

const (
	pnpmCheckTimeout  = 120 * time.Second
	pnpmUpdateTimeout = 300 * time.Second
)

// PnpmProvider integrates with globally-installed pnpm packages.
type PnpmProvider struct {
	run      executor.RunFunc
	lookPath executor.LookPathFunc
	timeouts Timeouts
}

func NewPnpmProvider(run executor.RunFunc, lookPath executor.LookPathFunc, timeouts Timeouts) *PnpmProvider {
	return &PnpmProvider{run: run, lookPath: lookPath, timeouts: timeouts}
}

func (p *PnpmProvider) ID() string { return "pnpm" }

func (p *PnpmProvider) DisplayName() string { return "pnpm (global)" }

func (p *PnpmProvider) RequiresElevatedRights() bool { return false }

func (p *PnpmProvider) IsAvailable() bool { return p.lookPath("pnpm") }

// CheckUpdates lists outdated global packages. Like npm, pnpm exits
// nonzero when outdated packages exist.
func (p *PnpmProvider) CheckUpdates(ctx context.Context) ([]UpdateRecord, error) {
	res := p.run(ctx, []string{"pnpm", "outdated", "--global", "--format", "json"}, p.timeouts.networkOr(pnpmCheckTimeout))

	trimmed := strings.TrimSpace(res.Stdout)
	if !res.Success && trimmed == "" {
		stderr := strings.TrimSpace(res.Stderr)
		if stderr != "" {
			return nil, fmt.Errorf("pnpm outdated failed (exit %d): %s", res.ExitCode, stderr)
		}
		return nil, nil
	}

	records := parseOutdatedJSON(trimmed, "pnpm")
	for i := range records {
		records[i].ProviderID = p.ID()
	}
	return records, nil
}

func (p *PnpmProvider) UpdatePackage(ctx context.Context, packageID string, opts UpdateOptions) error {
	if !validNpmPkg.MatchString(packageID) {
		return fmt.Errorf("invalid pnpm package name: %q", packageID)
	}

	res := p.run(ctx, []string{"pnpm", "update", "--global", "--latest", packageID}, pnpmUpdateTimeout)
	if !res.Success {
		combined := strings.TrimSpace(res.Stdout + "\n" + res.Stderr)
		return fmt.Errorf("pnpm update %s failed (exit %d): %s", packageID, res.ExitCode, combined)
	}
	return nil
}

func (p *PnpmProvider) UpdateAll(ctx context.Context) (UpdateAllResult, error) {
	return updateAllByPackage(ctx, p)
}
