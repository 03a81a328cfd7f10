package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/updeck/updeck/internal/executor"
)

const (
	psCheckTimeout  = 180 * time.Second
	psUpdateTimeout = 300 * time.Second
)

var validPSModuleName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]{0,127}$`)

// psCheckScript emits one pipe-delimited line per installed module with a
// newer PSGallery version. Find-Module hits the network, hence the long
// check timeout.
const psCheckScript = `Get-InstalledModule | ForEach-Object {
  $latest = Find-Module -Name $_.Name -ErrorAction SilentlyContinue
  if ($latest -and $latest.Version -ne $_.Version) {
    "$($_.Name)|$($_.Version)|$($latest.Version)"
  }
}`

// PSModuleProvider integrates with PowerShell Gallery modules.
type PSModuleProvider struct {
	run      executor.RunFunc
	lookPath executor.LookPathFunc
	timeouts Timeouts
}

func NewPSModuleProvider(run executor.RunFunc, lookPath executor.LookPathFunc, timeouts Timeouts) *PSModuleProvider {
	return &PSModuleProvider{run: run, lookPath: lookPath, timeouts: timeouts}
}

func (p *PSModuleProvider) ID() string { return "psmodule" }

func (p *PSModuleProvider) DisplayName() string { return "PowerShell Modules" }

func (p *PSModuleProvider) RequiresElevatedRights() bool { return false }

func (p *PSModuleProvider) IsAvailable() bool {
	return p.lookPath("pwsh") || p.lookPath("powershell")
}

// shell returns the PowerShell executable to invoke, preferring pwsh.
func (p *PSModuleProvider) shell() string {
	if p.lookPath("pwsh") {
		return "pwsh"
	}
	return "powershell"
}

func (p *PSModuleProvider) CheckUpdates(ctx context.Context) ([]UpdateRecord, error) {
	res := p.run(ctx, []string{p.shell(), "-NoProfile", "-NonInteractive", "-Command", psCheckScript}, p.timeouts.networkOr(psCheckTimeout))

	if !res.Success && strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("powershell module check failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	records := parsePSModuleLines(res.Stdout)
	for i := range records {
		records[i].ProviderID = p.ID()
	}
	return records, nil
}

func (p *PSModuleProvider) UpdatePackage(ctx context.Context, packageID string, opts UpdateOptions) error {
	if !validPSModuleName.MatchString(packageID) {
		return fmt.Errorf("invalid PowerShell module name: %q", packageID)
	}

	cmd := fmt.Sprintf("Update-Module -Name '%s' -Force -ErrorAction Stop", packageID)
	res := p.run(ctx, []string{p.shell(), "-NoProfile", "-NonInteractive", "-Command", cmd}, psUpdateTimeout)
	if !res.Success {
		combined := strings.TrimSpace(res.Stdout + "\n" + res.Stderr)
		return fmt.Errorf("Update-Module %s failed (exit %d): %s", packageID, res.ExitCode, combined)
	}
	return nil
}

func (p *PSModuleProvider) UpdateAll(ctx context.Context) (UpdateAllResult, error) {
	return updateAllByPackage(ctx, p)
}

// parsePSModuleLines parses pipe-delimited name|current|latest lines.
// Lines with fewer than three fields, an empty required field, or
// identical versions are dropped.
func parsePSModuleLines(output string) []UpdateRecord {
	var records []UpdateRecord
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		name := strings.TrimSpace(fields[0])
		current := strings.TrimSpace(fields[1])
		latest := strings.TrimSpace(fields[2])
		if name == "" || current == "" || latest == "" {
			continue
		}
		if strings.EqualFold(current, latest) {
			continue
		}

		records = append(records, UpdateRecord{
			ID:             name,
			Name:           name,
			CurrentVersion: current,
			NewVersion:     latest,
			Status:         StatusAvailable,
			Source:         "PSGallery",
		})
	}
	return records
}
