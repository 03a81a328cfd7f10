package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/updeck/updeck/internal/executor"
	"github.com/updeck/updeck/internal/logging"
)

var npmLog = logging.L("npm")

const (
	npmCheckTimeout  = 120 * time.Second
	npmUpdateTimeout = 300 * time.Second
)

// validNpmPkg matches npm package names, including scoped ones
// ("@scope/name").
var validNpmPkg = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._\-]*/)?[a-z0-9][a-z0-9._\-]{0,213}$`)

// NpmProvider integrates with globally-installed npm packages.
type NpmProvider struct {
	run      executor.RunFunc
	lookPath executor.LookPathFunc
	timeouts Timeouts
}

func NewNpmProvider(run executor.RunFunc, lookPath executor.LookPathFunc, timeouts Timeouts) *NpmProvider {
	return &NpmProvider{run: run, lookPath: lookPath, timeouts: timeouts}
}

func (n *NpmProvider) ID() string { return "npm" }

func (n *NpmProvider) DisplayName() string { return "npm (global)" }

func (n *NpmProvider) RequiresElevatedRights() bool { return false }

func (n *NpmProvider) IsAvailable() bool { return n.lookPath("npm") }

// CheckUpdates lists outdated global packages. npm exits 1 whenever
// anything is outdated, so exit status alone means nothing; output is
// parsed whenever present. When the JSON path yields no rows but stdout
// is plainly not JSON, the plain-table fallback kicks in for npm builds
// that ignore --json.
func (n *NpmProvider) CheckUpdates(ctx context.Context) ([]UpdateRecord, error) {
	res := n.run(ctx, []string{"npm", "outdated", "--global", "--json"}, n.timeouts.networkOr(npmCheckTimeout))

	trimmed := strings.TrimSpace(res.Stdout)
	if !res.Success && trimmed == "" {
		stderr := strings.TrimSpace(res.Stderr)
		if stderr != "" {
			return nil, fmt.Errorf("npm outdated failed (exit %d): %s", res.ExitCode, stderr)
		}
		// Exit 1 with no output at all just means nothing to report.
		return nil, nil
	}

	records := parseOutdatedJSON(trimmed, "npm")
	if len(records) == 0 && trimmed != "" && !strings.HasPrefix(trimmed, "{") {
		npmLog.Debug("json parse yielded nothing, trying table fallback")
		records = parseNpmOutdatedTable(trimmed)
	}
	for i := range records {
		records[i].ProviderID = n.ID()
	}
	return records, nil
}

func (n *NpmProvider) UpdatePackage(ctx context.Context, packageID string, opts UpdateOptions) error {
	if !validNpmPkg.MatchString(packageID) {
		return fmt.Errorf("invalid npm package name: %q", packageID)
	}

	res := n.run(ctx, []string{"npm", "install", "--global", packageID + "@latest"}, npmUpdateTimeout)
	if !res.Success {
		combined := strings.TrimSpace(res.Stdout + "\n" + res.Stderr)
		return fmt.Errorf("npm install %s failed (exit %d): %s", packageID, res.ExitCode, combined)
	}
	return nil
}

func (n *NpmProvider) UpdateAll(ctx context.Context) (UpdateAllResult, error) {
	return updateAllByPackage(ctx, n)
}

var npmGapSplit = regexp.MustCompile(`\s{2,}`)

// parseNpmOutdatedTable parses the plain `npm outdated` table.
//
//	Package     Current  Wanted  Latest  Location
//	typescript  5.2.0    5.2.2   5.3.0   node_modules/typescript
//
// Wanted sits between Current and Latest, so the latest version is the
// fourth token, not the third.
func parseNpmOutdatedTable(output string) []UpdateRecord {
	var records []UpdateRecord
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens := npmGapSplit.Split(line, -1)
		if len(tokens) < 4 {
			continue
		}
		if tokens[0] == "Package" {
			continue
		}

		name := tokens[0]
		current := tokens[1]
		latest := tokens[3]
		if strings.EqualFold(current, latest) {
			continue
		}

		records = append(records, UpdateRecord{
			ID:             name,
			Name:           name,
			CurrentVersion: current,
			NewVersion:     latest,
			Status:         StatusAvailable,
			Source:         "npm",
		})
	}
	return records
}
