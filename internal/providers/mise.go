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

var miseLog = logging.L("mise")

const (
	miseCheckTimeout  = 60 * time.Second
	miseUpdateTimeout = 300 * time.Second
)

var validMiseTool = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-@/]{0,255}$`)

// MiseProvider integrates with the mise tool-version manager.
type MiseProvider struct {
	run      executor.RunFunc
	lookPath executor.LookPathFunc
	timeouts Timeouts
}

func NewMiseProvider(run executor.RunFunc, lookPath executor.LookPathFunc, timeouts Timeouts) *MiseProvider {
	return &MiseProvider{run: run, lookPath: lookPath, timeouts: timeouts}
}

func (m *MiseProvider) ID() string { return "mise" }

func (m *MiseProvider) DisplayName() string { return "mise" }

func (m *MiseProvider) RequiresElevatedRights() bool { return false }

func (m *MiseProvider) IsAvailable() bool { return m.lookPath("mise") }

func (m *MiseProvider) CheckUpdates(ctx context.Context) ([]UpdateRecord, error) {
	res := m.run(ctx, []string{"mise", "outdated"}, m.timeouts.listOr(miseCheckTimeout))

	if !res.Success && strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("mise outdated failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	records := parseMiseOutdated(res.Stdout)
	for i := range records {
		records[i].ProviderID = m.ID()
	}
	return records, nil
}

func (m *MiseProvider) UpdatePackage(ctx context.Context, packageID string, opts UpdateOptions) error {
	if !validMiseTool.MatchString(packageID) {
		return fmt.Errorf("invalid mise tool name: %q", packageID)
	}

	res := m.run(ctx, []string{"mise", "upgrade", packageID}, miseUpdateTimeout)
	if !res.Success {
		combined := strings.TrimSpace(res.Stdout + "\n" + res.Stderr)
		return fmt.Errorf("mise upgrade %s failed (exit %d): %s", packageID, res.ExitCode, combined)
	}
	return nil
}

// UpdateAll upgrades every outdated tool in one `mise upgrade` invocation
// instead of iterating per package.
func (m *MiseProvider) UpdateAll(ctx context.Context) (UpdateAllResult, error) {
	records, err := m.CheckUpdates(ctx)
	if err != nil {
		return UpdateAllResult{}, err
	}

	var result UpdateAllResult
	var targets []string
	for _, r := range records {
		if r.Status == StatusPinned {
			result.Skipped = append(result.Skipped, r.ID)
			continue
		}
		targets = append(targets, r.ID)
	}

	if len(targets) == 0 {
		result.Success = true
		return result, nil
	}

	res := m.run(ctx, []string{"mise", "upgrade"}, miseUpdateTimeout)
	if res.Success {
		result.Success = true
		result.Updated = targets
		return result, nil
	}

	miseLog.Warn("batch upgrade failed", logging.KeyError, strings.TrimSpace(res.Stderr))
	result.Failed = targets
	return result, nil
}

// --- mise outdated parsing ---

var miseArrow = strings.NewReplacer("→", "->")

// boxChars are the border characters mise draws around its table output
// in some versions.
const boxChars = "│┌┐└┘├┤┬┴┼─"

// parseMiseOutdated parses `mise outdated` output. Two formats occur in
// the wild: plain arrow lines,
//
//	node   20.10.0 -> 20.11.0
//
// and a bordered table with Tool/Requested/Current/Latest columns. The
// presence of border characters selects the table path for the whole
// payload.
func parseMiseOutdated(output string) []UpdateRecord {
	if strings.ContainsAny(output, boxChars) {
		return parseMiseTable(output)
	}
	return parseMiseArrows(output)
}

func parseMiseArrows(output string) []UpdateRecord {
	var records []UpdateRecord
	for _, line := range strings.Split(output, "\n") {
		line = miseArrow.Replace(line)
		idx := strings.Index(line, "->")
		if idx < 0 {
			continue
		}

		left := strings.Fields(line[:idx])
		right := strings.Fields(line[idx+2:])
		if len(left) < 2 || len(right) < 1 {
			continue
		}

		name := left[0]
		current := left[len(left)-1]
		latest := right[0]
		if strings.EqualFold(current, latest) {
			continue
		}

		records = append(records, UpdateRecord{
			ID:             name,
			Name:           name,
			CurrentVersion: current,
			NewVersion:     latest,
			Status:         StatusAvailable,
			Source:         "mise",
		})
	}
	return records
}

var miseGapSplit = regexp.MustCompile(`\s{2,}`)

func parseMiseTable(output string) []UpdateRecord {
	var records []UpdateRecord
	for _, line := range strings.Split(output, "\n") {
		cleaned := strings.Map(func(r rune) rune {
			if strings.ContainsRune(boxChars, r) {
				return ' '
			}
			return r
		}, line)
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}

		tokens := miseGapSplit.Split(cleaned, -1)
		if len(tokens) < 3 {
			continue
		}
		if tokens[0] == "Tool" || tokens[0] == "Name" {
			continue
		}

		// Requested sits between Tool and Current when present; the last
		// two columns are always Current and Latest.
		name := tokens[0]
		current := tokens[len(tokens)-2]
		latest := tokens[len(tokens)-1]
		if strings.EqualFold(current, latest) {
			continue
		}

		records = append(records, UpdateRecord{
			ID:             name,
			Name:           name,
			CurrentVersion: current,
			NewVersion:     latest,
			Status:         StatusAvailable,
			Source:         "mise",
		})
	}
	return records
}
