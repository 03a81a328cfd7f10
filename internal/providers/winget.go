package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/updeck/updeck/internal/elevation"
	"github.com/updeck/updeck/internal/executor"
	"github.com/updeck/updeck/internal/logging"
	"github.com/updeck/updeck/internal/version"
)

var wingetLog = logging.L("winget")

// winget CLI timeouts
const (
	wingetCheckTimeout  = 120 * time.Second
	wingetUpdateTimeout = 300 * time.Second
)

// validWingetPkgID matches valid winget package identifiers
// (e.g. "Mozilla.Firefox", "7zip.7zip").
var validWingetPkgID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]{0,255}$`)

// WingetProvider integrates with Windows Package Manager.
type WingetProvider struct {
	run      executor.RunFunc
	lookPath executor.LookPathFunc
	helper   *elevation.Helper
	timeouts Timeouts
}

// NewWingetProvider creates a WingetProvider that executes through run and
// retries through helper when updates need administrative rights.
func NewWingetProvider(run executor.RunFunc, lookPath executor.LookPathFunc, helper *elevation.Helper, timeouts Timeouts) *WingetProvider {
	return &WingetProvider{run: run, lookPath: lookPath, helper: helper, timeouts: timeouts}
}

func (w *WingetProvider) ID() string { return "winget" }

func (w *WingetProvider) DisplayName() string { return "Windows Package Manager" }

func (w *WingetProvider) RequiresElevatedRights() bool { return true }

func (w *WingetProvider) IsAvailable() bool { return w.lookPath("winget") }

// CheckUpdates lists pending upgrades. winget signals "upgrades exist" with
// a nonzero exit in some versions, so output is parsed whenever present.
func (w *WingetProvider) CheckUpdates(ctx context.Context) ([]UpdateRecord, error) {
	res := w.run(ctx, []string{
		"winget", "upgrade",
		"--include-unknown",
		"--accept-source-agreements",
		"--disable-interactivity",
	}, w.timeouts.networkOr(wingetCheckTimeout))

	if !res.Success && strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("winget upgrade failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	records := parseWingetUpgradeOutput(res.Stdout)
	for i := range records {
		records[i].ProviderID = w.ID()
	}
	return records, nil
}

// UpdatePackage upgrades one package. Attempt order: silent unattended,
// then without silent flags if opts.Interactive, then through the
// elevation helper if opts.Force and a helper is present. One elevated
// attempt at most.
func (w *WingetProvider) UpdatePackage(ctx context.Context, packageID string, opts UpdateOptions) error {
	if !validWingetPkgID.MatchString(packageID) {
		return fmt.Errorf("invalid winget package ID: %q", packageID)
	}

	argv := []string{
		"winget", "upgrade",
		"--exact", "--id", packageID,
		"--silent",
		"--accept-package-agreements",
		"--accept-source-agreements",
		"--disable-interactivity",
	}
	if opts.Force {
		argv = append(argv, "--force")
	}

	res := w.run(ctx, argv, wingetUpdateTimeout)
	if err := wingetUnsupported(packageID, res); err != nil {
		return err
	}
	if res.Success {
		noteRebootHint(packageID, res)
		return nil
	}

	if opts.Interactive {
		// Some installers refuse silent mode; retry attended.
		res = w.run(ctx, withoutArg(argv, "--silent"), wingetUpdateTimeout)
		if err := wingetUnsupported(packageID, res); err != nil {
			return err
		}
		if res.Success {
			noteRebootHint(packageID, res)
			return nil
		}
	}

	if opts.Force && w.helper != nil && w.helper.Available() {
		wingetLog.Info("retrying with elevation helper", logging.KeyPackage, packageID)
		res = w.run(ctx, w.helper.Wrap(argv), wingetUpdateTimeout)
		if err := wingetUnsupported(packageID, res); err != nil {
			return err
		}
		if res.Success {
			noteRebootHint(packageID, res)
			return nil
		}
	}

	combined := strings.TrimSpace(res.Stdout + "\n" + res.Stderr)
	return fmt.Errorf("winget upgrade failed (exit %d): %s", res.ExitCode, combined)
}

func (w *WingetProvider) UpdateAll(ctx context.Context) (UpdateAllResult, error) {
	return updateAllByPackage(ctx, w)
}

// wingetUnsupported detects winget's permanently-unsupported signals, e.g.
// a package whose installed version uses a different installer technology.
func wingetUnsupported(packageID string, res executor.Result) error {
	lower := strings.ToLower(res.Stdout + "\n" + res.Stderr)
	if strings.Contains(lower, "install technology is different") ||
		strings.Contains(lower, "cannot be upgraded using winget") ||
		strings.Contains(lower, "updated using its own") {
		return fmt.Errorf("%w: %s must be updated through its own installer", ErrUpdateNotSupported, packageID)
	}
	return nil
}

// noteRebootHint flags installer output that asks for a restart. winget
// only ever says so in prose, there is no structured signal.
func noteRebootHint(packageID string, res executor.Result) {
	lower := strings.ToLower(res.Stdout + "\n" + res.Stderr)
	if strings.Contains(lower, "restart") || strings.Contains(lower, "reboot") {
		wingetLog.Info("restart may be required", logging.KeyPackage, packageID)
	}
}

// withoutArg returns argv minus every occurrence of arg.
func withoutArg(argv []string, arg string) []string {
	out := make([]string, 0, len(argv))
	for _, a := range argv {
		if a != arg {
			out = append(out, a)
		}
	}
	return out
}

// --- winget upgrade table parsing ---

// Section annotation notes. Pin detection is a best-effort positional
// heuristic: winget prints the explanation a few lines above the section
// header, with no structural marker to anchor on.
const (
	notePinned            = "Package is pinned"
	noteExplicitTargeting = "Requires explicit targeting"
	noteUnknownVersion    = "Current version unknown"
)

// annotationWindow is how many lines above a section header are scanned
// for pin/explicit-targeting marker phrases.
const annotationWindow = 10

var wingetFooterLine = regexp.MustCompile(`\d+\s+upgrades?\s+available`)

// wingetColumns holds column start offsets derived from a header line.
// Display names may contain spaces, so rows are sliced at these offsets
// instead of being whitespace-split.
type wingetColumns struct {
	name      int
	id        int
	version   int
	available int // -1 when the header has no Available column
	source    int // -1 when the header has no Source column
}

// parseWingetUpgradeOutput parses `winget upgrade` output into update
// records. Output may contain several sections, each with its own header
// and separator row; sections flagged by a preceding pin message mark
// every row pinned.
//
//	Name            Id                  Version   Available  Source
//	---------------------------------------------------------------
//	Mozilla Firefox Mozilla.Firefox     128.0     129.0      winget
func parseWingetUpgradeOutput(output string) []UpdateRecord {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")

	var records []UpdateRecord
	i := 0
	for i < len(lines) {
		headerIdx := -1
		var cols *wingetColumns
		for j := i; j < len(lines); j++ {
			if c := wingetHeaderColumns(lines[j]); c != nil {
				headerIdx = j
				cols = c
				break
			}
		}
		if headerIdx == -1 {
			break
		}

		// A real section header is followed by a dashed separator row.
		if headerIdx+1 >= len(lines) || !isSeparatorLine(lines[headerIdx+1]) {
			i = headerIdx + 1
			continue
		}

		pinned, explicit := scanSectionAnnotations(lines, headerIdx)

		row := headerIdx + 2
		for ; row < len(lines); row++ {
			line := lines[row]
			if strings.TrimSpace(line) == "" {
				break
			}
			if wingetFooterLine.MatchString(line) || isPinMessageLine(line) {
				break
			}

			record, ok := wingetRowRecord(line, cols, pinned, explicit)
			if !ok {
				continue
			}
			records = append(records, record)
		}

		i = row + 1
	}

	return records
}

// wingetHeaderColumns returns column offsets when the line is a section
// header containing at least Name, Id, and Version in order.
func wingetHeaderColumns(line string) *wingetColumns {
	nameIdx := strings.Index(line, "Name")
	idIdx := strings.Index(line, "Id")
	versionIdx := strings.Index(line, "Version")
	if nameIdx == -1 || idIdx == -1 || versionIdx == -1 {
		return nil
	}
	if idIdx <= nameIdx || versionIdx <= idIdx {
		return nil
	}

	cols := &wingetColumns{
		name:      nameIdx,
		id:        idIdx,
		version:   versionIdx,
		available: -1,
		source:    -1,
	}

	if availIdx := strings.Index(line, "Available"); availIdx > versionIdx {
		cols.available = availIdx
	}
	if sourceIdx := strings.Index(line, "Source"); sourceIdx > versionIdx && sourceIdx != cols.available {
		cols.source = sourceIdx
	}

	return cols
}

// isSeparatorLine matches winget's table separator (dashes, at least 10).
func isSeparatorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 10 {
		return false
	}
	for _, ch := range trimmed {
		if ch != '-' && ch != ' ' {
			return false
		}
	}
	return true
}

// scanSectionAnnotations looks at the lines immediately above a section
// header for pin and explicit-targeting marker phrases.
func scanSectionAnnotations(lines []string, headerIdx int) (pinned, explicit bool) {
	start := headerIdx - annotationWindow
	if start < 0 {
		start = 0
	}
	for _, line := range lines[start:headerIdx] {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "pin that needs") || strings.Contains(lower, "pins that prevent") {
			pinned = true
		}
		if strings.Contains(lower, "explicit targeting") || strings.Contains(lower, "require explicit") {
			explicit = true
		}
	}
	return pinned, explicit
}

// isPinMessageLine matches the pin explanation winget prints between
// sections; it terminates the current section and is never data.
func isPinMessageLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "pin that needs") || strings.Contains(lower, "pins that prevent")
}

// wingetRowRecord slices one data row at the header's column offsets.
func wingetRowRecord(line string, cols *wingetColumns, pinned, explicit bool) (UpdateRecord, bool) {
	if len(line) <= cols.id || cols.available == -1 {
		return UpdateRecord{}, false
	}

	name := safeSubstring(line, cols.name, cols.id)
	id := safeSubstring(line, cols.id, cols.version)
	current := safeSubstring(line, cols.version, cols.available)

	availEnd := len(line)
	source := ""
	if cols.source > cols.available {
		availEnd = cols.source
		source = safeSubstring(line, cols.source, len(line))
	}
	available := safeSubstring(line, cols.available, availEnd)

	if id == "" || !validWingetPkgID.MatchString(id) || available == "" {
		return UpdateRecord{}, false
	}

	record := UpdateRecord{
		ID:             id,
		Name:           name,
		CurrentVersion: current,
		NewVersion:     available,
		Status:         StatusAvailable,
		Source:         source,
	}

	if current == "" || strings.EqualFold(current, version.Unknown) {
		record.CurrentVersion = version.Unknown
		record.Status = StatusUnknown
		record.Notes = noteUnknownVersion
	}

	// Identical versions are never an update.
	if strings.EqualFold(record.CurrentVersion, record.NewVersion) {
		return UpdateRecord{}, false
	}

	if explicit && record.Status == StatusAvailable {
		record.Notes = noteExplicitTargeting
	}
	if pinned {
		record.Status = StatusPinned
		record.Notes = notePinned
	}

	return record, true
}

// safeSubstring extracts a substring with bounds checking and trims
// whitespace.
func safeSubstring(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return strings.TrimSpace(s[start:end])
}
