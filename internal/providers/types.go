package providers

import (
	"context"
	"errors"

	"github.com/updeck/updeck/internal/version"
)

// Status classifies an update record.
type Status string

const (
	// StatusAvailable means the update can be applied normally.
	StatusAvailable Status = "available"
	// StatusPinned means the manager excludes this package from normal
	// upgrade via an explicit pin.
	StatusPinned Status = "pinned"
	// StatusUnknown means the installed version could not be determined.
	StatusUnknown Status = "unknown"
	// StatusError means the record itself is in a failed state.
	StatusError Status = "error"
)

// UpdateRecord is one discovered pending update. ID is the provider-unique
// stable identity key; Name is for display and may differ.
type UpdateRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CurrentVersion string `json:"currentVersion"`
	NewVersion     string `json:"newVersion"`
	ProviderID     string `json:"providerId"`
	Status         Status `json:"status"`
	Source         string `json:"source,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// UpdateOptions adjusts how a single package update is attempted.
type UpdateOptions struct {
	// Force retries through the elevation helper when the manager needs
	// administrative rights, and passes a manager-specific force flag.
	Force bool
	// Interactive allows a retry without silent/unattended flags for
	// installers that refuse silent mode.
	Interactive bool
}

// UpdateAllResult aggregates a provider-wide update sweep.
type UpdateAllResult struct {
	Success bool
	Updated []string
	Failed  []string
	Skipped []string
}

// ErrUpdateNotSupported marks a package the manager permanently cannot
// upgrade (its installer tells the user to use the app's own updater).
// Callers match with errors.Is to present an actionable message instead of
// counting it as a transient failure.
var ErrUpdateNotSupported = errors.New("package cannot be updated through this manager")

// Provider is the uniform adapter contract over one package manager.
// Implementations are stateless across invocations apart from any lazily
// cached host probes.
type Provider interface {
	ID() string
	DisplayName() string
	RequiresElevatedRights() bool

	// IsAvailable reports whether the manager's executable resolves on
	// the host's search path. Never errors.
	IsAvailable() bool

	// CheckUpdates lists pending updates with ProviderID attached.
	// Records appear in the order the manager reported them.
	CheckUpdates(ctx context.Context) ([]UpdateRecord, error)

	// UpdatePackage applies one update. A nil return means the manager
	// exited successfully; ErrUpdateNotSupported is returned (wrapped)
	// for permanently-unsupported packages.
	UpdatePackage(ctx context.Context, packageID string, opts UpdateOptions) error

	// UpdateAll re-checks and applies every non-pinned update.
	UpdateAll(ctx context.Context) (UpdateAllResult, error)
}

// updateAllByPackage is the shared UpdateAll implementation for managers
// without a usable batch-upgrade command: re-check, skip pinned records,
// update the rest one by one.
func updateAllByPackage(ctx context.Context, p Provider) (UpdateAllResult, error) {
	records, err := p.CheckUpdates(ctx)
	if err != nil {
		return UpdateAllResult{}, err
	}

	var result UpdateAllResult
	for _, record := range records {
		if record.Status == StatusPinned {
			result.Skipped = append(result.Skipped, record.ID)
			continue
		}
		// Some managers list entries whose installed version is already
		// ahead of the offered one; don't downgrade. Sidegrades such as
		// prerelease bumps still go through, matching the per-record
		// apply path.
		if version.IsNewer(record.NewVersion, record.CurrentVersion) {
			result.Skipped = append(result.Skipped, record.ID)
			continue
		}
		if err := p.UpdatePackage(ctx, record.ID, UpdateOptions{}); err != nil {
			result.Failed = append(result.Failed, record.ID)
			continue
		}
		result.Updated = append(result.Updated, record.ID)
	}

	result.Success = len(result.Failed) == 0
	return result, nil
}
