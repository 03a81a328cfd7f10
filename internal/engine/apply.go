package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/updeck/updeck/internal/logging"
	"github.com/updeck/updeck/internal/providers"
)

// ApplyOptions adjusts one apply run.
type ApplyOptions struct {
	// ForceSkipped moves pinned/unknown records belonging to providers
	// that need administrative rights back into the update set, tagged
	// for a forced attempt.
	ForceSkipped bool
	// Interactive lets providers retry without silent flags.
	Interactive bool
}

// ApplyFailure is one record that could not be updated.
type ApplyFailure struct {
	Record providers.UpdateRecord
	Err    error
	// Unsupported marks packages the manager permanently cannot update.
	Unsupported bool
}

func (f ApplyFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Record      providers.UpdateRecord `json:"record"`
		Error       string                 `json:"error"`
		Unsupported bool                   `json:"unsupported"`
	}{f.Record, msg, f.Unsupported})
}

// ApplySummary aggregates one apply run.
type ApplySummary struct {
	Updated []providers.UpdateRecord
	Failed  []ApplyFailure
	Skipped []providers.UpdateRecord
}

// forcedUpdate pairs a record with its per-record force tag.
type forcedUpdate struct {
	record providers.UpdateRecord
	force  bool
}

// Apply partitions records into updatable and skippable sets, then runs
// updates sequentially, grouped by provider in first-seen order.
// Sequential on purpose: concurrent updates would interleave elevation
// prompts and progress output on one machine. Successful updates are
// written through to the persisted installed-version map.
func (e *Engine) Apply(ctx context.Context, records []providers.UpdateRecord, opts ApplyOptions) ApplySummary {
	start := time.Now()

	var summary ApplySummary
	var queue []forcedUpdate
	for _, record := range records {
		switch record.Status {
		case providers.StatusAvailable:
			queue = append(queue, forcedUpdate{record: record})
		case providers.StatusPinned, providers.StatusUnknown:
			provider := e.registry.Get(record.ProviderID)
			if opts.ForceSkipped && provider != nil && provider.RequiresElevatedRights() {
				queue = append(queue, forcedUpdate{record: record, force: true})
				continue
			}
			summary.Skipped = append(summary.Skipped, record)
		default:
			summary.Skipped = append(summary.Skipped, record)
		}
	}

	// Group by provider, keeping first-seen provider order and record
	// order within each group.
	var providerOrder []string
	groups := make(map[string][]forcedUpdate)
	for _, item := range queue {
		id := item.record.ProviderID
		if _, seen := groups[id]; !seen {
			providerOrder = append(providerOrder, id)
		}
		groups[id] = append(groups[id], item)
	}

	for _, providerID := range providerOrder {
		provider := e.registry.Get(providerID)
		plog := logging.WithProvider(log, providerID)
		for _, item := range groups[providerID] {
			record := item.record
			if provider == nil {
				summary.Failed = append(summary.Failed, ApplyFailure{
					Record: record,
					Err:    errors.New("no provider registered for " + providerID),
				})
				continue
			}

			plog.Info("updating", logging.KeyPackage, record.ID, "to", record.NewVersion)
			err := provider.UpdatePackage(ctx, record.ID, providers.UpdateOptions{
				Force:       item.force,
				Interactive: opts.Interactive,
			})
			if err != nil {
				unsupported := errors.Is(err, providers.ErrUpdateNotSupported)
				plog.Warn("update failed",
					logging.KeyPackage, record.ID,
					logging.KeyError, err.Error(),
					"unsupported", unsupported)
				summary.Failed = append(summary.Failed, ApplyFailure{
					Record:      record,
					Err:         err,
					Unsupported: unsupported,
				})
				continue
			}

			e.store.SetInstalledVersion(record.ID, record.NewVersion)
			summary.Updated = append(summary.Updated, record)
		}
	}

	if len(summary.Updated) > 0 {
		if err := e.store.Save(); err != nil {
			log.Warn("could not persist state after apply", logging.KeyError, err.Error())
		}
	}

	log.Info("apply complete",
		"updated", len(summary.Updated),
		"failed", len(summary.Failed),
		"skipped", len(summary.Skipped),
		logging.KeyDurationMs, time.Since(start).Milliseconds())
	return summary
}
