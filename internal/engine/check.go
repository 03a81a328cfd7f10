// Package engine reconciles provider-reported updates against persisted
// state and drives update application.
package engine

import (
	"context"
	"time"

	"github.com/updeck/updeck/internal/logging"
	"github.com/updeck/updeck/internal/providers"
	"github.com/updeck/updeck/internal/state"
	"github.com/updeck/updeck/internal/workerpool"
)

var log = logging.L("engine")

// Engine ties the provider registry to the persisted state store.
type Engine struct {
	registry    *providers.Registry
	store       *state.Store
	concurrency int
}

// New wires an engine over registry and store. A concurrency below 1
// means one check worker per registered provider, so the default fans
// out every check at once.
func New(registry *providers.Registry, store *state.Store, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = len(registry.IDs())
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{registry: registry, store: store, concurrency: concurrency}
}

// CheckResult is the outcome of one check sweep.
type CheckResult struct {
	Records []providers.UpdateRecord
	// CheckedProviderIDs lists providers whose executable was present,
	// whether or not their check subsequently succeeded.
	CheckedProviderIDs []string
}

// CheckAll fans out availability probes and update checks for every
// enabled provider concurrently, then collects results once all of them
// settle. A provider whose check errors contributes zero records; the
// error never aborts the sweep. Records pass two filters before being
// returned: the ignored-package set, then the persisted installed-version
// override.
func (e *Engine) CheckAll(ctx context.Context, enabledIDs []string) (CheckResult, error) {
	start := time.Now()

	slots := make([][]providers.UpdateRecord, len(enabledIDs))
	checked := make([]bool, len(enabledIDs))

	pool := workerpool.New(e.concurrency)
	for i, id := range enabledIDs {
		provider := e.registry.Get(id)
		if provider == nil {
			log.Warn("enabled provider not in registry", logging.KeyProvider, id)
			continue
		}

		i, provider := i, provider
		pool.Submit(func() {
			if !provider.IsAvailable() {
				log.Debug("provider unavailable", logging.KeyProvider, provider.ID())
				return
			}
			checked[i] = true

			records, err := provider.CheckUpdates(ctx)
			if err != nil {
				log.Warn("check failed",
					logging.KeyProvider, provider.ID(),
					logging.KeyError, err.Error())
				return
			}
			slots[i] = records
		})
	}
	pool.Close()
	if err := pool.Wait(ctx); err != nil {
		return CheckResult{}, err
	}

	var result CheckResult
	for i, id := range enabledIDs {
		if checked[i] {
			result.CheckedProviderIDs = append(result.CheckedProviderIDs, id)
		}
		for _, record := range slots[i] {
			if e.store.IsIgnored(record.ID) {
				continue
			}
			if v, ok := e.store.InstalledVersion(record.ID); ok && v == record.NewVersion {
				continue
			}
			result.Records = append(result.Records, record)
		}
	}

	e.store.TouchLastCheck()
	if err := e.store.Save(); err != nil {
		log.Warn("could not persist state after check", logging.KeyError, err.Error())
	}

	log.Info("check complete",
		"providers", len(result.CheckedProviderIDs),
		"updates", len(result.Records),
		logging.KeyDurationMs, time.Since(start).Milliseconds())
	return result, nil
}
