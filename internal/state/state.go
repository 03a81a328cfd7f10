// Package state persists per-host reconciliation state: which providers are
// enabled, which package ids are ignored, and the authoritative installed
// version recorded after each successful update.
package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/updeck/updeck/internal/logging"
)

var log = logging.L("state")

// ProviderSettings holds per-provider persisted flags.
type ProviderSettings struct {
	Enabled bool `json:"enabled"`
}

// State is the on-disk document. Provider ids not known to this build are
// preserved on round-trip so newer and older versions can share a file.
type State struct {
	Providers          map[string]ProviderSettings `json:"providers"`
	IgnoredPackages    []string                    `json:"ignoredPackages"`
	InstalledVersions  map[string]string           `json:"installedVersions"`
	LastCheckTimestamp string                      `json:"lastCheckTimestamp,omitempty"`
}

// Store loads, mutates, and saves a State document at a fixed path.
type Store struct {
	path  string
	state *State
}

// Open loads the store at path. A missing or malformed file falls back to
// the defaults for knownProviders; it is never fatal.
func Open(path string, knownProviders []string) *Store {
	st := &Store{path: path}
	st.state = load(path)
	st.fillDefaults(knownProviders)
	return st
}

func load(path string) *State {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("state file unreadable, using defaults", "path", path, "error", err)
		}
		return emptyState()
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn("state file malformed, using defaults", "path", path, "error", err)
		return emptyState()
	}

	if st.Providers == nil {
		st.Providers = map[string]ProviderSettings{}
	}
	if st.InstalledVersions == nil {
		st.InstalledVersions = map[string]string{}
	}
	return &st
}

func emptyState() *State {
	return &State{
		Providers:         map[string]ProviderSettings{},
		InstalledVersions: map[string]string{},
	}
}

// fillDefaults enables any known provider missing from the loaded file.
// Unknown ids already present are left untouched.
func (s *Store) fillDefaults(knownProviders []string) {
	for _, id := range knownProviders {
		if _, ok := s.state.Providers[id]; !ok {
			s.state.Providers[id] = ProviderSettings{Enabled: true}
		}
	}
}

// Save writes the state atomically (tmp + rename) with owner-only access.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// EnabledProviders returns the ids enabled in the persisted state, filtered
// to the given known set so stale ids in the file do not reach the engine.
func (s *Store) EnabledProviders(known []string) []string {
	var enabled []string
	for _, id := range known {
		if settings, ok := s.state.Providers[id]; ok && settings.Enabled {
			enabled = append(enabled, id)
		}
	}
	return enabled
}

// SetProviderEnabled flips a provider's enabled flag.
func (s *Store) SetProviderEnabled(id string, enabled bool) {
	settings := s.state.Providers[id]
	settings.Enabled = enabled
	s.state.Providers[id] = settings
}

// IsIgnored reports whether a package id is on the ignore list.
func (s *Store) IsIgnored(packageID string) bool {
	for _, id := range s.state.IgnoredPackages {
		if id == packageID {
			return true
		}
	}
	return false
}

// AddIgnored adds a package id to the ignore list. Duplicates are collapsed.
func (s *Store) AddIgnored(packageID string) {
	if s.IsIgnored(packageID) {
		return
	}
	s.state.IgnoredPackages = append(s.state.IgnoredPackages, packageID)
}

// RemoveIgnored removes a package id from the ignore list.
func (s *Store) RemoveIgnored(packageID string) {
	kept := s.state.IgnoredPackages[:0]
	for _, id := range s.state.IgnoredPackages {
		if id != packageID {
			kept = append(kept, id)
		}
	}
	s.state.IgnoredPackages = kept
}

// IgnoredPackages returns a copy of the ignore list.
func (s *Store) IgnoredPackages() []string {
	out := make([]string, len(s.state.IgnoredPackages))
	copy(out, s.state.IgnoredPackages)
	return out
}

// InstalledVersion returns the persisted installed-version override for a
// package id, if any.
func (s *Store) InstalledVersion(packageID string) (string, bool) {
	v, ok := s.state.InstalledVersions[packageID]
	return v, ok
}

// SetInstalledVersion records the authoritative version applied for a
// package id. Used to suppress managers that mis-report current versions.
func (s *Store) SetInstalledVersion(packageID, version string) {
	s.state.InstalledVersions[packageID] = version
}

// RemoveInstalledVersion clears the override for a package id.
func (s *Store) RemoveInstalledVersion(packageID string) {
	delete(s.state.InstalledVersions, packageID)
}

// TouchLastCheck updates the last-check timestamp to now.
func (s *Store) TouchLastCheck() {
	s.state.LastCheckTimestamp = time.Now().UTC().Format(time.RFC3339)
}

// LastCheck returns the persisted last-check timestamp, empty if never set.
func (s *Store) LastCheck() string {
	return s.state.LastCheckTimestamp
}
