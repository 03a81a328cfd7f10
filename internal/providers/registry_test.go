package providers

import (
	"testing"

	"github.com/updeck/updeck/internal/elevation"
)

func TestRegistryContainsAllProviders(t *testing.T) {
	registry := NewRegistry(elevation.NewHelper(pathNo), Timeouts{})

	want := []string{"winget", "mise", "npm", "pnpm", "psmodule"}
	ids := registry.IDs()
	if len(ids) != len(want) {
		t.Fatalf("IDs = %v, want %v", ids, want)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("IDs[%d] = %q, want %q", i, ids[i], id)
		}
		if !registry.Has(id) {
			t.Errorf("Has(%q) = false", id)
		}
		if registry.Get(id) == nil {
			t.Errorf("Get(%q) = nil", id)
		}
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistryWith()
	if registry.Get("nope") != nil {
		t.Error("Get for unknown id should return nil")
	}
	if registry.Has("nope") {
		t.Error("Has for unknown id should return false")
	}
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	a := NewMiseProvider(mockRun("", "", 0), pathYes, Timeouts{})
	b := NewNpmProvider(mockRun("", "", 0), pathYes, Timeouts{})
	registry := NewRegistryWith(b, a)

	all := registry.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(all))
	}
	if all[0].ID() != "npm" || all[1].ID() != "mise" {
		t.Errorf("order = [%s %s], want [npm mise]", all[0].ID(), all[1].ID())
	}
}

func TestRegistryDropsDuplicateIDs(t *testing.T) {
	a := NewMiseProvider(mockRun("", "", 0), pathYes, Timeouts{})
	b := NewMiseProvider(mockRun("", "", 0), pathYes, Timeouts{})
	registry := NewRegistryWith(a, b)

	if len(registry.IDs()) != 1 {
		t.Errorf("expected duplicate id to be dropped, got %v", registry.IDs())
	}
}
