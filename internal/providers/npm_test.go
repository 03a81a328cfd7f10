package providers

import (
	"context"
	"testing"
	"time"

	"github.com/updeck/updeck/internal/executor"
)

func TestParseOutdatedJSON(t *testing.T) {
	raw := `{"typescript":{"current":"5.2.0","wanted":"5.2.2","latest":"5.3.0"},"lodash":{"current":"4.17.21","wanted":"4.17.21","latest":"4.17.21"}}`

	records := parseOutdatedJSON(raw, "npm")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.ID != "typescript" || r.CurrentVersion != "5.2.0" || r.NewVersion != "5.3.0" {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Status != StatusAvailable {
		t.Errorf("Status = %q, want available", r.Status)
	}
	if r.Source != "npm" {
		t.Errorf("Source = %q, want npm", r.Source)
	}
}

func TestParseOutdatedJSONInvalid(t *testing.T) {
	for _, raw := range []string{"not valid json", "", "[]", `{"broken":`} {
		records := parseOutdatedJSON(raw, "npm")
		if len(records) != 0 {
			t.Errorf("input %q: expected 0 records, got %d", raw, len(records))
		}
	}
}

func TestParseOutdatedJSONPreservesOrder(t *testing.T) {
	raw := `{"zeta":{"current":"1.0.0","latest":"2.0.0"},"alpha":{"current":"1.0.0","latest":"1.5.0"},"mid":{"current":"3.0.0","latest":"3.1.0"}}`

	records := parseOutdatedJSON(raw, "npm")
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []string{"zeta", "alpha", "mid"}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, id)
		}
	}
}

func TestParseOutdatedJSONScopedPackages(t *testing.T) {
	raw := `{"@angular/cli":{"current":"17.0.0","latest":"18.1.0"}}`

	records := parseOutdatedJSON(raw, "npm")
	if len(records) != 1 || records[0].ID != "@angular/cli" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestParseNpmOutdatedTable(t *testing.T) {
	output := `Package     Current  Wanted  Latest  Location
typescript  5.2.0    5.2.2   5.3.0   node_modules/typescript
eslint      8.50.0   8.57.0  9.5.0   node_modules/eslint
`

	records := parseNpmOutdatedTable(output)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CurrentVersion != "5.2.0" || records[0].NewVersion != "5.3.0" {
		t.Errorf("latest must come from the fourth column, got %+v", records[0])
	}
}

func TestParseNpmOutdatedTableDropsShortRows(t *testing.T) {
	output := "typescript  5.2.0  5.3.0\n"

	records := parseNpmOutdatedTable(output)
	if len(records) != 0 {
		t.Errorf("rows with fewer than 4 columns must be dropped, got %d records", len(records))
	}
}

func TestNpmCheckFallsBackToTable(t *testing.T) {
	output := `Package     Current  Wanted  Latest  Location
typescript  5.2.0    5.2.2   5.3.0   node_modules/typescript
`

	provider := NewNpmProvider(mockRun(output, "", 1), pathYes, Timeouts{})
	records, err := provider.CheckUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckUpdates failed: %v", err)
	}
	if len(records) != 1 || records[0].ProviderID != "npm" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestNpmCheckExitOneNoOutputMeansNothing(t *testing.T) {
	provider := NewNpmProvider(mockRun("", "", 1), pathYes, Timeouts{})
	records, err := provider.CheckUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckUpdates failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestNpmUpdatePackageArgv(t *testing.T) {
	var captured []string
	run := func(ctx context.Context, argv []string, timeout time.Duration) executor.Result {
		captured = argv
		return executor.Result{ExitCode: 0, Success: true}
	}

	provider := NewNpmProvider(run, pathYes, Timeouts{})
	if err := provider.UpdatePackage(context.Background(), "typescript", UpdateOptions{}); err != nil {
		t.Fatalf("UpdatePackage failed: %v", err)
	}
	want := []string{"npm", "install", "--global", "typescript@latest"}
	if len(captured) != len(want) {
		t.Fatalf("argv = %v, want %v", captured, want)
	}
	for i := range want {
		if captured[i] != want[i] {
			t.Fatalf("argv = %v, want %v", captured, want)
		}
	}
}

func TestNpmUpdatePackageRejectsInvalidName(t *testing.T) {
	provider := NewNpmProvider(mockRun("", "", 0), pathYes, Timeouts{})
	for _, id := range []string{"", "UPPER", "bad name", "a;b"} {
		if err := provider.UpdatePackage(context.Background(), id, UpdateOptions{}); err == nil {
			t.Errorf("name %q should be rejected", id)
		}
	}
}
