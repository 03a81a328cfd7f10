package providers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/updeck/updeck/internal/executor"
)

func TestParsePSModuleLines(t *testing.T) {
	output := "PSReadLine|2.3.4|2.4.0\nInvalid line without pipes\nPester|5.5.0|5.6.1\n"

	records := parsePSModuleLines(output)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "PSReadLine" || records[0].CurrentVersion != "2.3.4" || records[0].NewVersion != "2.4.0" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].ID != "Pester" {
		t.Errorf("records[1].ID = %q, want Pester", records[1].ID)
	}
}

func TestParsePSModuleLinesDropsMalformed(t *testing.T) {
	output := "OnlyName|\n|1.0.0|2.0.0\nName|1.0.0|\nSame|1.0.0|1.0.0\n"

	records := parsePSModuleLines(output)
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d: %+v", len(records), records)
	}
}

func TestPSModuleShellPrefersPwsh(t *testing.T) {
	provider := NewPSModuleProvider(mockRun("", "", 0), pathYes, Timeouts{})
	if provider.shell() != "pwsh" {
		t.Errorf("shell = %q, want pwsh", provider.shell())
	}

	onlyPowershell := NewPSModuleProvider(mockRun("", "", 0), func(name string) bool {
		return name == "powershell"
	}, Timeouts{})
	if onlyPowershell.shell() != "powershell" {
		t.Errorf("shell = %q, want powershell", onlyPowershell.shell())
	}
}

func TestPSModuleIsAvailable(t *testing.T) {
	provider := NewPSModuleProvider(mockRun("", "", 0), pathNo, Timeouts{})
	if provider.IsAvailable() {
		t.Error("IsAvailable should be false with no shell on path")
	}
}

func TestPSModuleCheckAttachesProviderID(t *testing.T) {
	provider := NewPSModuleProvider(mockRun("PSReadLine|2.3.4|2.4.0\n", "", 0), pathYes, Timeouts{})
	records, err := provider.CheckUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckUpdates failed: %v", err)
	}
	if len(records) != 1 || records[0].ProviderID != "psmodule" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestPSModuleUpdatePackage(t *testing.T) {
	var captured []string
	run := func(ctx context.Context, argv []string, timeout time.Duration) executor.Result {
		captured = argv
		return executor.Result{ExitCode: 0, Success: true}
	}

	provider := NewPSModuleProvider(run, pathYes, Timeouts{})
	if err := provider.UpdatePackage(context.Background(), "PSReadLine", UpdateOptions{}); err != nil {
		t.Fatalf("UpdatePackage failed: %v", err)
	}
	if captured[0] != "pwsh" {
		t.Errorf("argv[0] = %q, want pwsh", captured[0])
	}
	cmd := captured[len(captured)-1]
	if !strings.Contains(cmd, "Update-Module") || !strings.Contains(cmd, "PSReadLine") {
		t.Errorf("command = %q, want Update-Module with module name", cmd)
	}
}

func TestPSModuleUpdatePackageRejectsInvalidName(t *testing.T) {
	provider := NewPSModuleProvider(mockRun("", "", 0), pathYes, Timeouts{})
	for _, id := range []string{"", "bad name", "a'b", "x;y"} {
		if err := provider.UpdatePackage(context.Background(), id, UpdateOptions{}); err == nil {
			t.Errorf("name %q should be rejected", id)
		}
	}
}
