package hostinfo

import (
	"runtime"
	"testing"
)

func TestCollect(t *testing.T) {
	info := Collect()

	if info.Architecture != runtime.GOARCH {
		t.Errorf("Architecture = %q, want %q", info.Architecture, runtime.GOARCH)
	}
	if info.OSType == "" {
		t.Error("OSType should never be empty")
	}
	if info.OSType == "darwin" {
		t.Error("darwin should be normalized to macos")
	}
}

func TestNormalizeOSType(t *testing.T) {
	if normalizeOSType("darwin") != "macos" {
		t.Error("darwin should map to macos")
	}
	if normalizeOSType("linux") != "linux" {
		t.Error("linux should pass through")
	}
}
