// Package hostinfo describes the machine updeck is running on, for the
// doctor diagnostics output.
package hostinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type Info struct {
	Hostname     string `json:"hostname"`
	OSType       string `json:"osType"`
	OSVersion    string `json:"osVersion"`
	KernelBuild  string `json:"kernelBuild,omitempty"`
	Architecture string `json:"architecture"`
	RAMTotalMB   uint64 `json:"ramTotalMb"`
	UptimeSecs   uint64 `json:"uptimeSecs"`
}

// Collect gathers host details. Individual probe failures leave their
// fields zero rather than failing the whole collection.
func Collect() Info {
	info := Info{
		Architecture: runtime.GOARCH,
		OSType:       normalizeOSType(runtime.GOOS),
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.OSType = normalizeOSType(h.OS)
		info.OSVersion = h.Platform + " " + h.PlatformVersion
		info.KernelBuild = h.KernelVersion
		info.UptimeSecs = h.Uptime
	}

	if m, err := mem.VirtualMemory(); err == nil {
		info.RAMTotalMB = m.Total / (1024 * 1024)
	}

	return info
}

func normalizeOSType(os string) string {
	if os == "darwin" {
		return "macos"
	}
	return os
}
