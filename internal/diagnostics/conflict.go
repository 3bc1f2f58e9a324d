// Package diagnostics enriches the AccessDenied error text by naming the
// process actually holding the device, instead of printing a generic
// "close other wallet apps" list. It does this in pure Go via gopsutil so
// it works the same way on Windows, macOS, and Linux without spawning a
// subprocess.
package diagnostics

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// knownConflictors are process names known to hold a wallet device open.
// Matching is case-insensitive and by substring, since packaged binaries
// often carry a platform suffix (KeepKeyDesktop.exe, keepkey-bridge, ...).
var knownConflictors = []string{
	"keepkeydesktop",
	"keepkey-bridge",
	"kkbridge",
	"vault",
	"trezord",
	"trezor-bridge",
}

// FindConflictingProcess scans the local process list for a process name
// matching a known wallet companion app or bridge daemon. It returns the
// first match's display name, or "" if none is found or the scan fails.
//
// This is best-effort: a failure to enumerate processes (sandboxing,
// permissions) must never block returning the generic AccessDenied error, so
// errors are swallowed here and surfaced as a plain empty result.
func FindConflictingProcess() string {
	procs, err := process.Processes()
	if err != nil {
		return ""
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		lower := strings.ToLower(name)
		for _, known := range knownConflictors {
			if strings.Contains(lower, known) {
				return name
			}
		}
	}
	return ""
}
