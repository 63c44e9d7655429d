package version

import (
	"fmt"
	"runtime"
)

// Build-time variables injected by ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// GetVersionString returns the bare version for cobra's --version flag.
func GetVersionString() string {
	return Version
}

// GetFullVersionString returns the multi-line version report.
func GetFullVersionString() string {
	return fmt.Sprintf("clawup %s\nBuilt: %s\nGo: %s",
		Version, BuildTime, runtime.Version())
}
