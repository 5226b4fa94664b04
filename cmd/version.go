package cmd

import (
	"fmt"
	"runtime"
)

// Version information (injected at build time via ldflags)
var Version = "development"

// runVersion displays version and build information.
func runVersion() {
	fmt.Printf("LawyerUp %s\n", Version)
	fmt.Printf("  go: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
