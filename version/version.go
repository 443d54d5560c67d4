// Package version reports the build version of the module.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "(devel)"

// Version is set at link time with -ldflags "-X .../version.Version=v1.2.3".
//
//nolint:gochecknoglobals
var Version = ""

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("saprobe-bitdepth %s (%s, %s/%s)", resolve(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func resolve() string {
	if Version != "" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return unknown
	}

	return info.Main.Version
}
