package version

import "runtime/debug"

// Version is the current version of the codehive CLI. Release builds set it
// with:
//
//	go build -ldflags="-X 'github.com/codehiveofficial/codehive/internal/version.Version=v1.0.0'"
var Version = "dev"

// String returns Version, falling back to the module version recorded in
// the binary when installed with go install.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
