// Package version resolves the version string the binaries report: an
// explicit build-time override when one was set, the vcs revision of the
// build otherwise.
package version

import "runtime/debug"

// Version is empty unless set at build time, e.g.:
//
//	go build -ldflags "-X github.com/Lcchy/gisele/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short vcs revision the binary was built from, suffixed
// with -dirty when the tree had local modifications. Empty when no build
// info is available.
var Hash = vcsHash()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func vcsHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}
