// Package misc keeps program identity in a single place.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "sbadm"

// set by linker flags on release builds
var (
	version = ""
	gitHash = ""
)

var buildInfo = sync.OnceValue(func() (out struct{ ver, hash string }) {
	out.ver, out.hash = version, gitHash
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if len(out.ver) == 0 && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.ver = bi.Main.Version
	}
	if len(out.hash) == 0 {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				out.hash = s.Value
				if len(out.hash) > 12 {
					out.hash = out.hash[:12]
				}
				break
			}
		}
	}
	return
})

func GetAppName() string {
	return appName
}

// GetVersion returns program version, "dev" when it cannot be determined.
func GetVersion() string {
	if v := buildInfo().ver; len(v) > 0 {
		return v
	}
	return "dev"
}

// GetGitHash returns abbreviated vcs revision the program was built from.
func GetGitHash() string {
	if h := buildInfo().hash; len(h) > 0 {
		return h
	}
	return "unknown"
}
