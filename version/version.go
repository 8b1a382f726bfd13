// Package version reports the library version for User-Agent headers.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// ModulePath is the import path version information is looked up under.
const ModulePath = "github.com/kbukum/foundation"

// Version is set at build time with -ldflags. Otherwise it is read from
// the build info of the binary embedding this module.
var Version = ""

// Info describes the build.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

var (
	once sync.Once
	info Info
)

// Get returns the version information, computed once.
func Get() Info {
	once.Do(func() {
		bi, _ := debug.ReadBuildInfo()
		info = fromBuildInfo(bi, Version)
	})
	return info
}

func fromBuildInfo(bi *debug.BuildInfo, override string) Info {
	i := Info{Version: override, GoVersion: runtime.Version()}
	if bi == nil {
		if i.Version == "" {
			i.Version = "dev"
		}
		return i
	}

	if i.Version == "" {
		if bi.Main.Path == ModulePath {
			i.Version = bi.Main.Version
		}
		for _, dep := range bi.Deps {
			if dep.Path == ModulePath {
				i.Version = dep.Version
			}
		}
	}
	if i.Version == "" || i.Version == "(devel)" {
		i.Version = "dev"
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
			if len(i.Commit) > 7 {
				i.Commit = i.Commit[:7]
			}
		case "vcs.modified":
			i.Dirty = s.Value == "true"
		}
	}
	return i
}

// UserAgent returns the default User-Agent, e.g. "foundation/v1.2.0 (go1.26.0)".
func UserAgent() string {
	i := Get()
	return fmt.Sprintf("foundation/%s (%s)", i.Version, i.GoVersion)
}
