package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var readBuildInfo = debug.ReadBuildInfo

// Version returns the module version or "dev" when unset.
func Version() string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	return version(info)
}

func version(info *debug.BuildInfo) string {
	v := info.Main.Version
	if v == "" || v == "(devel)" {
		return "dev"
	}
	return v
}

// Revision returns the abbreviated VCS revision, suffixed with "-dirty"
// when the tree had local modifications, or "" when unknown.
func Revision() string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return ""
	}
	return revision(info)
}

func revision(info *debug.BuildInfo) string {
	var rev string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// String returns the version followed by the revision when known.
func String() string {
	v, rev := Version(), Revision()
	if rev == "" {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, rev)
}
