package version

import "runtime/debug"

// Version is the release tag, overridden at build time with
// -ldflags "-X monolithgo/pkg/version.Version=...".
var Version = "v0.1.0-dev"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Current returns Version together with the VCS stamp the toolchain embedded, if any.
func Current() Info {
	bi, _ := debug.ReadBuildInfo()
	return fromBuildInfo(Version, bi)
}

const shortRevision = 12

func fromBuildInfo(v string, bi *debug.BuildInfo) Info {
	info := Info{Version: v}
	if bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
			if len(info.Revision) > shortRevision {
				info.Revision = info.Revision[:shortRevision]
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String renders the version with its revision, e.g. "v0.2.0 (1a2b3c4d5e6f, modified)".
func (i Info) String() string {
	if i.Revision == "" {
		return i.Version
	}
	s := i.Version + " (" + i.Revision
	if i.Modified {
		s += ", modified"
	}
	return s + ")"
}
