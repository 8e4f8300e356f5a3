package buildconfig

// Build-time variables injected via ldflags:
//
//	-X github.com/Harshitk-cp/practicedesk/internal/buildconfig.version=v1.2.0
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// VersionInfo is served by GET /version.
func VersionInfo() map[string]string {
	info := map[string]string{
		"service": "practicedesk",
		"version": version,
		"commit":  commit,
	}
	if buildDate != "" {
		info["buildDate"] = buildDate
	}
	return info
}
