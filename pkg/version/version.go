package version

// Application version information, set at build time with -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// String renders the version and, when known, the commit.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
