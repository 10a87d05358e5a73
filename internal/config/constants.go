package config

const (
	// DefaultDatabasePath is the default path for the frontend's own database
	// (visitor sessions).
	DefaultDatabasePath = "./shelfront.db"

	// DefaultCoverCacheDir is where fetched cover images are kept.
	DefaultCoverCacheDir = "./covers"
)

// SectionNames are the env prefixes of the per-section endpoint overrides.
var SectionNames = []string{"ebooks", "comics", "audiobooks", "series"}
