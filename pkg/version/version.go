package version

var (
	// These values are injected during build - DO NOT MODIFY
	Version   = "VERSION_PLACEHOLDER"
	CommitSHA = "COMMIT_PLACEHOLDER"
)

// ExportFormat is the version stamped into exported word files.
const ExportFormat = "1.0.0"

func GetVersionInfo() string {
	return "SpellBee " + Version
}

func GetDetailedVersionInfo() string {
	return "SpellBee\n" +
		"Version:  " + Version + "\n" +
		"Commit:   " + CommitSHA + "\n" +
		"Export:   " + ExportFormat + "\n"
}
