package catalog

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// SchemaVersion is the layout version of catalog entries. Entries written
// under another minor or patch version remain readable.
const SchemaVersion = "v1.0.0"

// compatible reports whether a catalog written at version can be read by
// this build.
func compatible(version string) (bool, error) {
	if !semver.IsValid(version) {
		return false, fmt.Errorf("invalid catalog version %q", version)
	}
	return semver.Major(version) == semver.Major(SchemaVersion), nil
}
