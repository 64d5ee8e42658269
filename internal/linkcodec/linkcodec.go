package linkcodec

import "strings"

// Separator joins the identifier and the display name in a link path.
const Separator = '_'

// Encode builds the link path for an artifact.
func Encode(id, displayName string) string {
	safe := strings.ReplaceAll(displayName, " ", string(Separator))
	return id + string(Separator) + safe
}

// Decode extracts the artifact identifier from a link path.
//
// The fixed-width prefix wins whenever it is followed by the separator, since
// display names may themselves contain underscores. Paths that predate fixed
// identifiers fall back to the first separator, and inputs without any
// separator are treated as bare legacy identifiers.
func Decode(path string) string {
	if len(path) > IDLength && path[IDLength] == Separator {
		return path[:IDLength]
	}
	if pos := strings.IndexByte(path, Separator); pos >= 0 {
		return path[:pos]
	}
	return path
}

// SafeName returns the display name as it appears inside a link path.
func SafeName(displayName string) string {
	return strings.ReplaceAll(displayName, " ", string(Separator))
}
