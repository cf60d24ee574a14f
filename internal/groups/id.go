package groups

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// UUIDPrefix tags every group UUID handled by this backend.
	UUIDPrefix = "git:"

	// NamePrefix is the display form of UUIDPrefix.
	NamePrefix = "git/"

	// DefaultBranch is resolved when the UUID omits the branch field.
	DefaultBranch = "HEAD"
)

// ErrMalformedID reports a group UUID that does not follow the
// "git:<project>:<file>" or "git:<project>:<branch>:<file>" format.
var ErrMalformedID = errors.New("malformed group id")

// ID is a parsed group UUID. It names one membership file in one project.
type ID struct {
	raw     string
	Project string
	Branch  string
	File    string
}

// Handles reports whether uuid belongs to this backend's namespace.
func Handles(uuid string) bool {
	return strings.HasPrefix(uuid, UUIDPrefix)
}

// ParseID parses a group UUID.
//
// The remainder after the "git:" prefix must split on ":" into exactly two
// fields (project and file, branch defaulting to HEAD) or three fields
// (project, branch, file).
func ParseID(uuid string) (ID, error) {
	if !strings.HasPrefix(uuid, UUIDPrefix) {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformedID, uuid)
	}

	p := strings.Split(uuid[len(UUIDPrefix):], ":")
	switch len(p) {
	case 2:
		return ID{raw: uuid, Project: p[0], Branch: DefaultBranch, File: p[1]}, nil
	case 3:
		return ID{raw: uuid, Project: p[0], Branch: p[1], File: p[2]}, nil
	default:
		return ID{}, fmt.Errorf("%w: %q", ErrMalformedID, uuid)
	}
}

// String returns the UUID text the ID was parsed from.
func (id ID) String() string {
	return id.raw
}

// DisplayName returns the human-facing group name, "git/" followed by the
// UUID remainder verbatim.
func (id ID) DisplayName() string {
	return DisplayNameOf(id.raw)
}

// DisplayNameOf converts a group UUID to its display name without parsing it.
func DisplayNameOf(uuid string) string {
	return NamePrefix + strings.TrimPrefix(uuid, UUIDPrefix)
}
