package groups

import "errors"

// Resolution failures. Each one is fatal to a single load attempt; the
// backend collapses all of them into "group does not resolve" and answers
// membership queries with false.
var (
	ErrMissingBranch = errors.New("branch does not exist")
	ErrMissingFile   = errors.New("file does not exist")
	ErrNotABlob      = errors.New("not a blob")
	ErrRepository    = errors.New("cannot read repository")
)

// IsInvalidGroup reports whether err is one of the resolution failures,
// including a malformed UUID.
func IsInvalidGroup(err error) bool {
	return errors.Is(err, ErrMalformedID) ||
		errors.Is(err, ErrMissingBranch) ||
		errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrNotABlob) ||
		errors.Is(err, ErrRepository)
}
