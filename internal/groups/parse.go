package groups

import (
	"bufio"
	"errors"
	"io"
	"net/mail"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

// usernamePattern is the host's username-token grammar: leading
// alphanumeric, then alphanumerics, dots, underscores and dashes.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// parseMembers reads a membership file line by line.
//
// Blank lines and lines whose first non-whitespace character is '#' are
// skipped. A line matching the username grammar becomes a username member; a
// line containing '@' past the first character is parsed as an address and
// its email portion kept. Anything else is logged with its line number and
// skipped; a bad line never aborts the file, and lines may be arbitrarily
// long.
func parseMembers(r io.Reader, refName, file string, commit plumbing.Hash, log zerolog.Logger) ([]string, error) {
	var members []string

	rd := bufio.NewReader(r)
	lineNbr := 0
	for {
		line, readErr := rd.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}
		if line != "" {
			lineNbr++
			line = strings.TrimSpace(line)
			switch {
			case line == "" || strings.HasPrefix(line, "#"):
				// Comments and blank lines.
			case usernamePattern.MatchString(line):
				members = append(members, line)
			case strings.Index(line, "@") > 0:
				addr, err := mail.ParseAddress(line)
				if err != nil {
					warnLine(log, lineNbr, refName, file, commit)
				} else {
					members = append(members, addr.Address)
				}
			default:
				warnLine(log, lineNbr, refName, file, commit)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return members, nil
		}
	}
}

func warnLine(log zerolog.Logger, lineNbr int, refName, file string, commit plumbing.Hash) {
	log.Warn().
		Int("line", lineNbr).
		Str("ref", refName).
		Str("file", file).
		Str("commit", commit.String()).
		Msg("invalid line in membership file")
}
