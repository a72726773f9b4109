package intermediate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"nerassemble/internal/services"
)

const (
	openPrefix  = "<FILENAME"
	closePrefix = "</FILENAME>"
)

// openPattern accepts id="..", docid=".." and annotated-id="..", optionally
// preceded by other attributes. The first identifier attribute wins.
var openPattern = regexp.MustCompile(`^<FILENAME\s+(?:[^>]*?\s)??(?:doc|annotated-)?id="([^"]*)"`)

// ErrNoIdentifier reports an open line whose identifier cannot be recovered.
var ErrNoIdentifier = errors.New("open line carries no identifier")

// IsOpenLine reports whether line starts a document block.
func IsOpenLine(line string) bool {
	return strings.HasPrefix(line, openPrefix)
}

// IsCloseLine reports whether line ends a document block.
func IsCloseLine(line string) bool {
	return strings.HasPrefix(line, closePrefix)
}

// ExtractID returns the identifier carried by an open line. Lines that start
// with the open tag but do not match the pattern are a fatal parse error.
func ExtractID(line string) (string, error) {
	match := openPattern.FindStringSubmatch(line)
	if match == nil {
		return "", services.Wrap(services.ErrValidation, "parse", "extract id",
			fmt.Sprintf("%q", truncate(strings.TrimRight(line, "\r\n"), 120)), ErrNoIdentifier)
	}
	return match[1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
