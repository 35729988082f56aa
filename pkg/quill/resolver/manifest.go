package resolver

import (
	"bufio"
	"io"
	"strings"
)

// ParseManifest reads glob patterns from a .document manifest. A # starts a
// comment running to the end of the line; patterns are separated by
// whitespace and returned in file order.
func ParseManifest(r io.Reader) ([]string, error) {
	var patterns []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		patterns = append(patterns, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}
