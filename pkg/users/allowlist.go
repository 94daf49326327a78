package users

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseAllowlist reads one user per line. Blank lines and lines starting
// with '#' are ignored, as is anything after a '#' on a line. Surrounding
// whitespace is trimmed.
func ParseAllowlist(r io.Reader) (map[string]struct{}, error) {
	users := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			return nil, fmt.Errorf("line %d: user %q contains whitespace", lineNo, line)
		}
		users[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allowlist: %w", err)
	}

	return users, nil
}

// LoadAllowlist reads and parses the allowlist file at path.
func LoadAllowlist(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open allowlist: %w", err)
	}
	defer f.Close()

	users, err := ParseAllowlist(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return users, nil
}
