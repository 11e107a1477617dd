package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadLines reads a file and returns its trimmed, non-empty lines. Lines
// starting with '#' are comments.
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	return lines, nil
}

// InScope reports whether host matches one of the scope patterns. A pattern
// is either an exact host or "*.example.com", which matches example.com and
// every subdomain. An empty scope matches everything.
func InScope(host string, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, pattern := range scope {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}
