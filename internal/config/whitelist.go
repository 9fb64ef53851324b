package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadWhitelistFile reads application identifiers from path, one per line.
// If the file does not exist, no identifiers are returned without an error.
// Blank lines, comments and lines that cannot be an identifier are skipped.
func LoadWhitelistFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Identifiers are reverse-DNS names: no spaces, at least one dot.
		if strings.ContainsAny(line, " \t") || !strings.Contains(line, ".") {
			continue
		}

		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return ids, err
	}

	return ids, nil
}
