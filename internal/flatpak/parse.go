package flatpak

import "strings"

// ParseInstalled parses the tab-delimited output of `flatpak list --app`.
//
// Each line is expected to look like:
//
//	Name\torg.example.App\t1.2.3\tstable\t...
//
// The first field and everything after the version are ignored. A line that
// does not have this shape becomes an entry whose identifier is the whole
// line and whose version is empty; one bad line never aborts the listing.
func ParseInstalled(output string) []Installed {
	var installed []Installed
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		installed = append(installed, parseInstalledLine(line))
	}
	return installed
}

func parseInstalledLine(line string) Installed {
	fields := strings.SplitN(line, "\t", 4)
	if len(fields) < 4 {
		return Installed{ID: strings.TrimSpace(line)}
	}
	return Installed{
		ID:      strings.TrimSpace(fields[1]),
		Version: strings.TrimSpace(fields[2]),
	}
}
