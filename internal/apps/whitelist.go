package apps

import "strings"

// Whitelist is the set of identifiers allowed to appear in listings.
// An empty whitelist admits nothing.
type Whitelist map[string]struct{}

// NewWhitelist builds a Whitelist from identifiers, ignoring blanks.
func NewWhitelist(ids ...string) Whitelist {
	wl := make(Whitelist, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		wl[id] = struct{}{}
	}
	return wl
}

// Allows reports whether id is whitelisted. A nil Whitelist allows nothing.
func (w Whitelist) Allows(id string) bool {
	_, ok := w[id]
	return ok
}

// Len returns the number of whitelisted identifiers.
func (w Whitelist) Len() int {
	return len(w)
}
