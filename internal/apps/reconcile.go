package apps

import (
	"strings"

	"github.com/blackwell-systems/flatshelf/internal/catalog"
	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

// Reconcile joins catalog entries with locally installed applications by
// identifier. Catalog order is preserved. When the local listing repeats an
// identifier the last occurrence wins; when the catalog repeats one only the
// first is kept.
func Reconcile(entries []catalog.Entry, installed []flatpak.Installed) *Set {
	local := make(map[string]string, len(installed))
	for _, inst := range installed {
		local[strings.TrimSpace(inst.ID)] = inst.Version
	}

	s := &Set{
		apps:  make([]Application, 0, len(entries)),
		index: make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if _, dup := s.index[id]; dup {
			continue
		}

		app := Application{
			ID:               id,
			Name:             e.Name,
			Description:      e.Summary,
			IconURL:          e.IconURL,
			AvailableVersion: e.Version,
		}
		if version, ok := local[id]; ok {
			app.Installed = true
			app.InstalledVersion = version
		}

		s.index[id] = len(s.apps)
		s.apps = append(s.apps, app)
	}

	return s
}
