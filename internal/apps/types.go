// Package apps joins the Flathub catalog with the local installation listing.
//
// Reconcile builds an immutable Set with one Application per catalog
// identifier. The catalog decides which applications exist and which version
// is available; the local listing decides which are installed and at what
// version. Applications installed locally but absent from the catalog are
// not represented.
//
// Queries never mutate a Set. Manager owns the current Set, rebuilds it on
// Refresh and swaps it atomically, so readers never see a partial update.
package apps

// Application is one catalog package merged with its local state.
type Application struct {
	ID          string
	Name        string
	Description string
	IconURL     string

	Installed        bool
	InstalledVersion string // empty unless Installed
	AvailableVersion string

	// Busy marks an install, uninstall or update in flight. It is supplied by
	// the caller and never derived from either data source.
	Busy bool
}

// HasUpdate reports whether the installed version differs from the one the
// catalog publishes. Versions are compared as opaque strings.
func (a Application) HasUpdate() bool {
	return a.Installed && a.AvailableVersion != "" && a.InstalledVersion != a.AvailableVersion
}
