package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/flatshelf/internal/catalog"
	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

func testSet() *Set {
	entries := []catalog.Entry{
		{ID: "org.app.NotInstalled", Version: "1.0"},
		{ID: "org.app.Current", Version: "2.0"},
		{ID: "org.app.Outdated", Version: "3.1"},
		{ID: "org.app.Hidden", Version: "1.0"},
	}
	installed := []flatpak.Installed{
		{ID: "org.app.Current", Version: "2.0"},
		{ID: "org.app.Outdated", Version: "3.0"},
		{ID: "org.app.Hidden", Version: "1.0"},
	}
	return Reconcile(entries, installed)
}

func ids(apps []Application) []string {
	out := []string{}
	for _, a := range apps {
		out = append(out, a.ID)
	}
	return out
}

var testWhitelist = NewWhitelist("org.app.NotInstalled", "org.app.Current", "org.app.Outdated")

func TestSetAvailable(t *testing.T) {
	s := testSet()
	assert.Equal(t, []string{"org.app.NotInstalled"}, ids(s.Available(testWhitelist)))
}

func TestSetInstalled(t *testing.T) {
	s := testSet()
	assert.Equal(t, []string{"org.app.Current", "org.app.Outdated"}, ids(s.Installed(testWhitelist)))
}

func TestSetUpdates(t *testing.T) {
	s := testSet()
	assert.Equal(t, []string{"org.app.Outdated"}, ids(s.Updates(testWhitelist)))
}

func TestWhitelistFailsClosed(t *testing.T) {
	s := testSet()
	require.Equal(t, 4, s.Len())

	for name, wl := range map[string]Whitelist{"nil": nil, "empty": NewWhitelist(), "blank ids": NewWhitelist("", "  ")} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, s.Available(wl))
			assert.Empty(t, s.Installed(wl))
			assert.Empty(t, s.Updates(wl))
		})
	}
}

func TestBusyMovesInstalledToAvailable(t *testing.T) {
	s := testSet().withBusy(map[string]struct{}{"org.app.Current": {}})

	assert.Contains(t, ids(s.Available(testWhitelist)), "org.app.Current")
	assert.NotContains(t, ids(s.Installed(testWhitelist)), "org.app.Current")

	idle := testSet()
	assert.NotContains(t, ids(idle.Available(testWhitelist)), "org.app.Current")
	assert.Contains(t, ids(idle.Installed(testWhitelist)), "org.app.Current")
}

func TestBusyNotInstalledStaysAvailable(t *testing.T) {
	s := testSet().withBusy(map[string]struct{}{"org.app.NotInstalled": {}})
	assert.Contains(t, ids(s.Available(testWhitelist)), "org.app.NotInstalled")
}

func TestWithBusyDoesNotMutateOriginal(t *testing.T) {
	s := testSet()
	_ = s.withBusy(map[string]struct{}{"org.app.Current": {}})

	app, ok := s.Lookup("org.app.Current")
	require.True(t, ok)
	assert.False(t, app.Busy)
}

func TestLookupBypassesWhitelist(t *testing.T) {
	s := testSet()

	app, ok := s.Lookup("org.app.Hidden")
	require.True(t, ok)
	assert.True(t, app.Installed)

	_, ok = s.Lookup("org.app.Missing")
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	s := testSet()
	all := s.All()
	all[0].Name = "mutated"

	app, _ := s.Lookup(all[0].ID)
	assert.NotEqual(t, "mutated", app.Name)
}

func TestNilSetIsEmpty(t *testing.T) {
	var s *Set
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Available(testWhitelist))
	assert.Empty(t, s.Installed(testWhitelist))
	_, ok := s.Lookup("org.app.Current")
	assert.False(t, ok)
}

func TestHasUpdate(t *testing.T) {
	tests := []struct {
		name string
		app  Application
		want bool
	}{
		{"not installed", Application{AvailableVersion: "2"}, false},
		{"same version", Application{Installed: true, InstalledVersion: "2", AvailableVersion: "2"}, false},
		{"different version", Application{Installed: true, InstalledVersion: "1", AvailableVersion: "2"}, true},
		{"no catalog version", Application{Installed: true, InstalledVersion: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.app.HasUpdate())
		})
	}
}

// Worked example: one catalog entry installed at an older version.
func TestQueryExample(t *testing.T) {
	s := Reconcile(
		[]catalog.Entry{{ID: "org.app.Foo", Version: "2.0"}},
		flatpak.ParseInstalled("app\torg.app.Foo\t1.0\tstable"),
	)
	wl := NewWhitelist("org.app.Foo")

	app, ok := s.Lookup("org.app.Foo")
	require.True(t, ok)
	assert.True(t, app.Installed)
	assert.Equal(t, "1.0", app.InstalledVersion)
	assert.Equal(t, "2.0", app.AvailableVersion)

	assert.Equal(t, []Application{app}, s.Installed(wl))
	assert.Empty(t, s.Available(wl))
}
