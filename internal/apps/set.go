package apps

// Set is the immutable result of one reconciliation.
type Set struct {
	apps  []Application
	index map[string]int
}

// Len returns the number of applications in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.apps)
}

// All returns a copy of every application in catalog order.
func (s *Set) All() []Application {
	return s.filter(func(Application) bool { return true })
}

// Lookup returns the application with the given identifier. The whitelist
// does not apply to direct lookups.
func (s *Set) Lookup(id string) (Application, bool) {
	if s == nil {
		return Application{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Application{}, false
	}
	return s.apps[i], true
}

// Available returns whitelisted applications that can be installed. An
// installed application still shows up while it is busy so an in-flight
// operation stays visible.
func (s *Set) Available(wl Whitelist) []Application {
	return s.filter(func(a Application) bool {
		return wl.Allows(a.ID) && (!a.Installed || a.Busy)
	})
}

// Installed returns whitelisted applications that are installed and idle.
func (s *Set) Installed(wl Whitelist) []Application {
	return s.filter(func(a Application) bool {
		return a.Installed && wl.Allows(a.ID) && !a.Busy
	})
}

// Updates returns installed, idle, whitelisted applications whose installed
// version differs from the catalog's.
func (s *Set) Updates(wl Whitelist) []Application {
	return s.filter(func(a Application) bool {
		return a.Installed && wl.Allows(a.ID) && !a.Busy && a.HasUpdate()
	})
}

// withBusy returns a copy of the set with Busy set for exactly the given ids.
func (s *Set) withBusy(busy map[string]struct{}) *Set {
	out := &Set{
		apps:  make([]Application, len(s.apps)),
		index: s.index,
	}
	copy(out.apps, s.apps)
	for i := range out.apps {
		_, out.apps[i].Busy = busy[out.apps[i].ID]
	}
	return out
}

func (s *Set) filter(keep func(Application) bool) []Application {
	result := []Application{}
	if s == nil {
		return result
	}
	for _, a := range s.apps {
		if keep(a) {
			result = append(result, a)
		}
	}
	return result
}
