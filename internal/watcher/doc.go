// Package watcher re-reconciles applications when a flatpak installation
// changes.
//
// flatpak touches the .changed file at the root of an installation after
// every transaction, and deploys applications under its app directory. The
// Watcher listens for both with fsnotify, coalesces bursts of events into a
// single refresh after a debounce interval, and calls the Refresher.
//
// Example usage:
//
//	dir, err := watcher.InstallationDir(flatpak.ScopeUser)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	w, err := watcher.New(manager, []string{dir}, 2*time.Second, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := w.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
