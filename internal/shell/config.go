// Package shell makes flatpak-exported desktop entries visible to the
// user's session by putting the installation's exports directory on
// XDG_DATA_DIRS.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	marker = "# flatshelf exports"

	// defaultDataDirs is the XDG fallback when XDG_DATA_DIRS is unset.
	defaultDataDirs = "/usr/local/share:/usr/share"
)

// ExportsDir returns the directory flatpak exports .desktop files and icons
// to for the installation rooted at installDir.
func ExportsDir(installDir string) string {
	return filepath.Join(installDir, "exports", "share")
}

// OnDataDirs reports whether dir is listed in XDG_DATA_DIRS. Trailing
// slashes are ignored.
func OnDataDirs(dir string) bool {
	dirs := os.Getenv("XDG_DATA_DIRS")
	if dirs == "" {
		dirs = defaultDataDirs
	}
	want := filepath.Clean(dir)
	for _, entry := range filepath.SplitList(dirs) {
		if entry != "" && filepath.Clean(entry) == want {
			return true
		}
	}
	return false
}

// EnsureDataDirEntry checks whether dir is on XDG_DATA_DIRS and, if not,
// appends an export line to the appropriate shell config file.
// added=false means nothing was written, either because dir is already on
// XDG_DATA_DIRS (configFile is "") or because the config file already
// carries the flatshelf entry.
func EnsureDataDirEntry(dir string) (added bool, configFile string, err error) {
	if OnDataDirs(dir) {
		return false, "", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return false, "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	var configPath string
	var isFish bool

	switch filepath.Base(os.Getenv("SHELL")) {
	case "zsh":
		configPath = filepath.Join(home, ".zprofile")
	case "bash":
		configPath = filepath.Join(home, ".bash_profile")
	case "fish":
		configPath = filepath.Join(home, ".config", "fish", "conf.d", "flatshelf.fish")
		isFish = true
	default:
		configPath = filepath.Join(home, ".profile")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return false, "", fmt.Errorf("cannot create config directory %s: %w", filepath.Dir(configPath), err)
	}

	if existing, readErr := os.ReadFile(configPath); readErr == nil {
		if strings.Contains(string(existing), marker) {
			return false, configPath, nil
		}
	}

	var line string
	if isFish {
		line = fmt.Sprintf("\n%s\nset -gx --path XDG_DATA_DIRS %q $XDG_DATA_DIRS\n", marker, dir)
	} else {
		line = fmt.Sprintf("\n%s\nexport XDG_DATA_DIRS=%q:\"${XDG_DATA_DIRS:-%s}\"\n", marker, dir, defaultDataDirs)
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return false, "", fmt.Errorf("cannot open config file %s: %w", configPath, err)
	}
	defer f.Close()

	if _, err := fmt.Fprint(f, line); err != nil {
		return false, "", fmt.Errorf("cannot write to config file %s: %w", configPath, err)
	}

	return true, configPath, nil
}
