package flatpak

import (
	"fmt"
	"os"
	"strings"
)

// Installed is one application reported by `flatpak list`.
type Installed struct {
	ID      string
	Version string
}

// Scope selects the flatpak installation every command operates on.
// It is resolved once at startup and threaded through the Client.
type Scope int

const (
	// ScopeSystem targets the system-wide installation (requires root).
	ScopeSystem Scope = iota
	// ScopeUser targets the per-user installation (--user).
	ScopeUser
)

// String returns the string representation of the scope
func (s Scope) String() string {
	switch s {
	case ScopeSystem:
		return "system"
	case ScopeUser:
		return "user"
	default:
		return "unknown"
	}
}

// ParseScope converts "system" or "user" into a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return ScopeSystem, nil
	case "user":
		return ScopeUser, nil
	default:
		return ScopeUser, fmt.Errorf("unknown scope %q (expected system or user)", s)
	}
}

// DetectScope picks the system installation when running as root and the
// per-user installation otherwise.
func DetectScope() Scope {
	if os.Geteuid() == 0 {
		return ScopeSystem
	}
	return ScopeUser
}

// flags returns the scope selector inserted after the flatpak verb.
func (s Scope) flags() []string {
	if s == ScopeUser {
		return []string{"--user"}
	}
	return nil
}

// Kind identifies a mutation dispatched to flatpak.
type Kind string

const (
	KindInstall   Kind = "install"
	KindUninstall Kind = "uninstall"
	KindUpdate    Kind = "update"
)

// ParseKind converts a verb into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindInstall, KindUninstall, KindUpdate:
		return k, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}
