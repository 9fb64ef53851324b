package flatpak

import (
	"fmt"
	"io"
	"strings"
)

// Operation is a handle to a dispatched install, uninstall or update.
type Operation struct {
	Kind  Kind
	AppID string
	Scope Scope
	Args  []string

	proc Process
}

// Output streams the merged stdout and stderr of the flatpak process.
func (o *Operation) Output() io.Reader {
	return o.proc.Output()
}

// Wait blocks until flatpak exits. Output not consumed before Wait is
// discarded.
func (o *Operation) Wait() error {
	if err := o.proc.Wait(); err != nil {
		return fmt.Errorf("flatpak %s %s failed: %w", o.Kind, o.AppID, err)
	}
	return nil
}

// CommandLine returns the flatpak invocation for display.
func (o *Operation) CommandLine() string {
	return "flatpak " + strings.Join(o.Args, " ")
}
