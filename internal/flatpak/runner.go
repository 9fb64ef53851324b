package flatpak

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"
)

// Runner executes flatpak. The default implementation shells out to the
// flatpak binary; tests substitute a fake.
type Runner interface {
	// Output runs flatpak and returns its standard output.
	Output(ctx context.Context, args ...string) ([]byte, error)
	// CombinedOutput runs flatpak and returns stdout and stderr together.
	CombinedOutput(ctx context.Context, args ...string) ([]byte, error)
	// Start launches flatpak without waiting for it to finish.
	Start(ctx context.Context, args ...string) (Process, error)
}

// Process is a running flatpak command.
type Process interface {
	// Output streams stdout and stderr merged, until the process exits.
	Output() io.Reader
	// Wait blocks until the process exits and the output stream is closed.
	Wait() error
}

// ExecRunner runs the flatpak binary found on PATH.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a Runner for the flatpak binary.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Binary: "flatpak"}
}

// interruptGrace is how long flatpak gets to roll back and release its
// locks after an interrupt before it is killed.
const interruptGrace = 10 * time.Second

// command builds a flatpak invocation that is interrupted, not killed, when
// ctx is cancelled.
func (r *ExecRunner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGrace
	return cmd
}

func (r *ExecRunner) Output(ctx context.Context, args ...string) ([]byte, error) {
	return r.command(ctx, args...).Output()
}

func (r *ExecRunner) CombinedOutput(ctx context.Context, args ...string) ([]byte, error) {
	return r.command(ctx, args...).CombinedOutput()
}

func (r *ExecRunner) Start(ctx context.Context, args ...string) (Process, error) {
	cmd := r.command(ctx, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, err
	}

	p := &execProcess{reader: pr, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		// Closing the writer delivers EOF to readers once the output is drained.
		pw.Close()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	reader *io.PipeReader
	done   chan struct{}
	err    error
}

func (p *execProcess) Output() io.Reader {
	return p.reader
}

func (p *execProcess) Wait() error {
	// The child blocks on a full pipe, so unread output must be discarded
	// before the exit status can be observed.
	_, _ = io.Copy(io.Discard, p.reader)
	<-p.done
	return p.err
}
