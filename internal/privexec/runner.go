package privexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/better-ecosystem/better-tor/internal/elevate"
	"github.com/better-ecosystem/better-tor/internal/helper"
	"github.com/better-ecosystem/better-tor/internal/logger"
)

// ErrPromptRefused is wrapped by ExecutionError when the escalation dialog
// was dismissed or authorization was denied.
var ErrPromptRefused = errors.New("privilege prompt was dismissed or denied")

// waitDelay bounds how long Run waits for stray children holding our pipes
// after the helper itself has exited or been killed.
const waitDelay = 5 * time.Second

// Commander builds an elevated command. *elevate.Elevator implements it.
type Commander interface {
	Command(ctx context.Context, name string, args ...string) (*exec.Cmd, error)
}

// Options configures a Runner.
type Options struct {
	Interpreter string        // prefix for the helper, e.g. "python3"; empty runs it directly
	Iptables    string        // iptables binary used by Probe
	Table       string        // table listed by Probe
	Timeout     time.Duration // bound for each run, including the privilege prompt
}

// Runner is the Executor backed by real processes.
type Runner struct {
	cmd    Commander
	helper helper.Locator
	opts   Options
}

// NewRunner creates a Runner. The helper is located lazily on the first
// Toggle or Refresh.
func NewRunner(cmd Commander, loc helper.Locator, opts Options) *Runner {
	if opts.Iptables == "" {
		opts.Iptables = "iptables"
	}
	if opts.Table == "" {
		opts.Table = "nat"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Runner{cmd: cmd, helper: loc, opts: opts}
}

// Probe runs `iptables -t <table> -S`.
func (r *Runner) Probe(ctx context.Context) (Invocation, error) {
	return r.run(ctx, Probe, r.opts.Iptables, "-t", r.opts.Table, "-S")
}

// Toggle runs the helper with --toggle.
func (r *Runner) Toggle(ctx context.Context) (Invocation, error) {
	return r.runHelper(ctx, Toggle, "--toggle")
}

// Refresh runs the helper with --refresh.
func (r *Runner) Refresh(ctx context.Context) (Invocation, error) {
	return r.runHelper(ctx, Refresh, "--refresh")
}

func (r *Runner) runHelper(ctx context.Context, d Directive, flag string) (Invocation, error) {
	path, err := r.helper.Ensure()
	if err != nil {
		return Invocation{Directive: d}, &StagingError{Err: err}
	}
	if r.opts.Interpreter != "" {
		return r.run(ctx, d, r.opts.Interpreter, path, flag)
	}
	return r.run(ctx, d, path, flag)
}

func (r *Runner) run(ctx context.Context, d Directive, name string, args ...string) (Invocation, error) {
	log := logger.With("privexec")
	inv := Invocation{Directive: d}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	cmd, err := r.cmd.Command(ctx, name, args...)
	if err != nil {
		return inv, &ExecutionError{Directive: d, Err: err}
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	inv.Duration = time.Since(start)
	inv.Stdout = stdout.String()
	inv.Stderr = stderr.String()

	log.Debug("privileged command finished",
		"directive", d.String(), "args", cmd.Args, "duration", inv.Duration, "err", err)

	if err == nil {
		inv.ExitSuccess = true
		return inv, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return inv, &ExecutionError{Directive: d, Stderr: inv.Stderr, Err: fmt.Errorf("%s did not finish: %w", name, ctxErr)}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return inv, &ExecutionError{Directive: d, Stderr: inv.Stderr, Err: err}
	}
	inv.ExitCode = exitErr.ExitCode()
	if elevate.PromptRefused(cmd.Path, inv.ExitCode) {
		return inv, &ExecutionError{Directive: d, Stderr: inv.Stderr, Err: ErrPromptRefused}
	}
	return inv, nil
}
