package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/better-ecosystem/better-tor/internal/logger"
	"github.com/better-ecosystem/better-tor/internal/privexec"
)

// Inspect reads the live table. Failures report StateInactive.
func (c *Controller) Inspect(ctx context.Context) State {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		logger.With("core").Warn("inspection abandoned, reporting inactive", "err", err)
		return StateInactive
	}
	defer c.gate.Release(1)

	state := StateFromActive(c.inspector.Active(ctx))
	c.broadcastStatus(StatusPayload{State: state, CheckedAt: time.Now()})
	return state
}

// Toggle flips anonymized routing and returns the state read back from the
// table afterwards. The returned State is meaningful only when err is nil.
//
// Errors are *privexec.StagingError, *privexec.ExecutionError or
// *privexec.HelperError, or the context's error if ctx ends while waiting
// for another toggle.
func (c *Controller) Toggle(ctx context.Context) (State, error) {
	log := logger.With("core").With("op", uuid.NewString())

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return StateInactive, err
	}
	defer c.gate.Release(1)

	log.Info("toggling anonymized routing")
	if err := c.run(ctx, log, privexec.Toggle); err != nil {
		c.broadcastFailure(err)
		return StateInactive, err
	}

	// The helper has exited; read back rather than assume the flip worked.
	state := StateFromActive(c.inspector.Active(ctx))
	log.Info("toggle complete", "state", state)
	c.broadcastStatus(StatusPayload{State: state, CheckedAt: time.Now()})
	return state, nil
}

// Refresh asks Tor for new circuits. It shares the toggle's gate and error
// taxonomy; the routing state is not changed.
func (c *Controller) Refresh(ctx context.Context) error {
	log := logger.With("core").With("op", uuid.NewString())

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.gate.Release(1)

	log.Info("requesting new tor identity")
	if err := c.run(ctx, log, privexec.Refresh); err != nil {
		return err
	}
	log.Info("tor identity refreshed")
	return nil
}

// run executes d and maps a non-zero exit to *privexec.HelperError. The
// caller must hold the gate.
func (c *Controller) run(ctx context.Context, log *slog.Logger, d privexec.Directive) error {
	var (
		inv privexec.Invocation
		err error
	)
	switch d {
	case privexec.Toggle:
		inv, err = c.exec.Toggle(ctx)
	case privexec.Refresh:
		inv, err = c.exec.Refresh(ctx)
	default:
		inv, err = c.exec.Probe(ctx)
	}

	if err != nil {
		var stagingErr *privexec.StagingError
		var execErr *privexec.ExecutionError
		switch {
		case errors.As(err, &stagingErr):
			log.Error("helper staging failed", "directive", d.String(), "err", stagingErr.Err)
		case errors.As(err, &execErr):
			log.Error("helper did not complete", "directive", d.String(), "err", execErr.Err, "stderr", execErr.Stderr)
		default:
			log.Error("helper failed", "directive", d.String(), "err", err)
		}
		return err
	}

	if !inv.ExitSuccess {
		log.Error("helper reported failure",
			"directive", d.String(), "exit_code", inv.ExitCode, "duration", inv.Duration, "stderr", inv.Stderr)
		return &privexec.HelperError{Directive: d, ExitCode: inv.ExitCode, Stderr: inv.Stderr}
	}
	return nil
}

// broadcastFailure reports err with StateUnknown; callers that need the
// state afterwards must Inspect.
func (c *Controller) broadcastFailure(err error) {
	c.broadcastStatus(StatusPayload{State: StateUnknown, CheckedAt: time.Now(), Error: err.Error()})
}
