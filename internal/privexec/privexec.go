// Package privexec runs the privileged helper and the firewall probe under
// the escalation wrapper and reports exactly what happened.
package privexec

import (
	"context"
	"time"
)

// Directive names one kind of privileged execution.
type Directive int

const (
	Probe Directive = iota
	Toggle
	Refresh
)

// String returns the directive's name.
func (d Directive) String() string {
	switch d {
	case Probe:
		return "probe"
	case Toggle:
		return "toggle"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Invocation is the outcome of one privileged command that ran to exit.
type Invocation struct {
	Directive   Directive
	ExitSuccess bool
	ExitCode    int
	Stdout      string
	Stderr      string
	Duration    time.Duration
}

// Executor runs privileged directives. Implementations must never retry: a
// returned error or a failed Invocation is final for that call.
type Executor interface {
	// Probe lists the live NAT table.
	Probe(ctx context.Context) (Invocation, error)
	// Toggle flips anonymized routing through the helper.
	Toggle(ctx context.Context) (Invocation, error)
	// Refresh asks Tor for a new circuit through the helper.
	Refresh(ctx context.Context) (Invocation, error)
}
