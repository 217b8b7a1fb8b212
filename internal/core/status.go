package core

import "time"

// State is the anonymization state read from the live firewall table.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"

	// StateUnknown is only carried by failure payloads: after a failed
	// toggle the table was not read, so no state is claimed.
	StateUnknown State = "unknown"
)

// StateFromActive converts an inspector reading.
func StateFromActive(active bool) State {
	if active {
		return StateActive
	}
	return StateInactive
}

func (s State) String() string { return string(s) }

// Active reports whether traffic is redirected into Tor.
func (s State) Active() bool { return s == StateActive }

// StatusPayload is delivered to the status listener after every inspection
// and toggle.
type StatusPayload struct {
	State     State
	CheckedAt time.Time
	Error     string
}

// StatusListener is a callback invoked when a new status is known.
type StatusListener func(status *StatusPayload)

// LastStatus returns the most recent payload, or nil before the first
// inspection. It is informational only; Inspect always reads the table.
func (c *Controller) LastStatus() *StatusPayload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	p := *c.last
	return &p
}

// broadcastStatus records p and sends it to the listener.
func (c *Controller) broadcastStatus(p StatusPayload) {
	c.mu.Lock()
	c.last = &p
	listener := c.statusListener
	c.mu.Unlock()

	if listener != nil {
		listener(&p)
	}
}
