// Package command implements the per-request pipeline state machine:
// a Command moves through Created, Parsed, Routed, Writing, Written,
// Replied, and Done, with an orthogonal Failed flag that can be set at
// any stage. Commands are addressed by a stable arena
// index rather than a pointer, so a backend connection can hold a
// "weak reference" to a command's parent without creating an ownership
// cycle between Connection and Command.
package command

import (
	"github.com/corvus-proxy/corvus/internal/buffer"
)

// State is a stage in a command's lifecycle.
type State int

const (
	Created State = iota
	Parsed
	Routed
	Writing
	Written
	Replied
	Done
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Parsed:
		return "parsed"
	case Routed:
		return "routed"
	case Writing:
		return "writing"
	case Written:
		return "written"
	case Replied:
		return "replied"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ID is a stable index into an Arena, used wherever a pointer would
// otherwise create a reference-counting cycle.
type ID uint32

// Invalid is the zero value of ID, never assigned to a live command.
const Invalid ID = 0

// Command is one client request moving through the pipeline. A Complex
// command that fans out owns a slice of sub-command IDs; a sub-command
// carries a reference back to its Parent so the last sub-command to
// finish can trigger aggregation.
type Command struct {
	id    ID
	state State
	failed bool
	err    error

	ConnID  ID // owning connection's arena ID
	Name    []byte
	Args    [][]byte
	Raw     buffer.Span // original request bytes, retained until Done

	IsWrite bool
	Parent  ID // Invalid for a top-level command
	Pending int // for a fan-out parent: outstanding sub-command count

	Reply []byte // synthesized or forwarded reply bytes, valid once Replied
}

// ID returns the command's arena identity.
func (c *Command) ID() ID { return c.id }

// State returns the command's current pipeline stage.
func (c *Command) State() State { return c.state }

// Failed reports whether the command has been marked failed. Failed is
// orthogonal to State: a command can fail while Routed, Writing, or any
// later stage, and retains its last state for diagnostics.
func (c *Command) Failed() bool { return c.failed }

// Err returns the error that caused Fail, if any.
func (c *Command) Err() error { return c.err }

// Advance moves the command to the next state. It panics on a
// non-monotonic transition, since the pipeline never revisits an earlier
// stage.
func (c *Command) Advance(next State) {
	if next < c.state {
		panic("command: non-monotonic state transition")
	}
	c.state = next
}

// Fail marks the command failed and records the triggering error,
// without altering its current State.
func (c *Command) Fail(err error) {
	c.failed = true
	c.err = err
}

// Release drops the command's hold on its original request bytes. Must
// be called exactly once, when the command reaches Done.
func (c *Command) Release() {
	c.Raw.Clear()
}
