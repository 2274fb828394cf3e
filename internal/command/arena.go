package command

// Arena owns every live Command for one worker, addressed by a stable ID
// rather than a pointer. This lets a backend connection's waiting-reply
// queue and a parent's sub-command list both reference a Command without
// the two structures holding live pointers into each other: when a
// command's slot is freed, any stale ID referencing it is simply
// never looked up again rather than dangling.
type Arena struct {
	slots []slot
	free  []ID
}

type slot struct {
	cmd *Command
	gen uint32
}

// NewArena creates an empty arena. Workers create exactly one Arena and
// never share it across goroutines.
func NewArena() *Arena {
	a := &Arena{}
	a.slots = append(a.slots, slot{}) // index 0 reserved for Invalid
	return a
}

// New allocates a Command in a fresh or recycled slot; its stable ID is
// available via Command.ID.
func (a *Arena) New() *Command {
	var idx int
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		idx = int(id)
	} else {
		a.slots = append(a.slots, slot{})
		idx = len(a.slots) - 1
	}
	a.slots[idx].gen++
	cmd := &Command{id: ID(idx), state: Created, Parent: Invalid}
	a.slots[idx].cmd = cmd
	return cmd
}

// Get resolves an ID back to its Command, returning nil if the slot has
// since been freed (a stale weak reference).
func (a *Arena) Get(id ID) *Command {
	if id == Invalid || int(id) >= len(a.slots) {
		return nil
	}
	return a.slots[id].cmd
}

// Free releases a command's slot for reuse. Callers must have already
// released any resources the command held (Command.Release).
func (a *Arena) Free(id ID) {
	if id == Invalid || int(id) >= len(a.slots) {
		return
	}
	a.slots[id].cmd = nil
	a.free = append(a.free, id)
}

// Len reports the number of slots ever allocated (including freed ones),
// used only by tests.
func (a *Arena) Len() int { return len(a.slots) - 1 }
