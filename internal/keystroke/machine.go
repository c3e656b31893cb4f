// Package keystroke rebuilds typed text from raw keystroke traces.
package keystroke

// State is the deletion state of a Machine.
type State int

const (
	// Clean means no deletions are waiting.
	Clean State = iota
	// PendingDeletes means a run of deletes waits for the next typed character.
	PendingDeletes
)

func (s State) String() string {
	if s == PendingDeletes {
		return "pending-deletes"
	}
	return "clean"
}

// Machine replays keystrokes with backspace semantics.
//
// Deletes accumulate until the next typed character (or the end of input); the whole
// run is then satisfied at once, removing up to that many retained characters, and
// the machine returns to Clean. Characters below the protected floor are never removed.
type Machine struct {
	state   State
	pending int
	out     []rune
	floor   int
}

// State reports the current deletion state.
func (m *Machine) State() State {
	return m.state
}

// Pending returns the number of unsatisfied deletes.
func (m *Machine) Pending() int {
	return m.pending
}

// Delete records one delete keystroke.
func (m *Machine) Delete() {
	m.state = PendingDeletes
	m.pending++
}

// Type satisfies pending deletes and appends r.
func (m *Machine) Type(r rune) {
	m.settle()
	m.out = append(m.out, r)
}

// Protect pins every character retained so far.
func (m *Machine) Protect() {
	m.floor = len(m.out)
}

// Len returns the number of retained characters, ignoring pending deletes.
func (m *Machine) Len() int {
	return len(m.out)
}

// Finish satisfies trailing deletes and returns the retained text.
func (m *Machine) Finish() string {
	m.settle()
	return string(m.out)
}

func (m *Machine) settle() {
	if m.state != PendingDeletes {
		return
	}
	for n := m.pending; n > 0 && len(m.out) > m.floor; n-- {
		m.out = m.out[:len(m.out)-1]
	}
	m.state = Clean
	m.pending = 0
}
