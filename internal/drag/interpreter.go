package drag

// State is the interpreter's drag state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Interpreter tracks one drag at a time. It holds no state across drags:
// every End or Cancel returns it to Idle.
type Interpreter struct {
	lookup   TaskLookup
	state    State
	activeID string
	overID   string
}

// NewInterpreter returns an idle interpreter resolving tasks through lookup.
func NewInterpreter(lookup TaskLookup) *Interpreter {
	return &Interpreter{lookup: lookup}
}

// State returns the current state.
func (in *Interpreter) State() State { return in.state }

// ActiveID returns the dragged task, or "" when idle.
func (in *Interpreter) ActiveID() string { return in.activeID }

// OverID returns the currently hovered droppable, or "".
func (in *Interpreter) OverID() string { return in.overID }

// Start begins dragging activeID. A drag already in progress is abandoned
// without a decision.
func (in *Interpreter) Start(activeID string) {
	in.reset()
	if activeID == "" {
		return
	}
	in.state = Dragging
	in.activeID = activeID
}

// Over records the droppable currently under the pointer. "" clears it.
func (in *Interpreter) Over(overID string) {
	if in.state != Dragging {
		return
	}
	in.overID = overID
}

// Handle applies a continuous movement event. Events for another active
// task are ignored.
func (in *Interpreter) Handle(ev Event) {
	if in.state != Dragging || ev.ActiveID != in.activeID {
		return
	}
	in.overID = ev.OverID
}

// End releases the drag over the last hovered droppable.
func (in *Interpreter) End() Decision {
	if in.state != Dragging {
		return NoOp
	}
	d := Resolve(in.lookup, in.activeID, in.overID)
	in.reset()
	return d
}

// Drop releases the drag using the end event's shape.
func (in *Interpreter) Drop(ev Event) Decision {
	if in.state != Dragging || ev.ActiveID != in.activeID {
		in.reset()
		return NoOp
	}
	in.overID = ev.OverID
	return in.End()
}

// Cancel abandons the drag, e.g. when pointer capture is lost.
func (in *Interpreter) Cancel() Decision {
	in.reset()
	return NoOp
}

func (in *Interpreter) reset() {
	in.state = Idle
	in.activeID = ""
	in.overID = ""
}
