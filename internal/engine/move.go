package engine

import (
	"fmt"
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// State is the progress of one move attempt.
type State int

const (
	StatePending State = iota
	StateOptimistic
	StateConfirmed
	StateRolledBack
	StateSuperseded
)

var stateNames = map[State]string{
	StatePending:    "pending",
	StateOptimistic: "optimistic",
	StateConfirmed:  "confirmed",
	StateRolledBack: "rolled-back",
	StateSuperseded: "superseded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Policy decides how completions of overlapping moves on the same task are
// applied.
type Policy string

const (
	// PolicyLastWriteWins applies every completion to whatever the snapshot
	// holds when it arrives.
	PolicyLastWriteWins Policy = "last-write-wins"
	// PolicySequenced drops a completion when a newer move for the same
	// task has been issued since.
	PolicySequenced Policy = "sequenced"
)

// Policies lists the accepted policy names.
func Policies() []string {
	return []string{string(PolicyLastWriteWins), string(PolicySequenced)}
}

// ParsePolicy validates a policy name. The empty string selects
// PolicyLastWriteWins.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "", PolicyLastWriteWins:
		return PolicyLastWriteWins, nil
	case PolicySequenced:
		return PolicySequenced, nil
	}
	return "", fmt.Errorf("unknown sync policy %q (expected one of %v)", raw, Policies())
}

// Move is one optimistic status change in flight.
type Move struct {
	TaskID   string
	Title    string
	Previous task.Status
	Target   task.Status
	Seq      uint64
	State    State
	Began    time.Time
}

// Outcome carries the network results of a move back to the engine.
type Outcome struct {
	Move       *Move
	Tasks      []task.Task // authoritative snapshot after a successful update
	UpdateErr  error
	RefetchErr error
}

// Failed reports whether the status update was rejected or did not complete.
func (o Outcome) Failed() bool {
	return o.UpdateErr != nil
}
