// SPDX-License-Identifier: MPL-2.0

package build

import "fmt"

// Pass states, in the order a successful pass visits them.
const (
	StateInit State = iota
	StateTranspiling
	StateDispatching
	StateAwaitingAll
	StateAllSucceeded
	StateCleanup
	StateDone
	StateAnyFailed
	StateAborted
)

// State is the orchestrator's position in a pass.
type State int

var stateNames = [...]string{
	StateInit:         "init",
	StateTranspiling:  "transpiling",
	StateDispatching:  "dispatching",
	StateAwaitingAll:  "awaiting-all",
	StateAllSucceeded: "all-succeeded",
	StateCleanup:      "cleanup",
	StateDone:         "done",
	StateAnyFailed:    "any-failed",
	StateAborted:      "aborted",
}

// String returns the state name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether a pass in state s has finished.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateInit:         {StateTranspiling, StateAborted},
	StateTranspiling:  {StateDispatching, StateAborted},
	StateDispatching:  {StateAwaitingAll},
	StateAwaitingAll:  {StateAllSucceeded, StateAnyFailed},
	StateAllSucceeded: {StateCleanup},
	StateCleanup:      {StateDone, StateAborted},
	StateAnyFailed:    {StateAborted},
}

// canTransition reports whether from may move to to.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
