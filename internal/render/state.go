package render

import "fmt"

// State is the phase of the frame driver.
type State int32

const (
	Idle State = iota
	Advancing
	Sampling
	Normalizing
	Colorizing
	Emitted
	Done
)

var stateNames = [...]string{
	Idle:        "idle",
	Advancing:   "advancing",
	Sampling:    "sampling",
	Normalizing: "normalizing",
	Colorizing:  "colorizing",
	Emitted:     "emitted",
	Done:        "done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
