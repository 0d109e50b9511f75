package entity

import "fmt"

// State is an entity's data-access lifecycle state.
type State int

// The zero State means "unchanged" in a Patch.
const (
	StateNew State = iota + 1
	StateFetching
	StateUpdating
	StateDeleting
	StateLoaded
	StateDeleted
)

var stateNames = map[State]string{
	StateNew:      "new",
	StateFetching: "fetching",
	StateUpdating: "updating",
	StateDeleting: "deleting",
	StateLoaded:   "loaded",
	StateDeleted:  "deleted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState parses a state name such as "loaded".
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown entity state %q", name)
}
