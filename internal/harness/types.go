package harness

import "github.com/roach88/normstore/internal/ir"

// TraceEvent records one executed step.
// Kind is the outcome kind for lifecycle steps.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Dump is the final store snapshot as rendered by store.Dump.
	Dump ir.IRObject `json:"dump"`

	// Hash is the content hash of Dump.
	Hash string `json:"hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
