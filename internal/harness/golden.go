package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/normstore/internal/ir"
)

// GoldenDir is where golden snapshots live, relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot captures what a scenario run produced.
// It serializes to canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Dump         ir.IRObject  `json:"dump"`
}

// toCanonicalMap converts a Snapshot to plain values accepted by
// ir.MarshalCanonical.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step": ev.Step,
			"op":   ev.Op,
		}
		if ev.Kind != "" {
			m["kind"] = ev.Kind
		}
		if ev.Message != "" {
			m["message"] = ev.Message
		}
		trace[i] = m
	}
	dump := s.Dump
	if dump == nil {
		dump = ir.IRObject{}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"dump":          dump,
	}
}

// SnapshotJSON renders the canonical snapshot bytes of result.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: scenarioName, Trace: result.Trace, Dump: result.Dump}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// WriteGolden writes the snapshot of result to dir/<name>.golden.
func WriteGolden(dir, scenarioName string, result *Result) error {
	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, scenarioName+".golden"), data, 0o644)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
