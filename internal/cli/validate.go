package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/normstore/internal/schema"
)

// RelationInfo describes one relation in validate output.
type RelationInfo struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	Many    bool   `json:"many"`
	Inverse string `json:"inverse,omitempty"`
}

// TypeInfo describes one entity type in validate output.
type TypeInfo struct {
	Name         string         `json:"name"`
	HasValidator bool           `json:"has_validator"`
	Relations    []RelationInfo `json:"relations"`
}

// ValidationResult is the payload of a successful validate.
type ValidationResult struct {
	Valid bool       `json:"valid"`
	Types []TypeInfo `json:"types"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema>",
		Short: "Check a CUE schema and list its entity types",
		Long: `Compile a CUE type file or package directory into the relation
descriptor table and check that every relation target and inverse exists.

Exit codes:
  0 - Schema is valid
  1 - Schema has definition errors
  2 - Schema path not found`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	reg, err := LoadSchema(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		var details any
		if loadErr.Pos.IsValid() {
			details = loadErr.Pos.String()
		}
		if outErr := f.Error(loadErr.Code, loadErr.Message, details); outErr != nil {
			return outErr
		}
		code := ExitFailure
		if loadErr.Code == ErrCodeNotFound {
			code = ExitCommandError
		}
		return NewExitError(code, "schema validation failed")
	}

	result := describe(reg)
	f.VerboseLog("Loaded %d type(s) from %s", len(result.Types), path)
	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(formatTypes(result))
}

func describe(reg *schema.Registry) ValidationResult {
	out := ValidationResult{Valid: true, Types: []TypeInfo{}}
	for _, name := range reg.Names() {
		t, _ := reg.Lookup(name)
		info := TypeInfo{Name: name, HasValidator: t.Validator != nil, Relations: []RelationInfo{}}
		for _, r := range t.Relations {
			info.Relations = append(info.Relations, RelationInfo{
				Name:    r.Name,
				Target:  r.Target,
				Many:    r.IsMany(),
				Inverse: r.Inverse,
			})
		}
		out.Types = append(out.Types, info)
	}
	return out
}

func formatTypes(result ValidationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Schema valid (%d types)", len(result.Types))
	for _, t := range result.Types {
		fmt.Fprintf(&b, "\n  %s", t.Name)
		for _, r := range t.Relations {
			arrow := "->"
			if r.Many {
				arrow = "->>"
			}
			fmt.Fprintf(&b, "\n    %s %s %s", r.Name, arrow, r.Target)
			if r.Inverse != "" {
				fmt.Fprintf(&b, " (inverse %s)", r.Inverse)
			}
		}
	}
	return b.String()
}
