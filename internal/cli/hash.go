package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/normstore/internal/ir"
	"github.com/roach88/normstore/internal/query"
)

// HashResult is the payload of the hash command.
type HashResult struct {
	Type    string `json:"type"`
	Options string `json:"options"` // canonical JSON
	Key     string `json:"key"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <type> [options-json]",
		Short: "Print the query key for an entity type and options",
		Long: `Print the key a query is cached under. Options are a JSON object;
key order does not matter. Omitted options mean {}.

Examples:
  normstore hash Post '{"status":"published"}'
  normstore hash Post`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := "{}"
			if len(args) == 2 {
				raw = args[1]
			}
			return runHash(rootOpts, args[0], raw, cmd)
		},
	}
}

func runHash(opts *RootOptions, typ, raw string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	val, err := ir.UnmarshalIRValue([]byte(raw))
	if err != nil {
		f.Error(ErrCodeBadInput, fmt.Sprintf("options: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid options", err)
	}
	options, ok := val.(ir.IRObject)
	if !ok {
		f.Error(ErrCodeBadInput, "options must be a JSON object", nil)
		return NewExitError(ExitCommandError, "invalid options")
	}

	key, err := query.NewKey(typ, options)
	if err != nil {
		f.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot hash options", err)
	}
	canonical, err := ir.MarshalCanonical(options)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot encode options", err)
	}

	if opts.Format == "json" {
		return f.Success(HashResult{Type: typ, Options: string(canonical), Key: key.String()})
	}
	return f.Success(key.String())
}
