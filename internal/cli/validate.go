package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replaycheck/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File   string `json:"file"`
	Name   string `json:"name,omitempty"`
	Policy string `json:"policy,omitempty"`
	Events int    `json:"events"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
}

// ValidateResult holds the overall validation result.
type ValidateResult struct {
	Files   []FileValidation `json:"files"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files",
		Long: `Load and validate scenario files without running them.

YAML files are decoded with unknown fields rejected. CUE files are unified
with the built-in #Scenario schema and must be concrete.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid

Examples:
  replaycheck validate ./scenarios/counting_drain.yaml
  replaycheck validate ./scenarios/*.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	result := ValidateResult{Files: make([]FileValidation, 0, len(paths))}

	for _, path := range paths {
		fv := FileValidation{File: path}

		scenario, err := harness.LoadScenario(path)
		if err != nil {
			fv.Error = err.Error()
			result.Invalid++
		} else {
			fv.Valid = true
			fv.Name = scenario.Name
			fv.Policy = scenario.Policy
			fv.Events = len(scenario.Events)
			result.Valid++
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if result.Invalid > 0 {
			cliErr = &CLIError{Code: CodeInvalid, Message: fmt.Sprintf("%d invalid scenario file(s)", result.Invalid)}
		}
		if err := out.JSON(result, cliErr); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(out.Writer, "✓ %s (%s, %s, %d events)\n", fv.File, fv.Name, fv.Policy, fv.Events)
			} else {
				fmt.Fprintf(out.Writer, "✗ %s\n  %s\n", fv.File, fv.Error)
			}
		}
	}

	if result.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", result.Invalid))
	}
	return nil
}
