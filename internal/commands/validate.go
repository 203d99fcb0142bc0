package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/validation"
)

// ErrInvalid is returned by validate --strict when critical or high findings
// remain.
var ErrInvalid = errors.New("validation failed")

func newValidateCommand() *cobra.Command {
	var asJSON, strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the trial balance, mappings and disclosures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			opts, err := s.p.ValidationOptions()
			if err != nil {
				return err
			}
			res := validation.Run(s.p.ValidationInput(), opts)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				for _, f := range res.Findings {
					fmt.Fprintf(out, "[%s] %s %s: %s\n", f.Severity, f.RuleID, f.RuleName, f.Message)
					if f.Details != "" {
						fmt.Fprintf(out, "    %s\n", f.Details)
					}
				}
				fmt.Fprintf(out, "%d critical, %d high, %d medium\n", res.CriticalCount, res.HighCount, res.MediumCount)
				if res.IsValid {
					fmt.Fprintln(out, "Ready to export.")
				}
			}
			s.log.Debug("validation finished", "findings", len(res.Findings), "valid", res.IsValid)

			if strict && !res.IsValid {
				return ErrInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error unless the result is valid")
	return cmd
}
