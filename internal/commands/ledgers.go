package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/model"
)

func newLedgersCommand() *cobra.Command {
	var onlyMapped, onlyUnmapped, onlySuggested bool

	cmd := &cobra.Command{
		Use:   "ledgers",
		Short: "List ledgers with their balances and mapping state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			items := s.p.Ledgers.Filter(func(it model.LedgerItem) bool {
				switch {
				case onlyMapped:
					return it.IsMapped()
				case onlyUnmapped:
					return !it.IsMapped()
				case onlySuggested:
					return !it.IsMapped() && it.Suggestion != nil
				}
				return true
			})

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLEDGER\tCLOSING CY\tCLOSING PY\tSTATUS")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.LedgerName, s.fmt.Amount(it.ClosingCy), s.fmt.Amount(it.ClosingPy), status(it))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d ledgers\n", len(items), s.p.Ledgers.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyMapped, "mapped", false, "only mapped ledgers")
	cmd.Flags().BoolVar(&onlyUnmapped, "unmapped", false, "only unmapped ledgers")
	cmd.Flags().BoolVar(&onlySuggested, "suggested", false, "only unmapped ledgers with a suggestion")
	cmd.MarkFlagsMutuallyExclusive("mapped", "unmapped", "suggested")
	cmd.AddCommand(newLedgersRemoveCommand())

	return cmd
}

func newLedgersRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <ledger-id...>",
		Short: "Delete ledgers from the trial balance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			for _, lid := range args {
				if err := s.p.Ledgers.Remove(lid); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d removed\n", len(args))
			return s.commit(cmd.Context(), "ledgers", "remove", "Removed "+strings.Join(args, ", "), len(args))
		},
	}
}

func status(it model.LedgerItem) string {
	switch {
	case it.Mapping != nil && it.Mapping.NoteLineItemID != "":
		return it.Mapping.GroupingCode + " [" + it.Mapping.NoteLineItemID + "]"
	case it.Mapping != nil:
		return it.Mapping.GroupingCode
	case it.Suggestion != nil && it.Suggestion.Error != "":
		return "error: " + it.Suggestion.Error
	case it.Suggestion != nil:
		return fmt.Sprintf("suggested %s (%.0f%%)", it.Suggestion.GroupingCode, it.Suggestion.Confidence*100)
	}
	return "unmapped"
}
