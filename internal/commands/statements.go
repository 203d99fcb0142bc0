package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/format"
	"github.com/tbmap/tbmap/internal/statements"
)

func newStatementsCommand() *cobra.Command {
	var asJSON bool
	var only string

	cmd := &cobra.Command{
		Use:   "statements",
		Short: "Print the Balance Sheet, Statement of Profit and Loss and notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			st := statements.Generate(s.p.StatementInput())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			sections := []struct {
				key, title string
				rows       []statements.Row
			}{
				{"bs", "Balance Sheet", st.BalanceSheet},
				{"pl", "Statement of Profit and Loss", st.ProfitAndLoss},
				{"notes", "Notes to Accounts", st.Notes},
			}
			unit, _ := format.ParseUnit(s.p.Config.Entity.RoundingUnit)
			caption := format.Caption(s.p.Config.Entity.CurrencySymbol, unit)
			for _, sec := range sections {
				if only != "" && only != sec.key {
					continue
				}
				fmt.Fprintf(out, "%s\n%s %s\n\n", s.p.Config.Entity.Name, sec.title, caption)
				if err := renderRows(out, s, sec.rows); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().StringVar(&only, "only", "", "bs, pl or notes")
	return cmd
}

func renderRows(w io.Writer, s *session, rows []statements.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTICULARS\tNOTE\tCURRENT YEAR\tPREVIOUS YEAR")
	for _, r := range rows {
		label := strings.Repeat("  ", r.Level) + r.Label
		if r.IsHeader() {
			fmt.Fprintf(tw, "%s\t\t\t\n", label)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, r.NoteNumber, s.fmt.Amount(r.AmountCy), s.fmt.Amount(r.AmountPy))
	}
	return tw.Flush()
}
