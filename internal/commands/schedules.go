package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/aggregate"
	"github.com/tbmap/tbmap/internal/schedules"
)

func newAggregateCommand() *cobra.Command {
	var credit bool

	cmd := &cobra.Command{
		Use:   "aggregate <code-prefix>",
		Short: "Total mapped ledgers under a code prefix by grouping or line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			e := aggregate.NewEngine(s.p.Masters.Snapshot(), s.p.LineItems.All())
			buckets := e.ByPrefix(s.p.Ledgers.Snapshot(), args[0], credit)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tPARTICULARS\tCURRENT YEAR\tPREVIOUS YEAR\tLEDGERS")
			for _, b := range buckets {
				label := b.Label
				if b.Unknown {
					label += " (unknown)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", b.Key, label, s.fmt.Amount(b.AmountCy), s.fmt.Amount(b.AmountPy), len(b.LedgerIDs))
			}
			cy, py := aggregate.Totals(buckets)
			fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", s.fmt.Amount(cy), s.fmt.Amount(py))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&credit, "credit", false, "show credit balances as positive")
	return cmd
}

func newPopulateCommand() *cobra.Command {
	var all, overwrite bool

	cmd := &cobra.Command{
		Use:   "populate [schedule-id...]",
		Short: "Fill schedules from the mapped ledgers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass schedule ids or --all")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			src := s.p.ScheduleSource()
			opts := schedules.Options{Overwrite: overwrite}

			var outcomes []schedules.Outcome
			if all {
				outcomes = s.p.Schedules.PopulateAll(src, opts)
			} else {
				for _, sid := range args {
					_, err := s.p.Schedules.Populate(sid, src, opts)
					outcomes = append(outcomes, schedules.Outcome{ID: sid, Err: err})
				}
			}

			out := cmd.OutOrStdout()
			populated := 0
			for _, o := range outcomes {
				switch {
				case o.Err == nil:
					populated++
					fmt.Fprintf(out, "%-24s populated\n", o.ID)
				case errors.Is(o.Err, schedules.ErrNoData):
					fmt.Fprintf(out, "%-24s no data\n", o.ID)
				case errors.Is(o.Err, schedules.ErrWouldOverwrite):
					fmt.Fprintf(out, "%-24s kept (has data; use --overwrite)\n", o.ID)
				default:
					return o.Err
				}
			}
			if populated == 0 {
				return nil
			}
			return s.commit(cmd.Context(), "populate", "populate", fmt.Sprintf("Populated %d schedules", populated), 0)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "populate every schedule")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace schedules that already hold data")
	return cmd
}

func newSchedulesCommand() *cobra.Command {
	schedCmd := &cobra.Command{
		Use:   "schedules",
		Short: "View and edit note schedules",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show [schedule-id]",
		Short: "Show one schedule, or list them all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, sid := range schedules.IDs() {
					state := "not populated"
					if sc, ok := s.p.Schedules.Get(sid); ok && !sc.IsEmpty() {
						state = "populated"
					}
					fmt.Fprintf(out, "%-24s %s\n", sid, state)
				}
				return nil
			}
			sc, ok := s.p.Schedules.Get(args[0])
			if !ok {
				return fmt.Errorf("%s is not populated", args[0])
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sc)
			}
			return renderSchedule(out, s, sc)
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	setField := &cobra.Command{
		Use:   "set-field <schedule-id> <key> <current-year> [previous-year]",
		Short: "Enter a figure such as an MSME disclosure",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cy, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("current year: %w", err)
			}
			py := decimal.Zero
			if len(args) == 4 {
				if py, err = decimal.NewFromString(args[3]); err != nil {
					return fmt.Errorf("previous year: %w", err)
				}
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := s.p.Schedules.SetField(args[0], args[1], cy, py); err != nil {
				return err
			}
			return s.commit(cmd.Context(), "schedules", "set-field", fmt.Sprintf("Set %s.%s", args[0], args[1]), 0)
		},
	}

	setAgeing := &cobra.Command{
		Use:   "set-ageing <schedule-id> <category> <bucket> <amount>",
		Short: "Enter one ageing cell",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(args[3])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := s.p.Schedules.SetAgeing(args[0], args[1], args[2], amt); err != nil {
				return err
			}
			return s.commit(cmd.Context(), "schedules", "set-ageing", fmt.Sprintf("Set %s %s/%s", args[0], args[1], args[2]), 0)
		},
	}

	schedCmd.AddCommand(show, setField, setAgeing)
	return schedCmd
}

func renderSchedule(w io.Writer, s *session, sc schedules.Schedule) error {
	a := s.fmt.Amount
	fmt.Fprintf(w, "%s\n\n", sc.Title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range sc.Lists {
		fmt.Fprintf(tw, "%s\t\t\n", l.Name)
		for _, r := range l.Rows {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Particulars, a(r.AmountCy), a(r.AmountPy))
		}
	}
	if len(sc.Assets) > 0 {
		fmt.Fprintln(tw, "ASSET\tGROSS OPENING\tADDITIONS\tDISPOSALS\tGROSS CLOSING\tDEP. FOR YEAR\tNET CY\tNET PY")
		for _, r := range sc.Assets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.AssetClass, a(r.GrossOpening), a(r.Additions), a(r.Disposals),
				a(r.GrossClosing), a(r.DepreciationForYear), a(r.NetCy), a(r.NetPy))
		}
	}
	if sc.Ageing != nil {
		fmt.Fprint(tw, "CATEGORY")
		for _, b := range sc.Ageing.Buckets {
			fmt.Fprintf(tw, "\t%s", b)
		}
		fmt.Fprintln(tw)
		for _, r := range sc.Ageing.Rows {
			fmt.Fprint(tw, r.Category)
			for _, amt := range r.Amounts {
				fmt.Fprintf(tw, "\t%s", a(amt))
			}
			fmt.Fprintln(tw)
		}
	}
	for _, f := range sc.Fields {
		fmt.Fprintf(tw, "%s (%s)\t%s\t%s\n", f.Label, f.Key, a(f.AmountCy), a(f.AmountPy))
	}
	if len(sc.Movements) > 0 {
		fmt.Fprintln(tw, "ITEM\tOPENING\tADDITIONS\tDEDUCTIONS\tCLOSING")
		for _, r := range sc.Movements {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, a(r.Opening), a(r.Additions), a(r.Deductions), a(r.Closing))
		}
	}
	return tw.Flush()
}
