package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/importer"
)

func newImportCommand() *cobra.Command {
	var scan bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a trial balance (CSV, XLSX or XLS)",
		Long: `Import a trial balance with Ledger, ClosingCy and ClosingPy columns.

Ledgers are matched by name: known ledgers take the new balances and keep
their mappings, new names are added unmapped. With --scan every file waiting
in import/ is imported and moved to import/processed/.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scan == (len(args) == 1) {
				return fmt.Errorf("pass a file or --scan")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			reg := importer.DefaultRegistry()
			out := cmd.OutOrStdout()

			var files []importer.Pending
			if scan {
				if files, err = importer.Scan(s.p.Root, reg); err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(out, "No files waiting in import/.")
					return nil
				}
			} else {
				files = []importer.Pending{{Name: filepath.Base(args[0]), Path: args[0]}}
			}

			for _, f := range files {
				res, err := reg.ParseFile(f.Path)
				if err != nil {
					return err
				}
				sum := s.p.Ledgers.MergeImport(res.Rows)
				fmt.Fprintf(out, "%s: %d rows, %d added, %d updated", f.Name, len(res.Rows), len(sum.Added), len(sum.Updated))
				if len(sum.Missing) > 0 {
					fmt.Fprintf(out, ", %d not in file", len(sum.Missing))
				}
				fmt.Fprintln(out)
				for _, rowErr := range res.Errors {
					fmt.Fprintf(out, "  skipped %v\n", rowErr)
				}
				printBalance(out, s, res)

				details := fmt.Sprintf("Imported %s (%d added, %d updated)", f.Name, len(sum.Added), len(sum.Updated))
				if err := s.commit(cmd.Context(), "import", "import", details, len(res.Rows)); err != nil {
					return err
				}
				if scan {
					if err := importer.MarkProcessed(s.p.Root, f.Name); err != nil {
						return err
					}
				}
				s.log.Info("trial balance imported", "file", f.Name, "rows", len(res.Rows), "rejected", len(res.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&scan, "scan", false, "import every file in import/")

	return cmd
}

func printBalance(w io.Writer, s *session, res *importer.Result) {
	tol := decimal.NewFromFloat(s.p.Config.Validation.BalanceTolerance)
	cy, py := res.Balanced(tol)
	if cy && py {
		fmt.Fprintln(w, "  trial balance tallies")
		return
	}
	if !cy {
		fmt.Fprintf(w, "  warning: current year is out by %s\n", res.TotalCy.StringFixed(2))
	}
	if !py {
		fmt.Fprintf(w, "  warning: previous year is out by %s\n", res.TotalPy.StringFixed(2))
	}
}
