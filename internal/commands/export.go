package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/export"
	"github.com/tbmap/tbmap/internal/format"
	"github.com/tbmap/tbmap/internal/statements"
	"github.com/tbmap/tbmap/internal/validation"
)

var exportKinds = []string{"workbook", "trial-balance", "mapped", "unmapped", "masters", "sample"}

func newExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <" + strings.Join(exportKinds, "|") + ">",
		Short: "Write statements or working tables to XLSX or CSV",
		Long: `Write statements or working tables. The file type follows the output
extension: .xlsx writes a workbook, .csv a single table. The full workbook
holds the statements, notes and every working table and is XLSX only.
Without -o files go to exports/.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: exportKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			kind := args[0]
			tables, err := exportTables(s, kind)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(s.p.Root, "exports", kind+".xlsx")
			}
			ext := strings.ToLower(filepath.Ext(output))
			if ext == ".csv" && len(tables) != 1 {
				return fmt.Errorf("%s has %d sheets; write it as .xlsx", kind, len(tables))
			}
			if ext != ".csv" && ext != ".xlsx" {
				return fmt.Errorf("unsupported output type %q", ext)
			}

			if kind == "workbook" {
				opts, err := s.p.ValidationOptions()
				if err != nil {
					return err
				}
				if res := validation.Run(s.p.ValidationInput(), opts); res.CriticalCount > 0 {
					s.log.Warn("exporting with critical validation findings", "critical", res.CriticalCount)
				}
			}

			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(output), err)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()

			opts := export.Options{
				Formatter: s.fmt,
				Indian:    s.p.Config.Entity.NumberFormat == string(format.Indian),
				Decimals:  s.p.Config.Entity.DecimalPlaces,
			}
			if kind == "sample" {
				opts = export.Options{}
			}
			if ext == ".csv" {
				err = export.WriteCSV(f, tables[0], opts)
			} else {
				err = export.WriteWorkbook(f, tables, opts)
			}
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			s.log.Info("exported", "kind", kind, "path", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.xlsx or .csv)")
	return cmd
}

func exportTables(s *session, kind string) ([]export.Table, error) {
	ledgers := s.p.Ledgers.Snapshot()
	m := s.p.Masters.Snapshot()
	lineItems := s.p.LineItems.All()

	switch kind {
	case "workbook":
		st := statements.Generate(s.p.StatementInput())
		return []export.Table{
			export.StatementTable("Balance Sheet", st.BalanceSheet),
			export.StatementTable("Profit and Loss", st.ProfitAndLoss),
			export.StatementTable("Notes", st.Notes),
			export.TrialBalanceTable(ledgers),
			export.MappedLedgersTable(export.MappedLedgers(ledgers, m, lineItems)),
			export.UnmappedTable(export.Unmapped(ledgers)),
		}, nil
	case "trial-balance":
		return []export.Table{export.TrialBalanceTable(ledgers)}, nil
	case "mapped":
		return []export.Table{export.MappedLedgersTable(export.MappedLedgers(ledgers, m, lineItems))}, nil
	case "unmapped":
		return []export.Table{export.UnmappedTable(export.Unmapped(ledgers))}, nil
	case "masters":
		return []export.Table{export.MastersTable(s.p.Masters.Rows())}, nil
	case "sample":
		return []export.Table{export.SampleTrialBalance()}, nil
	}
	return nil, fmt.Errorf("unknown export %q (want one of %s)", kind, strings.Join(exportKinds, ", "))
}
