package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/masters"
)

func newMastersCommand() *cobra.Command {
	mastersCmd := &cobra.Command{
		Use:   "masters",
		Short: "Inspect and edit the major head / minor head / grouping tree",
	}
	mastersCmd.AddCommand(
		newMastersListCommand(),
		newMastersAddCommand(),
		newMastersResetCommand(),
		newMastersExportCommand(),
	)
	return mastersCmd
}

func newMastersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List groupings, optionally under a code prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUPING\tNAME\tMINOR HEAD\tMAJOR HEAD")
			for _, r := range s.p.Masters.Rows() {
				if prefix != "" && r.Grouping.Code != prefix && !strings.HasPrefix(r.Grouping.Code, prefix+".") {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Grouping.Code, r.Grouping.Name, r.Minor.Name, r.Major.Name)
			}
			return tw.Flush()
		},
	}
}

func newMastersAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-grouping <minor-head-code> <name>",
		Short: "Add a custom grouping under a minor head",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			g, err := s.p.Masters.AddGrouping(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", g.Code, g.Name)
			return s.commit(cmd.Context(), "masters", "add-grouping", fmt.Sprintf("Added grouping %s %s", g.Code, g.Name), 0)
		},
	}
}

func newMastersResetCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the tree with the standard chart or a CSV file",
		Long: `Replace the tree with the standard chart, or with the tree in a CSV file
written by "masters export". Mappings are kept; ledgers whose grouping no
longer resolves are listed and reported by validate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			ledgers := s.p.Ledgers.Snapshot()

			var orphaned []string
			if from == "" {
				orphaned = s.p.Masters.ResetToStandard(ledgers)
			} else {
				f, err := os.Open(from)
				if err != nil {
					return fmt.Errorf("opening %s: %w", from, err)
				}
				m, err := masters.ReadCSV(f)
				f.Close()
				if err != nil {
					return err
				}
				if err := s.p.Masters.Reset(m); err != nil {
					return err
				}
				orphaned = s.p.Masters.Orphaned(ledgers)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Masters reset.")
			if len(orphaned) > 0 {
				fmt.Fprintf(out, "%d mapped ledgers no longer resolve: %s\n", len(orphaned), strings.Join(orphaned, ", "))
			}
			return s.commit(cmd.Context(), "masters", "reset", fmt.Sprintf("Reset masters (%d orphaned)", len(orphaned)), len(orphaned))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "CSV file to load instead of the standard chart")
	return cmd
}

func newMastersExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the tree as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return masters.WriteCSV(w, s.p.Masters.Rows())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}
