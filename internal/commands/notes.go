package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/notes"
)

func newNotesCommand() *cobra.Command {
	notesCmd := &cobra.Command{
		Use:   "notes",
		Short: "Choose, order and subdivide the notes to accounts",
	}
	notesCmd.AddCommand(
		newNotesListCommand(),
		newNotesSelectCommand(true),
		newNotesSelectCommand(false),
		newLineItemsCommand(),
	)
	return notesCmd
}

func newNotesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes with their numbers and line items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			numbers := s.p.NoteNumbers()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NO.\tNOTE\tTITLE\tORDER")
			for _, sel := range s.p.Selections {
				n, ok := notes.Lookup(sel.ID)
				if !ok {
					continue
				}
				no := "-"
				if num, ok := numbers[sel.ID]; ok {
					no = strconv.Itoa(num)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", no, n.ID, n.Title, sel.Order)
				for _, li := range s.p.LineItems.ForNote(n.ID) {
					fmt.Fprintf(tw, "\t  %s\t%s\t\n", li.ID, li.Name)
				}
			}
			return tw.Flush()
		},
	}
}

func newNotesSelectCommand(selected bool) *cobra.Command {
	var order int
	use, short := "select", "Include a note and optionally move it"
	if !selected {
		use, short = "deselect", "Leave a note out of the statements"
	}

	cmd := &cobra.Command{
		Use:   use + " <note-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			n, ok := notes.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", notes.ErrUnknownNote, args[0])
			}
			if !n.AppliesTo(s.p.EntityType) {
				return fmt.Errorf("note %s does not apply to %s", n.ID, s.p.EntityType)
			}
			found := false
			for i := range s.p.Selections {
				if s.p.Selections[i].ID == n.ID {
					s.p.Selections[i].Selected = selected
					if cmd.Flags().Changed("order") {
						s.p.Selections[i].Order = order
					}
					found = true
				}
			}
			if !found {
				s.p.Selections = append(s.p.Selections, notes.Selection{ID: n.ID, Selected: selected, Order: order})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %sed\n", n.Title, use)
			return s.commit(cmd.Context(), "notes", use, use+" "+n.ID, 0)
		},
	}
	if selected {
		cmd.Flags().IntVar(&order, "order", 0, "sort position")
	}
	return cmd
}

func newLineItemsCommand() *cobra.Command {
	liCmd := &cobra.Command{
		Use:   "line-items",
		Short: "Manage note line items that ledgers can be clubbed into",
	}

	add := &cobra.Command{
		Use:   "add <note-id> <name>",
		Short: "Create a line item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			li, err := s.p.LineItems.Add(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), li.ID)
			return s.commit(cmd.Context(), "notes", "add-line-item", fmt.Sprintf("Added line item %q to %s", li.Name, li.NoteID), 0)
		},
	}

	rename := &cobra.Command{
		Use:   "rename <line-item-id> <name>",
		Short: "Rename a line item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := s.p.LineItems.Rename(args[0], args[1]); err != nil {
				return err
			}
			return s.commit(cmd.Context(), "notes", "rename-line-item", fmt.Sprintf("Renamed line item %s to %q", args[0], args[1]), 0)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <line-item-id>",
		Short: "Delete a line item and unclub its ledgers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := s.p.LineItems.Remove(args[0]); err != nil {
				return err
			}
			var clubbed []string
			for _, it := range s.p.Ledgers.Filter(func(it model.LedgerItem) bool {
				return it.Mapping != nil && it.Mapping.NoteLineItemID == args[0]
			}) {
				clubbed = append(clubbed, it.ID)
			}
			rep := s.p.Workflow(s.log).Club(clubbed, "")
			fmt.Fprintf(cmd.OutOrStdout(), "Removed; %d ledgers unclubbed\n", len(rep.Applied))
			return s.commit(cmd.Context(), "notes", "remove-line-item", "Removed line item "+args[0], len(rep.Applied))
		},
	}

	liCmd.AddCommand(add, rename, remove)
	return liCmd
}
