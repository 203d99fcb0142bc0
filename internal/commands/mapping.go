package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/mapping"
	"github.com/tbmap/tbmap/internal/model"
)

func printReport(w io.Writer, verb string, rep mapping.Report) {
	fmt.Fprintf(w, "%d %s", len(rep.Applied), verb)
	if len(rep.Skipped) > 0 {
		fmt.Fprintf(w, ", %d skipped", len(rep.Skipped))
	}
	if len(rep.Errors) > 0 {
		fmt.Fprintf(w, ", %d failed", len(rep.Errors))
	}
	fmt.Fprintln(w)
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "  %v\n", e)
	}
}

func newApproveCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "approve [ledger-id...]",
		Short: "Commit suggestions as mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass ledger ids or --all")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			ids := args
			if all {
				ids = nil
				for _, it := range s.p.Ledgers.Filter(func(it model.LedgerItem) bool { return !it.IsMapped() && it.HasUsableSuggestion() }) {
					ids = append(ids, it.ID)
				}
			}
			rep := s.p.Workflow(s.log).Approve(ids)
			printReport(cmd.OutOrStdout(), "approved", rep)
			if len(rep.Applied) == 0 {
				return nil
			}
			return s.commit(cmd.Context(), "approve", "approve", fmt.Sprintf("Approved %d suggestions", len(rep.Applied)), len(rep.Applied))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "approve every usable suggestion")
	return cmd
}

func newRejectCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reject [ledger-id...]",
		Short: "Discard suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass ledger ids or --all")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			rep := s.p.Workflow(s.log).ClearSuggestions(args)
			printReport(cmd.OutOrStdout(), "cleared", rep)
			return s.commit(cmd.Context(), "reject", "reject", fmt.Sprintf("Cleared %d suggestions", len(rep.Applied)), len(rep.Applied))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "clear every suggestion")
	return cmd
}

func newMapCommand() *cobra.Command {
	var lineItem string

	cmd := &cobra.Command{
		Use:   "map <grouping-code> <ledger-id...>",
		Short: "Map ledgers to a grouping",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			anc, err := s.p.Masters.ResolveAncestry(args[0])
			if err != nil {
				return err
			}
			m := anc.Mapping()
			m.NoteLineItemID = lineItem

			rep, err := s.p.Workflow(s.log).BulkManualMap(args[1:], m)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), "mapped to "+anc.Grouping.Name, rep)
			details := fmt.Sprintf("Mapped %d ledgers to %s", len(rep.Applied), anc.Grouping.Code)
			return s.commit(cmd.Context(), "map", "map", details, len(rep.Applied))
		},
	}
	cmd.Flags().StringVar(&lineItem, "line-item", "", "club into this note line item")
	return cmd
}

func newUnmapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unmap <ledger-id...>",
		Short: "Clear mappings, keeping them as suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			wf := s.p.Workflow(s.log)
			for _, lid := range args {
				if err := wf.Unmap(lid); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d unmapped\n", len(args))
			return s.commit(cmd.Context(), "unmap", "unmap", fmt.Sprintf("Unmapped %d ledgers", len(args)), len(args))
		},
	}
}

func newClubCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "club <line-item-id|-> <ledger-id...>",
		Short: "Club mapped ledgers into a note line item",
		Long:  `Club mapped ledgers into a note line item. Pass "-" as the line item to unclub them.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			lineItem := args[0]
			if lineItem == "-" {
				lineItem = ""
			}
			rep := s.p.Workflow(s.log).Club(args[1:], lineItem)
			printReport(cmd.OutOrStdout(), "clubbed", rep)
			if len(rep.Applied) == 0 {
				return nil
			}
			details := fmt.Sprintf("Clubbed %d ledgers into %s", len(rep.Applied), args[0])
			return s.commit(cmd.Context(), "club", "club", details, len(rep.Applied))
		},
	}
}

func newAttrsCommand() *cobra.Command {
	var a model.LedgerAttributes

	cmd := &cobra.Command{
		Use:   "attrs <ledger-id>",
		Short: "Show or set a ledger's disclosure attributes",
		Long: `Show or set a ledger's disclosure attributes. Only flags that are passed
change. Attributes that do not apply to the ledger's grouping are kept but
ignored until it is mapped somewhere they apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			it, err := s.p.Ledgers.Get(args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if slices.ContainsFunc(attrFlags, f.Changed) {
				next := it.Attributes
				if f.Changed("msme") {
					next.IsMSME = a.IsMSME
				}
				if f.Changed("related-party") {
					next.IsRelatedParty = a.IsRelatedParty
				}
				if f.Changed("secured") {
					next.SecuredUnsecured = a.SecuredUnsecured
				}
				if f.Changed("disputed") {
					next.IsDisputed = a.IsDisputed
				}
				if f.Changed("cash") {
					next.IsCashNonCash = a.IsCashNonCash
				}
				if f.Changed("ageing") {
					next.AgeingApplicable = a.AgeingApplicable
				}
				if f.Changed("foreign-currency") {
					next.IsForeignCurrency = a.IsForeignCurrency
				}
				if f.Changed("exceptional") {
					next.IsExceptional = a.IsExceptional
				}
				if err := s.p.Workflow(s.log).SetAttributes(it.ID, next); err != nil {
					return err
				}
				if err := s.commit(cmd.Context(), "attrs", "set-attributes", "Updated attributes of "+it.ID, 1); err != nil {
					return err
				}
				it.Attributes = next
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", it.ID, it.LedgerName, status(it))
			eff := model.EffectiveAttributes(it)
			for _, k := range model.ApplicableAttributes(it.GroupingCode()) {
				fmt.Fprintf(out, "  %-18s %v\n", k, attributeValue(eff, k))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&a.IsMSME, "msme", false, "supplier is a micro or small enterprise")
	f.BoolVar(&a.IsRelatedParty, "related-party", false, "balance is with a related party")
	f.StringVar(&a.SecuredUnsecured, "secured", "", "Secured or Unsecured")
	f.BoolVar(&a.IsDisputed, "disputed", false, "balance is disputed")
	f.StringVar(&a.IsCashNonCash, "cash", "", "Cash or Non-Cash")
	f.BoolVar(&a.AgeingApplicable, "ageing", false, "include in ageing schedules")
	f.BoolVar(&a.IsForeignCurrency, "foreign-currency", false, "denominated in a foreign currency")
	f.BoolVar(&a.IsExceptional, "exceptional", false, "exceptional item")

	return cmd
}

var attrFlags = []string{"msme", "related-party", "secured", "disputed", "cash", "ageing", "foreign-currency", "exceptional"}

func attributeValue(a model.LedgerAttributes, k model.AttributeKey) any {
	switch k {
	case model.AttrMSME:
		return a.IsMSME
	case model.AttrRelatedParty:
		return a.IsRelatedParty
	case model.AttrSecuredUnsecured:
		return a.SecuredUnsecured
	case model.AttrDisputed:
		return a.IsDisputed
	case model.AttrCashNonCash:
		return a.IsCashNonCash
	case model.AttrAgeing:
		return a.AgeingApplicable
	case model.AttrForeignCurrency:
		return a.IsForeignCurrency
	case model.AttrExceptional:
		return a.IsExceptional
	}
	return nil
}
