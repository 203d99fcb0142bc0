package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/classifier"
	"github.com/tbmap/tbmap/internal/mapping"
	"github.com/tbmap/tbmap/internal/model"
)

func newSuggestCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "suggest [ledger-id...]",
		Short: "Ask the classifier for mapping suggestions",
		Long: `Send ledgers to the configured classifier in batches and store what it
suggests. Without ids every unmapped ledger is sent. Suggestions are advisory
until approved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("overwrite") {
				s.p.Config.Suggestions.Overwrite = overwrite
			}

			ids := args
			if len(ids) == 0 {
				for _, it := range s.p.Ledgers.Filter(func(it model.LedgerItem) bool { return !it.IsMapped() }) {
					ids = append(ids, it.ID)
				}
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "Nothing to classify: every ledger is mapped.")
				return nil
			}

			c, closeFn, err := newClassifier(s)
			if err != nil {
				return err
			}
			defer closeFn()

			wf := s.p.Workflow(s.log)
			creds := classifier.Credentials{Token: s.p.Config.Suggestions.Token}
			rep := wf.RequestSuggestions(cmd.Context(), ids, c, creds, func(pr mapping.Progress) {
				if pr.Err != nil {
					fmt.Fprintf(out, "batch %d/%d failed: %v\n", pr.Batch, pr.Batches, pr.Err)
					return
				}
				fmt.Fprintf(out, "batch %d/%d: %d suggested\n", pr.Batch, pr.Batches, len(pr.Report.Applied))
			})
			printReport(out, "suggested", rep)

			details := fmt.Sprintf("Requested suggestions for %d ledgers", len(ids))
			return s.commit(cmd.Context(), "suggest", "suggest", details, len(rep.Applied))
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing usable suggestions")

	return cmd
}

// newClassifier builds the classifier named in the config. The returned
// function releases it.
func newClassifier(s *session) (classifier.Classifier, func(), error) {
	cfg := s.p.Config.Suggestions
	switch cfg.Classifier {
	case "command":
		c, err := classifier.StartCommand(cfg.Command[0], cfg.Command[1:]...)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				s.log.Warn("classifier exited with error", "error", err)
			}
		}, nil
	default:
		if cfg.RulesFile == "" {
			return classifier.DefaultKeyword(), func() {}, nil
		}
		path := cfg.RulesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.p.Root, path)
		}
		k, err := classifier.LoadRules(path)
		if err != nil {
			return nil, nil, err
		}
		return k, func() {}, nil
	}
}
