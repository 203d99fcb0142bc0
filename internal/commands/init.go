package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/config"
	"github.com/tbmap/tbmap/internal/project"
)

func newInitCommand() *cobra.Command {
	var name, entityType, year string
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tbmap project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				if dir, err = filepath.Abs(args[0]); err != nil {
					return fmt.Errorf("resolving path: %w", err)
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			cfg := config.Default(name, entityType)
			cfg.Entity.FinancialYear = year
			cfg.Git.AutoCommit = git

			p, err := project.Init(dir, cfg)
			if err != nil {
				return err
			}

			// Write .gitignore.
			gitignore := "exports/\nimport/processed/\n"
			if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
				return fmt.Errorf("writing .gitignore: %w", err)
			}

			s := newSession(cmd, p)
			if err := s.commit(cmd.Context(), "init", "initialize", "Initialize "+name, 0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized tbmap project for %s (%s) at %s\n", name, p.EntityType, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "entity name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&entityType, "entity-type", "Company", "Company, LLP or Non-Corporate")
	cmd.Flags().StringVar(&year, "year", "", "financial year, e.g. 2024-25")
	cmd.Flags().BoolVar(&git, "git", false, "keep the project under git and commit after every change")

	return cmd
}
