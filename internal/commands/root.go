package commands

import (
	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tbmap",
		Short:   "Map a trial balance to Schedule III financial statements",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("project", "C", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(),
		newLedgersCommand(),
		newSuggestCommand(),
		newApproveCommand(),
		newRejectCommand(),
		newMapCommand(),
		newUnmapCommand(),
		newClubCommand(),
		newAttrsCommand(),
		newMastersCommand(),
		newNotesCommand(),
		newAggregateCommand(),
		newPopulateCommand(),
		newSchedulesCommand(),
		newStatementsCommand(),
		newValidateCommand(),
		newExportCommand(),
		newLogCommand(),
	)

	return rootCmd
}
