package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbmap/tbmap/internal/activity"
	"github.com/tbmap/tbmap/internal/format"
	"github.com/tbmap/tbmap/internal/gitops"
	"github.com/tbmap/tbmap/internal/logging"
	"github.com/tbmap/tbmap/internal/project"
)

// session is an opened project plus what a command needs to report on it.
type session struct {
	p   *project.Project
	log *slog.Logger
	fmt *format.Formatter
}

func projectDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("project")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	dir, err := projectDir(cmd)
	if err != nil {
		return nil, err
	}
	p, err := project.Open(dir)
	if err != nil {
		return nil, err
	}
	return newSession(cmd, p), nil
}

func newSession(cmd *cobra.Command, p *project.Project) *session {
	e := p.Config.Entity
	nf, err := format.ParseNumberFormat(e.NumberFormat)
	if err != nil {
		nf = format.Indian
	}
	unit, err := format.ParseUnit(e.RoundingUnit)
	if err != nil {
		unit = format.Ones
	}
	return &session{
		p:   p,
		log: logging.New(cmd.ErrOrStderr(), p.Config.Log),
		fmt: format.New(nf, unit, e.DecimalPlaces, ""),
	}
}

// commit saves the project, records the change in the activity log and,
// when configured, snapshots the directory with git. Failures after the save
// are logged, not returned: the data is already on disk.
func (s *session) commit(ctx context.Context, command, action, details string, ledgers int) error {
	if err := s.p.Save(); err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	entry := activity.Entry{
		Timestamp: time.Now(),
		Command:   command,
		Action:    action,
		Details:   details,
		Ledgers:   ledgers,
	}

	if g := s.p.Config.Git; g.AutoCommit {
		repo := gitops.Repo{Dir: s.p.Root, AuthorName: g.AuthorName, AuthorEmail: g.AuthorEmail}
		if !gitops.IsRepo(s.p.Root) {
			if err := repo.Init(ctx); err != nil {
				s.log.Warn("git snapshot skipped", "error", err)
			}
		}
		hash, err := repo.Commit(ctx, fmt.Sprintf("%s: %s", command, details))
		if err != nil {
			s.log.Warn("git snapshot failed", "error", err)
		}
		entry.CommitHash = hash
	}

	if err := activity.Append(s.p.Root, entry); err != nil {
		s.log.Warn("writing activity log failed", "error", err)
	}
	s.log.Debug("project saved", "command", command, "action", action)
	return nil
}
