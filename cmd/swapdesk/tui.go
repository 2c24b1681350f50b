package main

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/app"
	"github.com/nhle/swapdesk/internal/funding"
	"github.com/nhle/swapdesk/internal/inbox"
	"github.com/nhle/swapdesk/internal/session"
	appsync "github.com/nhle/swapdesk/internal/sync"
	"github.com/nhle/swapdesk/internal/theme"
)

// runTUI resumes the stored session, or signs in interactively, and opens
// the inbox.
func runTUI(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	sess, err := env.manager.Resume(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrExpired):
		if errors.Is(err, session.ErrExpired) {
			fmt.Fprintln(out, theme.ErrorStyle.Render(funding.MsgSessionExpired))
		}
		if env.manager.TakePasswordResetNotice(ctx) {
			fmt.Fprintln(out, theme.SuccessStyle.Render(resetNotice))
		}
		if sess, err = login(ctx, "", ""); err != nil {
			return err
		}
	default:
		return err
	}
	defer sess.End()

	st := inbox.New(env.client, sess, env.logger)
	poller := appsync.New(st, time.Duration(env.cfg.Poll.IntervalSec)*time.Second, env.logger)
	defer poller.Stop()

	m := app.New(app.Deps{
		Session:   sess,
		Manager:   env.manager,
		Inbox:     st,
		Poller:    poller,
		Verifier:  env.client,
		Funding:   env.db,
		PageSize:  env.pageSize(),
		Logger:    env.logger,
		Reference: launchReference,
		OrderID:   launchOrderID,
	})

	env.logger.Info("starting inbox", zap.String("session_id", sess.ID()))
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	if sess.Expired() {
		fmt.Fprintln(out, theme.ErrorStyle.Render(funding.MsgSessionExpired))
	}
	return nil
}
