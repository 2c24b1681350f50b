package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/swapdesk/internal/funding"
	"github.com/nhle/swapdesk/internal/inbox"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/theme"
)

var (
	listPage       int
	listUnreadOnly bool
	prefsEmail     bool
	prefsPush      bool
)

// notificationsCmd groups the inbox commands.
var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"n", "inbox"},
	Short:   "List and manage notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark notifications as read",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotificationsRead,
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsReadAll,
}

var notificationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete notifications",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotificationsDelete,
}

var notificationsPrefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change notification channels",
	Long: `Without flags, prints the current notification channels. With --email
or --push, sends only the changed settings.`,
	Args: cobra.NoArgs,
	RunE: runNotificationsPrefs,
}

func init() {
	notificationsListCmd.Flags().IntVarP(&listPage, "page", "p", 1, "Page number")
	notificationsListCmd.Flags().BoolVarP(&listUnreadOnly, "unread", "u", false, "Only unread notifications")

	notificationsPrefsCmd.Flags().BoolVar(&prefsEmail, "email", false, "Email notifications on/off")
	notificationsPrefsCmd.Flags().BoolVar(&prefsPush, "push", false, "Push notifications on/off")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsReadAllCmd)
	notificationsCmd.AddCommand(notificationsDeleteCmd)
	notificationsCmd.AddCommand(notificationsPrefsCmd)
}

// openInbox resumes the session and binds a notification store to it.
func openInbox(ctx context.Context) (*session.Session, *inbox.Store, error) {
	sess, err := env.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sess, inbox.New(env.client, sess, env.logger), nil
}

// actionError turns a failed store action into an error, preferring the
// expiry message when the backend rejected the token.
func actionError(sess *session.Session, format string, args ...any) error {
	if sess.Expired() {
		return errors.New(funding.MsgSessionExpired)
	}
	return fmt.Errorf(format, args...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, st, err := openInbox(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	st.Load(ctx, listPage, env.pageSize(), listUnreadOnly)
	if sess.Expired() {
		return errors.New(funding.MsgSessionExpired)
	}
	state := st.Snapshot()
	if state.Err != "" {
		return errors.New(state.Err)
	}

	printNotifications(cmd.OutOrStdout(), state)
	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, st, err := openInbox(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	for _, id := range args {
		if !st.MarkAsRead(ctx, id) {
			return actionError(sess, "could not mark %s as read", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read.\n", id)
	}
	return nil
}

func runNotificationsReadAll(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, st, err := openInbox(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	if !st.MarkAllAsRead(ctx) {
		return actionError(sess, "could not mark notifications as read")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked as read.")
	return nil
}

func runNotificationsDelete(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, st, err := openInbox(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	for _, id := range args {
		if !st.Delete(ctx, id) {
			return actionError(sess, "could not delete %s", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d unread.\n", st.Snapshot().UnreadCount)
	return nil
}

func runNotificationsPrefs(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, st, err := openInbox(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	var u model.PreferencesUpdate
	if cmd.Flags().Changed("email") {
		v := prefsEmail
		u.EmailNotifications = &v
	}
	if cmd.Flags().Changed("push") {
		v := prefsPush
		u.PushNotifications = &v
	}

	if u.Empty() {
		if !st.LoadPreferences(ctx, false) {
			return actionError(sess, "could not load notification settings")
		}
	} else if !st.UpdatePreferences(ctx, u) {
		return actionError(sess, "could not save notification settings")
	}

	p := st.Snapshot().Preferences
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Email notifications: %s\n", onOff(p.EmailNotifications))
	fmt.Fprintf(out, "Push notifications:  %s\n", onOff(p.PushNotifications))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// printNotifications renders one page of the inbox as a table.
func printNotifications(w io.Writer, state inbox.State) {
	if len(state.Notifications) == 0 {
		fmt.Fprintln(w, theme.DimmedStyle.Render("No notifications."))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorGray)).
		Headers("", "ID", "TYPE", "TITLE", "RECEIVED")

	for _, n := range state.Notifications {
		dot := " "
		if !n.IsRead {
			dot = "●"
		}
		received := ""
		if !n.CreatedAt.IsZero() {
			received = n.CreatedAt.Local().Format("Jan 2 15:04")
		}
		t.Row(dot, n.ID, theme.CategoryLabel(n.Type.Category()), truncate(n.Title, 48), received)
	}

	fmt.Fprintln(w, t.Render())

	p := state.Pagination
	footer := []string{fmt.Sprintf("%d unread", state.UnreadCount)}
	if p.Pages > 0 {
		footer = append(footer, fmt.Sprintf("page %d of %d", p.Page, p.Pages))
	}
	if p.HasNext() {
		footer = append(footer, fmt.Sprintf("next: --page %d", p.Page+1))
	}
	fmt.Fprintln(w, theme.HelpStyle.Render(strings.Join(footer, " · ")))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
