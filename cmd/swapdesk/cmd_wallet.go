package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/funding"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/store"
	"github.com/nhle/swapdesk/internal/theme"
)

var (
	fundAmount   float64
	historyLimit int
)

// walletCmd groups the wallet commands.
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Check and fund your wallet",
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet balance",
	Args:  cobra.NoArgs,
	RunE:  runWalletBalance,
}

var walletFundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Start a wallet deposit",
	Long: `Starts a deposit and prints the gateway link to complete payment. After
paying, run "swapdesk wallet verify" to credit the wallet.`,
	Args: cobra.NoArgs,
	RunE: runWalletFund,
}

var walletVerifyCmd = &cobra.Command{
	Use:   "verify [reference]",
	Short: "Verify a wallet deposit",
	Long: `Verifies the deposit with the given gateway reference. Without a
reference, the most recent pending deposit started here is verified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWalletVerify,
}

var walletHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List payments started from this device",
	Args:  cobra.NoArgs,
	RunE:  runWalletHistory,
}

func init() {
	walletFundCmd.Flags().Float64VarP(&fundAmount, "amount", "a", 0, "Amount to deposit")
	walletHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries")

	walletCmd.AddCommand(walletBalanceCmd)
	walletCmd.AddCommand(walletFundCmd)
	walletCmd.AddCommand(walletVerifyCmd)
	walletCmd.AddCommand(walletHistoryCmd)
}

func newFunder() *funding.Funder {
	return funding.NewFunder(env.client, env.db, env.logger)
}

func runWalletBalance(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, err := env.session(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	res := env.client.GetWallet(ctx, sess.Token())
	if res.Unauthorized() {
		sess.Expire()
		return errors.New(funding.MsgSessionExpired)
	}
	if err := res.Err(); err != nil {
		return err
	}

	w := res.Data
	if w == nil {
		return errors.New(api.MsgInvalidResponse)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s %.2f\n", w.Currency, w.Balance)
	return nil
}

func runWalletFund(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, err := env.session(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	amount := fundAmount
	if amount <= 0 {
		if amount, err = promptAmount(); err != nil {
			return err
		}
	}

	dep, err := newFunder().Initiate(ctx, sess, amount)
	if err != nil {
		if sess.Expired() {
			return errors.New(funding.MsgSessionExpired)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Complete your payment at:")
	fmt.Fprintln(out, "  "+dep.AuthorizationURL)
	fmt.Fprintln(out, theme.HelpStyle.Render("Reference: "+dep.Reference))
	fmt.Fprintln(out, theme.HelpStyle.Render("Then run: swapdesk wallet verify "+dep.Reference))
	return nil
}

func promptAmount() (float64, error) {
	var raw string
	err := huh.NewInput().
		Title("Amount to deposit").
		Value(&raw).
		Validate(func(s string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || v <= 0 {
				return errors.New("enter a positive amount")
			}
			return nil
		}).
		Run()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func runWalletVerify(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, err := env.session(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	var ref string
	if len(args) == 1 {
		ref = args[0]
	} else {
		a, err := newFunder().LatestPending(ctx, sess.UserID())
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("no pending deposit: pass the gateway reference")
		}
		if err != nil {
			return err
		}
		ref = a.Reference
	}

	flow := funding.NewDepositFlow(env.client, sess, ref,
		funding.WithRecorder(env.db), funding.WithLogger(env.logger))
	return printOutcome(cmd.OutOrStdout(), flow.Run(ctx))
}

func runWalletHistory(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, err := env.session(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	attempts, err := newFunder().History(ctx, sess.UserID(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(attempts) == 0 {
		fmt.Fprintln(out, theme.DimmedStyle.Render("No payments yet."))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorGray)).
		Headers("REFERENCE", "KIND", "ORDER", "AMOUNT", "STATUS", "STARTED")
	for _, a := range attempts {
		amount := ""
		if a.Amount > 0 {
			amount = fmt.Sprintf("%.2f", a.Amount)
		}
		t.Row(a.Reference, string(a.Kind), a.OrderID, amount, a.Status, a.CreatedAt.Local().Format("Jan 2 15:04"))
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

// printOutcome reports a finished verification and returns an error when
// the payment was not confirmed.
func printOutcome(w io.Writer, out funding.Outcome) error {
	if !out.Succeeded() {
		return errors.New(out.Message)
	}

	fmt.Fprintln(w, theme.SuccessStyle.Render(out.Message))
	if out.Transaction != nil {
		fmt.Fprintf(w, "Amount:      %.2f\n", out.Transaction.Amount)
		fmt.Fprintf(w, "Reference:   %s\n", out.Transaction.Reference)
	}
	if out.Balance != nil {
		fmt.Fprintf(w, "New balance: %.2f\n", *out.Balance)
	}
	if out.Order != nil {
		fmt.Fprintf(w, "Order %s:   %s\n", out.Order.ID, out.Order.PaymentStatus)
	}
	return nil
}

// verifyOrder runs an order payment verification for the session.
func verifyOrder(ctx context.Context, sess *session.Session, orderID, ref string) funding.Outcome {
	flow := funding.NewOrderFlow(env.client, sess, orderID, ref,
		funding.WithRecorder(env.db), funding.WithLogger(env.logger))
	return flow.Run(ctx)
}
