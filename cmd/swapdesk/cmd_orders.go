package main

import (
	"github.com/spf13/cobra"
)

// ordersCmd groups the order commands.
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Order payments",
}

var ordersVerifyCmd = &cobra.Command{
	Use:   "verify <order-id> <reference>",
	Short: "Verify a gateway payment made for an order",
	Args:  cobra.ExactArgs(2),
	RunE:  runOrdersVerify,
}

func init() {
	ordersCmd.AddCommand(ordersVerifyCmd)
}

func runOrdersVerify(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	sess, err := env.session(ctx)
	if err != nil {
		return err
	}
	defer sess.End()

	return printOutcome(cmd.OutOrStdout(), verifyOrder(ctx, sess, args[0], args[1]))
}
