package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nhle/swapdesk/internal/model"
)

type depositRequest struct {
	Amount float64 `json:"amount"`
}

// GetWallet fetches the user's wallet balance.
func (c *Client) GetWallet(ctx context.Context, token string) Result[model.Wallet] {
	return Do[model.Wallet](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/wallet",
		Token:  token,
	})
}

// InitiateDeposit starts a gateway payment to fund the wallet.
func (c *Client) InitiateDeposit(ctx context.Context, token string, amount float64) Result[model.Deposit] {
	return Do[model.Deposit](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/api/wallet/deposit",
		Body:   depositRequest{Amount: amount},
		Token:  token,
	})
}

// VerifyDeposit asks the backend to confirm a gateway reference. The
// reference is forwarded as-is.
func (c *Client) VerifyDeposit(
	ctx context.Context,
	token string,
	reference string,
) Result[model.DepositVerification] {
	return Do[model.DepositVerification](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/wallet/deposit/verify/" + pathID(reference),
		Token:  token,
	})
}

// VerifyOrderPayment confirms a gateway payment made directly for an order.
func (c *Client) VerifyOrderPayment(
	ctx context.Context,
	token string,
	orderID string,
	reference string,
) Result[model.OrderPaymentVerification] {
	return Do[model.OrderPaymentVerification](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/orders/" + pathID(orderID) + "/verify-payment",
		Query:  url.Values{"reference": []string{reference}},
		Token:  token,
	})
}
