package model

import "time"

// Wallet is the user's marketplace balance.
type Wallet struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Deposit is returned when a funding attempt is initiated. The user
// completes payment at AuthorizationURL and the gateway hands back
// Reference.
type Deposit struct {
	AuthorizationURL string  `json:"authorizationUrl"`
	AccessCode       string  `json:"accessCode"`
	Reference        string  `json:"reference"`
	Amount           float64 `json:"amount"`
}

// Transaction is the backend's authoritative record of a wallet movement.
type Transaction struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	BalanceAfter float64   `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DepositVerification is the payload of the deposit verification endpoint.
type DepositVerification struct {
	Transaction Transaction `json:"transaction"`
	Balance     float64     `json:"balance"`
}

// FundingKind distinguishes wallet deposits from direct order payments.
type FundingKind string

const (
	FundingDeposit      FundingKind = "deposit"
	FundingOrderPayment FundingKind = "order_payment"
)

// Funding attempt statuses.
const (
	FundingPending   = "pending"
	FundingSucceeded = "succeeded"
	FundingFailed    = "failed"
)

// FundingAttempt is the local record of a payment started from this client.
type FundingAttempt struct {
	Reference        string      `db:"reference" json:"reference"`
	UserID           string      `db:"user_id" json:"userId"`
	Kind             FundingKind `db:"kind" json:"kind"`
	OrderID          string      `db:"order_id" json:"orderId,omitempty"`
	Amount           float64     `db:"amount" json:"amount"`
	AuthorizationURL string      `db:"authorization_url" json:"authorizationUrl"`
	Status           string      `db:"status" json:"status"`
	Message          string      `db:"message" json:"message"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`
}
