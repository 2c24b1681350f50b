package funding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/store"
)

// ErrInvalidAmount is returned for a non-positive deposit amount.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

// Depositor is the deposit initiation subset of the backend API.
type Depositor interface {
	InitiateDeposit(ctx context.Context, token string, amount float64) api.Result[model.Deposit]
}

// Funder starts wallet deposits and keeps a local history of them.
type Funder struct {
	backend Depositor
	log     store.FundingLog
	logger  *zap.Logger
}

// NewFunder wires a Funder. logger may be nil.
func NewFunder(backend Depositor, log store.FundingLog, logger *zap.Logger) *Funder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Funder{backend: backend, log: log, logger: logger.Named("funding")}
}

// Initiate asks the backend for a gateway checkout and records a pending
// attempt. The caller sends the user to the returned AuthorizationURL.
func (f *Funder) Initiate(ctx context.Context, sess *session.Session, amount float64) (*model.Deposit, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	token := sess.Token()
	if token == "" {
		return nil, session.ErrNoSession
	}

	res := f.backend.InitiateDeposit(ctx, token, amount)
	if res.Unauthorized() {
		sess.Expire()
	}
	if err := res.Err(); err != nil {
		f.logger.Warn("initiating deposit failed", zap.Float64("amount", amount), zap.String("error", res.Error))
		return nil, err
	}
	if res.Data == nil || res.Data.Reference == "" {
		return nil, &api.Error{Status: res.Status, Message: api.MsgInvalidResponse}
	}

	dep := *res.Data
	if dep.Amount == 0 {
		dep.Amount = amount
	}

	err := f.log.RecordAttempt(ctx, model.FundingAttempt{
		Reference:        dep.Reference,
		UserID:           sess.UserID(),
		Kind:             model.FundingDeposit,
		Amount:           dep.Amount,
		AuthorizationURL: dep.AuthorizationURL,
		Status:           model.FundingPending,
	})
	if err != nil {
		return nil, fmt.Errorf("recording deposit: %w", err)
	}

	f.logger.Info("deposit initiated", zap.String("reference", dep.Reference), zap.Float64("amount", dep.Amount))
	return &dep, nil
}

// LatestPending returns the newest pending attempt for userID, or
// store.ErrNotFound.
func (f *Funder) LatestPending(ctx context.Context, userID string) (*model.FundingAttempt, error) {
	status := model.FundingPending
	attempts, err := f.log.ListAttempts(ctx, store.AttemptFilter{
		UserID: userID,
		Status: &status,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, store.ErrNotFound
	}
	return &attempts[0], nil
}

// History lists userID's attempts, newest first. limit <= 0 means all.
func (f *Funder) History(ctx context.Context, userID string, limit int) ([]model.FundingAttempt, error) {
	return f.log.ListAttempts(ctx, store.AttemptFilter{UserID: userID, Limit: limit})
}
