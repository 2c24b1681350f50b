package store

import (
	"context"
	"errors"

	"github.com/nhle/swapdesk/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Fixed local state keys.
const (
	KeyUserID            = "auth_user_id"
	KeyPasswordResetSent = "password_reset_sent"
)

// AttemptFilter controls filtering and pagination for funding attempts.
type AttemptFilter struct {
	UserID string
	Status *string
	Kind   *model.FundingKind
	Limit  int
}

// LocalState is the client's key-value "local storage".
type LocalState interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error

	// TakeValue returns the value and deletes it in one step, so one-shot
	// flags are observed at most once.
	TakeValue(ctx context.Context, key string) (string, bool, error)
}

// FundingLog persists payment attempts started from this client.
type FundingLog interface {
	RecordAttempt(ctx context.Context, a model.FundingAttempt) error
	UpdateAttemptStatus(ctx context.Context, reference, status, message string) error
	GetAttempt(ctx context.Context, reference string) (*model.FundingAttempt, error)
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]model.FundingAttempt, error)
}

// Store defines the persistence interface for local client state.
type Store interface {
	LocalState
	FundingLog
	Close() error
}
