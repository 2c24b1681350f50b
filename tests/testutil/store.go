package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/store"
)

// NewTestStore opens a migrated in-memory store that is closed with the test.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// RememberUser records userID as the signed-in account, as a login would.
func RememberUser(t *testing.T, s store.LocalState, userID string) {
	t.Helper()
	require.NoError(t, s.SetValue(context.Background(), store.KeyUserID, userID))
}

// SeedDeposit records a pending wallet deposit for userID.
func SeedDeposit(t *testing.T, s store.FundingLog, userID, reference string, amount float64, at time.Time) {
	t.Helper()
	require.NoError(t, s.RecordAttempt(context.Background(), model.FundingAttempt{
		Reference: reference,
		UserID:    userID,
		Kind:      model.FundingDeposit,
		Amount:    amount,
		CreatedAt: at,
	}))
}
