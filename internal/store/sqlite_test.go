package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/store"
	"github.com/nhle/swapdesk/tests/testutil"
)

func TestLocalState_SetGetDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetValue(ctx, store.KeyUserID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetValue(ctx, store.KeyUserID, "user-1"))
	require.NoError(t, s.SetValue(ctx, store.KeyUserID, "user-2"))

	v, err := s.GetValue(ctx, store.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "user-2", v)

	require.NoError(t, s.DeleteValue(ctx, store.KeyUserID))
	require.NoError(t, s.DeleteValue(ctx, store.KeyUserID))
	_, err = s.GetValue(ctx, store.KeyUserID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLocalState_TakeValueIsOneShot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetValue(ctx, store.KeyPasswordResetSent, "1"))

	v, ok, err := s.TakeValue(ctx, store.KeyPasswordResetSent)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok, err = s.TakeValue(ctx, store.KeyPasswordResetSent)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFundingLog_RecordUpdateList(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordAttempt(ctx, model.FundingAttempt{
		Reference: "ref-1", UserID: "u1", Kind: model.FundingDeposit,
		Amount: 1000, AuthorizationURL: "https://pay/ref-1", CreatedAt: base,
	}))
	require.NoError(t, s.RecordAttempt(ctx, model.FundingAttempt{
		Reference: "ref-2", UserID: "u1", Kind: model.FundingOrderPayment,
		OrderID: "o-1", Amount: 2500, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, s.RecordAttempt(ctx, model.FundingAttempt{
		Reference: "ref-3", UserID: "u2", Kind: model.FundingDeposit,
		Amount: 10, CreatedAt: base.Add(2 * time.Minute),
	}))

	got, err := s.GetAttempt(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.FundingPending, got.Status)
	assert.Equal(t, model.FundingDeposit, got.Kind)
	assert.Equal(t, 1000.0, got.Amount)
	assert.True(t, base.Equal(got.CreatedAt))

	require.NoError(t, s.UpdateAttemptStatus(ctx, "ref-1", model.FundingSucceeded, "ok"))
	got, err = s.GetAttempt(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.FundingSucceeded, got.Status)
	assert.Equal(t, "ok", got.Message)

	all, err := s.ListAttempts(ctx, store.AttemptFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ref-2", all[0].Reference)

	pending := model.FundingPending
	open, err := s.ListAttempts(ctx, store.AttemptFilter{UserID: "u1", Status: &pending})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "o-1", open[0].OrderID)

	deposit := model.FundingDeposit
	deposits, err := s.ListAttempts(ctx, store.AttemptFilter{Kind: &deposit, Limit: 1})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, "ref-3", deposits[0].Reference)
}

func TestFundingLog_Errors(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetAttempt(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.UpdateAttemptStatus(ctx, "missing", model.FundingFailed, "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, s.RecordAttempt(ctx, model.FundingAttempt{UserID: "u1"}))
}
