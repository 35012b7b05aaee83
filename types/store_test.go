package types_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Mrinallcx/payagent-core/types"
)

func storePayment(t *testing.T, s types.Store, id, status string) {
	t.Helper()
	require.NoError(t, s.PutPayment(context.Background(), &types.Payment{
		ID:     id,
		Status: status,
		Amount: decimal.RequireFromString("10"),
	}))
}

func TestUpdatePaymentIfStatusPrecondition(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()
	storePayment(t, s, "p1", types.PaymentPending)

	updated, err := s.UpdatePaymentIfStatus(ctx, "p1", types.PaymentPending, func(p *types.Payment) {
		p.Status = types.PaymentCompleted
	})
	require.NoError(t, err)
	require.True(t, updated)

	// the precondition no longer holds, so the second update is refused
	updated, err = s.UpdatePaymentIfStatus(ctx, "p1", types.PaymentPending, func(p *types.Payment) {
		p.Status = types.PaymentExpired
	})
	require.NoError(t, err)
	require.False(t, updated)

	p, ok, err := s.GetPayment(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.PaymentCompleted, p.Status)
}

func TestUpdatePaymentIfStatusSingleWinner(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()
	storePayment(t, s, "p1", types.PaymentPending)

	var wins sync.Map
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			updated, err := s.UpdatePaymentIfStatus(ctx, "p1", types.PaymentPending, func(p *types.Payment) {
				p.Status = types.PaymentCompleted
			})
			require.NoError(t, err)
			if updated {
				wins.Store(n, true)
			}
		}(i)
	}
	wg.Wait()

	count := 0
	wins.Range(func(_, _ any) bool { count++; return true })
	require.Equal(t, 1, count, "exactly one concurrent settlement may win")
}

func TestGetPaymentReturnsCopy(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()
	storePayment(t, s, "p1", types.PaymentPending)

	p, _, err := s.GetPayment(ctx, "p1")
	require.NoError(t, err)
	p.Status = types.PaymentFailed

	again, _, err := s.GetPayment(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, types.PaymentPending, again.Status, "mutating a returned record must not touch the store")
}

func TestPaymentsByStatus(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()
	storePayment(t, s, "b", types.PaymentPending)
	storePayment(t, s, "a", types.PaymentPending)
	storePayment(t, s, "c", types.PaymentCompleted)

	pending, err := s.PaymentsByStatus(ctx, types.PaymentPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "a", pending[0].ID)
	require.Equal(t, "b", pending[1].ID)
}

func TestSubscriptionsForParties(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()

	for id, party := range map[string]string{"s1": "creator-1", "s2": "payer-1", "s3": "creator-2"} {
		require.NoError(t, s.PutSubscription(ctx, &types.WebhookSubscription{ID: id, PartyID: party, Active: true}))
	}

	subs, err := s.SubscriptionsForParties(ctx, []string{"creator-1", "payer-1"})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, "s1", subs[0].ID)
	require.Equal(t, "s2", subs[1].ID)

	require.NoError(t, s.DeleteSubscription(ctx, "s1"))
	subs, err = s.SubscriptionsForParties(ctx, []string{"creator-1", "payer-1"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestFeeEntriesAppend(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"e1", "e2"} {
		require.NoError(t, s.PutFeeEntry(ctx, &types.FeeLedgerEntry{
			ID:        id,
			PaymentID: "p1",
			Created:   time.Now(),
		}))
	}

	entries, err := s.FeeEntriesForPayment(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = s.FeeEntriesForPayment(ctx, "other")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCredentialUpdate(t *testing.T) {
	s := types.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.PutCredential(ctx, &types.AuthCredential{KeyID: "pk_1", PartyID: "creator-1"}))

	ok, err := s.UpdateCredential(ctx, "pk_1", func(c *types.AuthCredential) { c.Revoked = true })
	require.NoError(t, err)
	require.True(t, ok)

	c, found, err := s.GetCredential(ctx, "pk_1")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, c.Revoked)

	ok, err = s.UpdateCredential(ctx, "pk_missing", func(c *types.AuthCredential) {})
	require.NoError(t, err)
	require.False(t, ok)
}
