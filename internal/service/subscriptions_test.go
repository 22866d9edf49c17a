package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/syndicate/internal/payments"
	"github.com/fortuna/syndicate/internal/store"
)

func newTestSubscriptions(provider *fakeProvider) (*SubscriptionService, *fakePaymentRepo, *fakeUserRepo) {
	txs := &fakePaymentRepo{txs: make(map[string]*store.PaymentTransaction)}
	users := newFakeUserRepo()
	return NewSubscriptionService(provider, txs, users), txs, users
}

var buyer = &store.User{ID: "user-1", Email: "buyer@example.com"}

func TestCreateCheckout_RecordsPendingTransaction(t *testing.T) {
	svc, txs, _ := newTestSubscriptions(&fakeProvider{})

	checkout, err := svc.CreateCheckout(context.Background(), buyer, "https://tips.example")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", checkout.SessionID)

	tx := txs.txs["cs_1"]
	require.NotNil(t, tx)
	assert.Equal(t, store.PaymentPending, tx.PaymentStatus)
	assert.Equal(t, payments.VIPAmount, tx.Amount)
	assert.Equal(t, "gbp", tx.Currency)
	assert.Equal(t, buyer.ID, tx.UserID)
}

func TestStatus_GrantsVIPOnce(t *testing.T) {
	provider := &fakeProvider{}
	svc, txs, users := newTestSubscriptions(provider)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, buyer, "https://tips.example")
	require.NoError(t, err)

	provider.session = &payments.Session{ID: "cs_1", PaymentStatus: "unpaid"}
	_, err = svc.Status(ctx, buyer, "cs_1")
	require.NoError(t, err)
	assert.Empty(t, users.vip)

	provider.session = &payments.Session{ID: "cs_1", PaymentStatus: "paid"}
	session, err := svc.Status(ctx, buyer, "cs_1")
	require.NoError(t, err)
	assert.True(t, session.Paid())
	assert.Equal(t, "cs_1", users.vip[buyer.ID])
	assert.Equal(t, store.PaymentPaid, txs.txs["cs_1"].PaymentStatus)

	users.fail = errors.New("must not be called again")
	_, err = svc.Status(ctx, buyer, "cs_1")
	assert.NoError(t, err)
}

func TestStatus_OtherUsersSession(t *testing.T) {
	svc, _, _ := newTestSubscriptions(&fakeProvider{})
	_, err := svc.CreateCheckout(context.Background(), buyer, "https://tips.example")
	require.NoError(t, err)

	_, err = svc.Status(context.Background(), &store.User{ID: "user-2"}, "cs_1")
	assert.ErrorIs(t, err, ErrSessionNotOwned)
}

func TestHandleWebhook_RetriesFailedActivation(t *testing.T) {
	provider := &fakeProvider{}
	svc, txs, users := newTestSubscriptions(provider)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, buyer, "https://tips.example")
	require.NoError(t, err)

	provider.session = &payments.Session{ID: "cs_1", PaymentStatus: "paid"}
	users.fail = errors.New("db down")
	assert.Error(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))
	assert.Equal(t, store.PaymentPending, txs.txs["cs_1"].PaymentStatus)

	users.fail = nil
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))
	assert.Equal(t, "cs_1", users.vip[buyer.ID])
}

func TestHandleWebhook_PropagatesParseErrors(t *testing.T) {
	svc, _, _ := newTestSubscriptions(&fakeProvider{err: payments.ErrIgnoredEvent})

	err := svc.HandleWebhook(context.Background(), nil, "")
	assert.ErrorIs(t, err, payments.ErrIgnoredEvent)
}
