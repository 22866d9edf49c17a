package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fortuna/syndicate/internal/cache"
	"github.com/fortuna/syndicate/internal/payments"
	"github.com/fortuna/syndicate/internal/publisher"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/store/repository"
)

type fakeBetRepo struct {
	mu        sync.Mutex
	bets      []*store.Bet
	filters   []repository.BetFilter
	listCalls int
	listDelay time.Duration
}

func (f *fakeBetRepo) Create(_ context.Context, in store.BetInput) (*store.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bet := &store.Bet{
		ID: fmt.Sprintf("bet-%d", len(f.bets)+1), HomeTeam: in.HomeTeam, AwayTeam: in.AwayTeam,
		League: in.League, BetType: in.BetType, Odds: in.Odds, Stake: in.Stake,
		KickOff: in.KickOff, IsVIP: in.IsVIP, Status: store.StatusPending,
	}
	f.bets = append(f.bets, bet)
	return bet, nil
}

func (f *fakeBetRepo) GetByID(_ context.Context, id string) (*store.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bets {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeBetRepo) Update(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error) {
	bet, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status != nil {
		bet.Status = *u.Status
	}
	return bet, nil
}

func (f *fakeBetRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bets {
		if b.ID == id {
			f.bets = append(f.bets[:i], f.bets[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeBetRepo) List(_ context.Context, filter repository.BetFilter) ([]*store.Bet, error) {
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.filters = append(f.filters, filter)

	var out []*store.Bet
	for _, b := range f.bets {
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, b.Status) {
			continue
		}
		if filter.IsVIP != nil && b.IsVIP != *filter.IsVIP {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(v, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type recordingEvents struct {
	events []publisher.BetEvent
}

func (r *recordingEvents) PublishBetEvent(_ context.Context, e publisher.BetEvent) error {
	r.events = append(r.events, e)
	return nil
}

type fakeUserRepo struct {
	users map[string]*store.User
	vip   map[string]string
	fail  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*store.User), vip: make(map[string]string)}
}

func (f *fakeUserRepo) Create(_ context.Context, email, name, hash string) (*store.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return nil, fmt.Errorf("inserting user: %w", store.ErrDuplicate)
		}
	}
	u := &store.User{ID: fmt.Sprintf("user-%d", len(f.users)+1), Email: email, Name: name, PasswordHash: hash}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*store.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*store.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserRepo) SetAdmin(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsAdmin = true
	return nil
}

func (f *fakeUserRepo) ActivateVIP(_ context.Context, id, sessionID string) error {
	if f.fail != nil {
		return f.fail
	}
	f.vip[id] = sessionID
	return nil
}

type fakeProvider struct {
	session *payments.Session
	err     error
}

func (p *fakeProvider) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &payments.Session{ID: "cs_1", URL: payments.SuccessURL(req.Origin), PaymentStatus: "unpaid"}, nil
}

func (p *fakeProvider) GetSession(context.Context, string) (*payments.Session, error) {
	return p.session, p.err
}

func (p *fakeProvider) ParseWebhook([]byte, string) (*payments.Session, error) {
	return p.session, p.err
}

type fakePaymentRepo struct {
	txs map[string]*store.PaymentTransaction
}

func (f *fakePaymentRepo) Create(_ context.Context, tx store.PaymentTransaction) (*store.PaymentTransaction, error) {
	tx.PaymentStatus = store.PaymentPending
	f.txs[tx.SessionID] = &tx
	return &tx, nil
}

func (f *fakePaymentRepo) GetBySession(_ context.Context, id string) (*store.PaymentTransaction, error) {
	tx, ok := f.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (f *fakePaymentRepo) MarkPaid(_ context.Context, id string) (bool, error) {
	tx, ok := f.txs[id]
	if !ok || tx.PaymentStatus == store.PaymentPaid {
		return false, nil
	}
	tx.PaymentStatus = store.PaymentPaid
	return true, nil
}
