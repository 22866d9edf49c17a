package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/payments"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/store/repository"
)

type memBets struct {
	mu     sync.Mutex
	bets   []*store.Bet
	refs   map[string]bool
	failOn string // home team whose create fails
}

func newMemBets() *memBets { return &memBets{refs: make(map[string]bool)} }

func (m *memBets) Create(_ context.Context, in store.BetInput) (*store.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && in.HomeTeam == m.failOn {
		return nil, errors.New("connection reset")
	}
	if in.SourceRef != nil {
		if m.refs[*in.SourceRef] {
			return nil, fmt.Errorf("inserting bet: %w", store.ErrDuplicate)
		}
		m.refs[*in.SourceRef] = true
	}
	bet := &store.Bet{
		ID: fmt.Sprintf("bet-%d", len(m.bets)+1), HomeTeam: in.HomeTeam, AwayTeam: in.AwayTeam,
		League: in.League, BetType: in.BetType, Odds: in.Odds, Stake: in.Stake,
		KickOff: in.KickOff, Date: in.KickOff.UTC().Format("2006-01-02"),
		IsVIP: in.IsVIP, Status: store.StatusPending, SourceRef: in.SourceRef,
	}
	m.bets = append(m.bets, bet)
	return bet, nil
}

func (m *memBets) GetByID(_ context.Context, id string) (*store.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bets {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memBets) Update(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error) {
	bet, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status != nil {
		bet.Status = *u.Status
	}
	if u.HomeScore != nil {
		bet.HomeScore = u.HomeScore
	}
	if u.AwayScore != nil {
		bet.AwayScore = u.AwayScore
	}
	return bet, nil
}

func (m *memBets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bets {
		if b.ID == id {
			m.bets = append(m.bets[:i], m.bets[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memBets) List(_ context.Context, f repository.BetFilter) ([]*store.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Bet
	for _, b := range m.bets {
		if f.Date != "" && b.Date != f.Date {
			continue
		}
		if len(f.Statuses) > 0 && !containsString(f.Statuses, b.Status) {
			continue
		}
		if f.IsVIP != nil && b.IsVIP != *f.IsVIP {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memBets) byStatus(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bets {
		if b.Status == status {
			n++
		}
	}
	return n
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*store.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[string]*store.User)} }

func (m *memUsers) add(u *store.User) *store.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u
}

func (m *memUsers) Create(_ context.Context, email, name, hash string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.ErrDuplicate
		}
	}
	u := &store.User{ID: fmt.Sprintf("user-%d", len(m.users)+1), Email: email, Name: name, PasswordHash: hash}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) SetAdmin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsAdmin = true
	return nil
}

func (m *memUsers) ActivateVIP(_ context.Context, id, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	active := "active"
	u.IsVIP = true
	u.SubscriptionStatus = &active
	u.SubscriptionID = &sessionID
	return nil
}

type memNotifications struct {
	mu    sync.Mutex
	sent  []*store.Notification
	subs  map[string]*store.NotificationSubscription
	clock time.Time
}

func newMemNotifications() *memNotifications {
	return &memNotifications{
		subs:  make(map[string]*store.NotificationSubscription),
		clock: time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memNotifications) Create(_ context.Context, title, body, kind, sentBy string) (*store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	n := &store.Notification{
		ID: fmt.Sprintf("n-%d", len(m.sent)+1), Title: title, Body: body,
		NotificationType: kind, SentAt: m.clock, SentBy: sentBy,
	}
	m.sent = append(m.sent, n)
	return n, nil
}

func (m *memNotifications) Recent(_ context.Context, limit int) ([]*store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*store.Notification(nil), m.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) Subscribe(_ context.Context, userID, endpoint string, keys json.RawMessage) (*store.NotificationSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &store.NotificationSubscription{UserID: userID, Endpoint: endpoint, Keys: keys}
	m.subs[userID] = s
	return s, nil
}

func (m *memNotifications) Unsubscribe(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, userID)
	return nil
}

func (m *memNotifications) GetSubscription(_ context.Context, userID string) (*store.NotificationSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[userID]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (m *memNotifications) CountSubscribers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs), nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages [][]byte
}

func (b *recordingBroadcaster) Broadcast(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, data)
}

type memPayments struct {
	mu  sync.Mutex
	txs map[string]*store.PaymentTransaction
}

func (m *memPayments) Create(_ context.Context, tx store.PaymentTransaction) (*store.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.PaymentStatus = store.PaymentPending
	m.txs[tx.SessionID] = &tx
	return &tx, nil
}

func (m *memPayments) GetBySession(_ context.Context, id string) (*store.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *memPayments) MarkPaid(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.PaymentStatus == store.PaymentPaid {
		return false, nil
	}
	tx.PaymentStatus = store.PaymentPaid
	return true, nil
}

type stubCheckout struct {
	paid    bool
	webhook error
}

func (s *stubCheckout) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	return &payments.Session{ID: "cs_test_1", URL: "https://checkout.stripe.example/cs_test_1"}, nil
}

func (s *stubCheckout) GetSession(_ context.Context, id string) (*payments.Session, error) {
	session := &payments.Session{ID: id, Status: "open", PaymentStatus: "unpaid", AmountTotal: payments.VIPAmount, Currency: payments.VIPCurrency}
	if s.paid {
		session.Status, session.PaymentStatus = "complete", "paid"
	}
	return session, nil
}

func (s *stubCheckout) ParseWebhook([]byte, string) (*payments.Session, error) {
	if s.webhook != nil {
		return nil, s.webhook
	}
	return &payments.Session{ID: "cs_test_1", PaymentStatus: "paid"}, nil
}

type stubPosts struct {
	posts []ingest.Post
	err   error
}

func (s *stubPosts) FetchPosts(context.Context) ([]ingest.Post, error) {
	return s.posts, s.err
}
