package types

import (
	"context"
	"sort"
	"sync"
)

// Store abstracts the persistence collaborator as a keyed record store.
// The core never assumes a specific backing engine, only that a successful
// return means the write is durable.
type Store interface {
	GetPayment(ctx context.Context, id string) (*Payment, bool, error)
	PutPayment(ctx context.Context, p *Payment) error
	// UpdatePaymentIfStatus applies update to the payment only when its
	// current status equals fromStatus. Returns false when the precondition
	// does not hold. This is the only settlement write path.
	UpdatePaymentIfStatus(ctx context.Context, id, fromStatus string, update func(*Payment)) (bool, error)
	PaymentsByStatus(ctx context.Context, status string) ([]*Payment, error)

	GetSubscription(ctx context.Context, id string) (*WebhookSubscription, bool, error)
	PutSubscription(ctx context.Context, s *WebhookSubscription) error
	// UpdateSubscription applies update atomically with respect to other
	// updates of the same subscription.
	UpdateSubscription(ctx context.Context, id string, update func(*WebhookSubscription)) (bool, error)
	DeleteSubscription(ctx context.Context, id string) error
	SubscriptionsForParties(ctx context.Context, partyIDs []string) ([]*WebhookSubscription, error)

	GetCredential(ctx context.Context, keyID string) (*AuthCredential, bool, error)
	PutCredential(ctx context.Context, c *AuthCredential) error
	UpdateCredential(ctx context.Context, keyID string, update func(*AuthCredential)) (bool, error)

	PutFeeEntry(ctx context.Context, e *FeeLedgerEntry) error
	FeeEntriesForPayment(ctx context.Context, paymentID string) ([]*FeeLedgerEntry, error)

	Close() error
}

// MemoryStore is the default in-process Store. All records are guarded by a
// single mutex; copies go in and out so callers never share pointers with
// the store.
type MemoryStore struct {
	mu            sync.RWMutex
	payments      map[string]*Payment
	subscriptions map[string]*WebhookSubscription
	credentials   map[string]*AuthCredential
	feeEntries    map[string][]*FeeLedgerEntry // payment id -> entries
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:      make(map[string]*Payment),
		subscriptions: make(map[string]*WebhookSubscription),
		credentials:   make(map[string]*AuthCredential),
		feeEntries:    make(map[string][]*FeeLedgerEntry),
	}
}

func (m *MemoryStore) GetPayment(_ context.Context, id string) (*Payment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

func (m *MemoryStore) PutPayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdatePaymentIfStatus(_ context.Context, id, fromStatus string, update func(*Payment)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != fromStatus {
		return false, nil
	}
	update(p)
	return true, nil
}

func (m *MemoryStore) PaymentsByStatus(_ context.Context, status string) ([]*Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Payment
	for _, p := range m.payments {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetSubscription(_ context.Context, id string) (*WebhookSubscription, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return nil, false, nil
	}
	cp := *s
	return &cp, true, nil
}

func (m *MemoryStore) PutSubscription(_ context.Context, s *WebhookSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subscriptions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateSubscription(_ context.Context, id string, update func(*WebhookSubscription)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return false, nil
	}
	update(s)
	return true, nil
}

func (m *MemoryStore) DeleteSubscription(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, id)
	return nil
}

func (m *MemoryStore) SubscriptionsForParties(_ context.Context, partyIDs []string) ([]*WebhookSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(partyIDs))
	for _, id := range partyIDs {
		wanted[id] = true
	}
	var out []*WebhookSubscription
	for _, s := range m.subscriptions {
		if wanted[s.PartyID] {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetCredential(_ context.Context, keyID string) (*AuthCredential, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credentials[keyID]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (m *MemoryStore) PutCredential(_ context.Context, c *AuthCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.credentials[c.KeyID] = &cp
	return nil
}

func (m *MemoryStore) UpdateCredential(_ context.Context, keyID string, update func(*AuthCredential)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[keyID]
	if !ok {
		return false, nil
	}
	update(c)
	return true, nil
}

func (m *MemoryStore) PutFeeEntry(_ context.Context, e *FeeLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.feeEntries[e.PaymentID] = append(m.feeEntries[e.PaymentID], &cp)
	return nil
}

func (m *MemoryStore) FeeEntriesForPayment(_ context.Context, paymentID string) ([]*FeeLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.feeEntries[paymentID]
	out := make([]*FeeLedgerEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
