package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the PostgreSQL adapters. A
// transaction holds the store lock exclusively until Commit or Rollback,
// which serialises writers the way row locks do for overlapping rows.
// Rollback restores the snapshot taken at Begin.
type memStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*domain.User
	listings    map[uuid.UUID]*domain.Listing
	purchases   []domain.PurchaseRecord
	idempotency map[string]*domain.IdempotencyLog
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uuid.UUID]*domain.User),
		listings:    make(map[uuid.UUID]*domain.Listing),
		idempotency: make(map[string]*domain.IdempotencyLog),
	}
}

type memSnapshot struct {
	users       map[uuid.UUID]*domain.User
	listings    map[uuid.UUID]*domain.Listing
	purchases   []domain.PurchaseRecord
	idempotency map[string]*domain.IdempotencyLog
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:       make(map[uuid.UUID]*domain.User, len(s.users)),
		listings:    make(map[uuid.UUID]*domain.Listing, len(s.listings)),
		purchases:   slices.Clone(s.purchases),
		idempotency: make(map[string]*domain.IdempotencyLog, len(s.idempotency)),
	}
	for id, u := range s.users {
		cp := *u
		cp.Wallet = u.Wallet.Clone()
		snap.users[id] = &cp
	}
	for id, l := range s.listings {
		snap.listings[id] = l.Snapshot()
	}
	for k, v := range s.idempotency {
		cp := *v
		snap.idempotency[k] = &cp
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.listings = snap.listings
	s.purchases = snap.purchases
	s.idempotency = snap.idempotency
}

// --- seeding & inspection helpers ---

func (s *memStore) addUser(balances map[domain.Currency]string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := domain.NewWallet()
	for c, b := range balances {
		w.Balances[c] = decimal.RequireFromString(b)
	}
	id := uuid.New()
	s.users[id] = &domain.User{ID: id, Username: id.String()[:8], Wallet: w, CreatedAt: time.Now()}
	return id
}

func (s *memStore) deleteUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.users[id].DeletedAt = &now
}

func (s *memStore) addListing(owner uuid.UUID, price string, currency domain.Currency, stock int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.listings[id] = &domain.Listing{
		ID:        id,
		OwnerID:   owner,
		Title:     "item",
		Price:     decimal.RequireFromString(price),
		Currency:  currency,
		Stock:     stock,
		Status:    domain.ListingStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return id
}

func (s *memStore) balance(id uuid.UUID, c domain.Currency) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id].Wallet.Balance(c)
}

func (s *memStore) listing(id uuid.UUID) domain.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.listings[id]
}

func (s *memStore) purchaseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.purchases)
}

// --- ports.DBTransactor ---

func (s *memStore) Begin(_ context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	return &memTx{store: s, snap: s.snapshot()}, nil
}

// memTx implements pgx.Tx for the in-memory store.
type memTx struct {
	pgx.Tx
	store *memStore
	snap  memSnapshot
	done  bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.mu.Unlock()
	return nil
}

// --- ports.UserDirectory ---

func (s *memStore) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *memStore) IsDeleted(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return ok && u.IsDeleted(), nil
}

// --- ports.UserRepository ---

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userCopy(id), nil
}

func (s *memStore) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.User, error) {
	return s.userCopy(id), nil
}

func (s *memStore) UpdateWallet(_ context.Context, _ pgx.Tx, id uuid.UUID, wallet domain.Wallet) error {
	s.users[id].Wallet = wallet.Clone()
	return nil
}

func (s *memStore) userCopy(id uuid.UUID) *domain.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	cp.Wallet = u.Wallet.Clone()
	return &cp
}

// memListings adapts the store to ports.ListingRepository, whose method
// names collide with the user repository.
type memListings struct{ s *memStore }

func (r memListings) Create(_ context.Context, l *domain.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.listings[l.ID] = l.Snapshot()
	return nil
}

func (r memListings) GetByID(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.get(id), nil
}

func (r memListings) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Listing, error) {
	return r.get(id), nil
}

func (r memListings) UpdateStock(_ context.Context, _ pgx.Tx, id uuid.UUID, stock int, status domain.ListingStatus) error {
	l := r.s.listings[id]
	l.Stock = stock
	l.Status = status
	l.UpdatedAt = time.Now()
	return nil
}

func (r memListings) get(id uuid.UUID) *domain.Listing {
	l, ok := r.s.listings[id]
	if !ok || l.DeletedAt != nil {
		return nil
	}
	return l.Snapshot()
}

// gatedListings holds every pre-lock listing read until n of them have
// happened, so n checkouts all validate before any of them commits.
type gatedListings struct {
	ports.ListingRepository
	arrived sync.WaitGroup
}

func newGatedListings(inner ports.ListingRepository, n int) *gatedListings {
	g := &gatedListings{ListingRepository: inner}
	g.arrived.Add(n)
	return g
}

func (g *gatedListings) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := g.ListingRepository.GetByID(ctx, id)
	g.arrived.Done()
	g.arrived.Wait()
	return l, err
}

// memPurchases adapts the store to ports.PurchaseRepository.
type memPurchases struct{ s *memStore }

func (r memPurchases) Create(_ context.Context, _ pgx.Tx, rec *domain.PurchaseRecord) error {
	r.s.purchases = append(r.s.purchases, *rec)
	return nil
}

func (r memPurchases) ListByBuyer(_ context.Context, id uuid.UUID) ([]domain.PurchaseRecord, error) {
	return r.filter(func(p domain.PurchaseRecord) bool { return p.BuyerID == id }), nil
}

func (r memPurchases) ListBySeller(_ context.Context, id uuid.UUID) ([]domain.PurchaseRecord, error) {
	return r.filter(func(p domain.PurchaseRecord) bool { return p.SellerID == id }), nil
}

func (r memPurchases) filter(keep func(domain.PurchaseRecord) bool) []domain.PurchaseRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PurchaseRecord
	for _, p := range r.s.purchases {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// memIdempotency adapts the store to ports.IdempotencyRepository.
type memIdempotency struct{ s *memStore }

func (r memIdempotency) Create(_ context.Context, _ pgx.Tx, log *domain.IdempotencyLog) error {
	if _, ok := r.s.idempotency[log.Key]; ok {
		return domain.ErrDuplicateIdempotencyKey
	}
	cp := *log
	r.s.idempotency[log.Key] = &cp
	return nil
}

func (r memIdempotency) Complete(_ context.Context, _ pgx.Tx, key string, response []byte) error {
	log, ok := r.s.idempotency[key]
	if !ok {
		return errors.New("idempotency key not claimed")
	}
	log.ResponseJSON = slices.Clone(response)
	return nil
}

func (r memIdempotency) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	log, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	cp := *log
	return &cp, nil
}
