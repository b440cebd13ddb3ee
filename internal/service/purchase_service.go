package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultIdempotencyTTL = 24 * time.Hour

// PurchaseServiceDeps groups the collaborators of PurchaseServiceImpl.
// IdempotencyRepo, IdempotencyCache and Events are optional.
type PurchaseServiceDeps struct {
	Listings         ports.ListingRepository
	Users            ports.UserRepository
	Directory        ports.UserDirectory
	Purchases        ports.PurchaseRepository
	Rates            ports.RateResolver
	Wallets          ports.WalletService
	Inventory        ports.InventoryService
	Transactor       ports.DBTransactor
	IdempotencyRepo  ports.IdempotencyRepository
	IdempotencyCache ports.IdempotencyCache
	IdempotencyTTL   time.Duration
	Events           ports.EventPublisher
	Logger           zerolog.Logger
}

// PurchaseServiceImpl implements ports.PurchaseService.
type PurchaseServiceImpl struct {
	listings   ports.ListingRepository
	users      ports.UserRepository
	directory  ports.UserDirectory
	purchases  ports.PurchaseRepository
	rates      ports.RateResolver
	wallets    ports.WalletService
	inventory  ports.InventoryService
	transactor ports.DBTransactor
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	idempTTL   time.Duration
	events     ports.EventPublisher
	log        zerolog.Logger
	now        func() time.Time
}

// NewPurchaseService creates a new PurchaseServiceImpl.
func NewPurchaseService(d PurchaseServiceDeps) *PurchaseServiceImpl {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &PurchaseServiceImpl{
		listings:   d.Listings,
		users:      d.Users,
		directory:  d.Directory,
		purchases:  d.Purchases,
		rates:      d.Rates,
		wallets:    d.Wallets,
		inventory:  d.Inventory,
		transactor: d.Transactor,
		idempRepo:  d.IdempotencyRepo,
		idempCache: d.IdempotencyCache,
		idempTTL:   ttl,
		events:     d.Events,
		log:        d.Logger,
		now:        time.Now,
	}
}

// pricedLine is a basket line validated against the listing as read before locking.
type pricedLine struct {
	listing  *domain.Listing
	quantity int
	quote    *domain.RateQuote
	paid     decimal.Decimal
}

func (l pricedLine) proceeds() decimal.Decimal {
	return money.Round2(l.listing.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
}

// checkout is a fully priced order ready to commit.
type checkout struct {
	buyerID     uuid.UUID
	payCurrency domain.Currency
	lines       []pricedLine
	basket      bool
	idempKey    string
	requestHash string
}

// cachedOutcome is the Redis form of a completed keyed purchase.
type cachedOutcome struct {
	RequestHash string          `json:"request_hash"`
	Records     json.RawMessage `json:"records"`
}

// Purchase buys one unit of a listing, paying in req.PayCurrency.
func (s *PurchaseServiceImpl) Purchase(ctx context.Context, req ports.PurchaseRequest) (*domain.PurchaseRecord, error) {
	if !req.PayCurrency.Valid() {
		return nil, apperror.ErrInvalidCurrency(string(req.PayCurrency))
	}

	idempKey := s.idempotencyKey(req.BuyerID, req.IdempotencyKey)
	requestHash := domain.PurchaseFingerprint(false, req.PayCurrency, []domain.OrderLine{{ListingID: req.ListingID, Quantity: 1}})
	if records, ok, err := s.replay(ctx, idempKey, requestHash); err != nil {
		return nil, err
	} else if ok && len(records) > 0 {
		return &records[0], nil
	}

	if err := s.requireBuyer(ctx, req.BuyerID); err != nil {
		return nil, err
	}

	line, err := s.priceLine(ctx, req.BuyerID, req.ListingID, 1, req.PayCurrency, nil)
	if err != nil {
		return nil, err
	}

	records, err := s.commit(ctx, checkout{
		buyerID:     req.BuyerID,
		payCurrency: req.PayCurrency,
		lines:       []pricedLine{line},
		idempKey:    idempKey,
		requestHash: requestHash,
	})
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

// PurchaseBasket buys every line or none of them.
func (s *PurchaseServiceImpl) PurchaseBasket(ctx context.Context, req ports.BasketRequest) ([]domain.PurchaseRecord, error) {
	if len(req.Items) == 0 {
		return nil, apperror.Validation("basket must contain at least one item")
	}
	if !req.PayCurrency.Valid() {
		return nil, apperror.ErrInvalidCurrency(string(req.PayCurrency))
	}

	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	order := make([]domain.OrderLine, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperror.ErrBasketValidationFailed(i, apperror.ErrInvalidQuantity())
		}
		if _, dup := seen[item.ListingID]; dup {
			return nil, apperror.ErrBasketValidationFailed(i, apperror.Validation("listing appears more than once in the basket"))
		}
		seen[item.ListingID] = struct{}{}
		order = append(order, domain.OrderLine{ListingID: item.ListingID, Quantity: item.Quantity})
	}

	idempKey := s.idempotencyKey(req.BuyerID, req.IdempotencyKey)
	requestHash := domain.PurchaseFingerprint(true, req.PayCurrency, order)
	if records, ok, err := s.replay(ctx, idempKey, requestHash); err != nil {
		return nil, err
	} else if ok {
		return records, nil
	}

	if err := s.requireBuyer(ctx, req.BuyerID); err != nil {
		return nil, err
	}

	quotes := make(map[domain.CurrencyPair]*domain.RateQuote)
	lines := make([]pricedLine, 0, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		line, err := s.priceLine(ctx, req.BuyerID, item.ListingID, item.Quantity, req.PayCurrency, quotes)
		if err != nil {
			if isLineFailure(err) {
				return nil, apperror.ErrBasketValidationFailed(i, err)
			}
			return nil, err
		}
		lines = append(lines, line)
		total = total.Add(line.paid)
	}

	balance, err := s.wallets.GetBalance(ctx, req.BuyerID, req.PayCurrency)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeUserNotFound) {
			return nil, apperror.ErrBuyerNotFound()
		}
		return nil, err
	}
	if balance.LessThan(total) {
		return nil, apperror.ErrInsufficientFunds()
	}

	return s.commit(ctx, checkout{
		buyerID:     req.BuyerID,
		payCurrency: req.PayCurrency,
		lines:       lines,
		basket:      true,
		idempKey:    idempKey,
		requestHash: requestHash,
	})
}

func (s *PurchaseServiceImpl) requireBuyer(ctx context.Context, buyerID uuid.UUID) error {
	ok, err := activeUser(ctx, s.directory, buyerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check buyer: %w", err))
	}
	if !ok {
		return apperror.ErrBuyerNotFound()
	}
	return nil
}

// priceLine validates one line without taking locks and converts its cost.
// quotes, when non-nil, memoises rates per currency pair.
func (s *PurchaseServiceImpl) priceLine(
	ctx context.Context,
	buyerID, listingID uuid.UUID,
	quantity int,
	payCurrency domain.Currency,
	quotes map[domain.CurrencyPair]*domain.RateQuote,
) (pricedLine, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return pricedLine{}, apperror.InternalError(fmt.Errorf("get listing: %w", err))
	}
	if listing == nil {
		return pricedLine{}, apperror.ErrListingNotFound()
	}
	if listing.OwnerID == buyerID {
		return pricedLine{}, apperror.ErrSelfPurchase()
	}

	ok, err := activeUser(ctx, s.directory, listing.OwnerID)
	if err != nil {
		return pricedLine{}, apperror.InternalError(fmt.Errorf("check seller: %w", err))
	}
	if !ok {
		return pricedLine{}, apperror.ErrSellerNotFound()
	}

	if listing.IsSold() {
		return pricedLine{}, apperror.ErrListingUnavailable()
	}
	if quantity > listing.Stock {
		return pricedLine{}, apperror.ErrOutOfStock()
	}

	pair := domain.CurrencyPair{From: listing.Currency, To: payCurrency}
	quote := quotes[pair]
	if quote == nil {
		quote, err = s.rates.Resolve(ctx, pair.From, pair.To)
		if err != nil {
			return pricedLine{}, err
		}
		if quotes != nil {
			quotes[pair] = quote
		}
	}

	cost := listing.Price.Mul(decimal.NewFromInt(int64(quantity)))
	return pricedLine{
		listing:  listing,
		quantity: quantity,
		quote:    quote,
		paid:     money.Convert(cost, quote.Rate),
	}, nil
}

// commit applies a priced checkout in one database transaction. A keyed
// checkout claims its idempotency key before any row lock, so an identical
// request in flight waits on the key and replays the winner's result instead
// of re-running against post-purchase state. Users are then locked in id
// order, then listings in id order.
func (s *PurchaseServiceImpl) commit(ctx context.Context, c checkout) ([]domain.PurchaseRecord, error) {
	// A started checkout finishes or rolls back even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := s.now().UTC()
	if c.idempKey != "" {
		claim := &domain.IdempotencyLog{
			Key:         c.idempKey,
			BuyerID:     c.buyerID,
			RequestHash: c.requestHash,
			CreatedAt:   now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, claim); err != nil {
			if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
				_ = dbTx.Rollback(ctx)
				return s.replayCommitted(ctx, c.idempKey, c.requestHash)
			}
			return nil, storeError("claim idempotency key", err)
		}
	}

	for _, id := range participants(c) {
		user, err := s.users.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, storeError("lock user", err)
		}
		if user == nil || user.IsDeleted() {
			if id == c.buyerID {
				return nil, apperror.ErrBuyerNotFound()
			}
			return nil, apperror.ErrSellerNotFound()
		}
	}

	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.paid)
	}
	if err := s.wallets.Debit(ctx, dbTx, c.buyerID, c.payCurrency, total); err != nil {
		return nil, err
	}

	ordered := slices.Clone(c.lines)
	slices.SortFunc(ordered, func(a, b pricedLine) int {
		return domain.CompareUUID(a.listing.ID, b.listing.ID)
	})
	for _, line := range ordered {
		locked, err := s.inventory.ReserveAndDecrement(ctx, dbTx, line.listing.ID, line.quantity)
		if err != nil {
			if c.basket && isStockConflict(err) {
				return nil, apperror.ErrConcurrentStockConflict(err)
			}
			return nil, err
		}
		if drifted(locked, line.listing) {
			return nil, apperror.ErrConcurrentStockConflict(errors.New("listing changed since validation"))
		}
	}

	for _, line := range c.lines {
		if err := s.wallets.Credit(ctx, dbTx, line.listing.OwnerID, line.listing.Currency, line.proceeds()); err != nil {
			return nil, err
		}
	}

	var basketID *uuid.UUID
	if c.basket {
		id := uuid.New()
		basketID = &id
	}

	records := make([]domain.PurchaseRecord, 0, len(c.lines))
	for _, line := range c.lines {
		rec := domain.PurchaseRecord{
			ID:              uuid.New(),
			BasketID:        basketID,
			BuyerID:         c.buyerID,
			SellerID:        line.listing.OwnerID,
			ListingID:       line.listing.ID,
			Quantity:        line.quantity,
			UnitPrice:       line.listing.Price,
			ListingCurrency: line.listing.Currency,
			PaidAmount:      line.paid,
			PayCurrency:     c.payCurrency,
			Rate:            line.quote.Rate,
			Provenance:      line.quote.Provenance,
			CreatedAt:       now,
		}
		if err := s.purchases.Create(ctx, dbTx, &rec); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create purchase record: %w", err))
		}
		records = append(records, rec)
	}

	var respJSON []byte
	if c.idempKey != "" {
		respJSON, err = json.Marshal(records)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		if err := s.idempRepo.Complete(ctx, dbTx, c.idempKey, respJSON); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if respJSON != nil && s.idempCache != nil {
		s.cacheOutcome(ctx, c.idempKey, c.requestHash, respJSON)
	}

	if s.events != nil {
		if err := s.events.PublishPurchases(ctx, records); err != nil {
			s.log.Warn().Err(err).Int("records", len(records)).Msg("failed to publish purchase events")
		}
	}

	evt := s.log.Info().
		Str("buyer_id", c.buyerID.String()).
		Str("pay_currency", string(c.payCurrency)).
		Str("total", total.StringFixed(money.Places)).
		Int("lines", len(records))
	if basketID != nil {
		evt = evt.Str("basket_id", basketID.String())
	} else {
		evt = evt.Str("purchase_id", records[0].ID.String())
	}
	evt.Msg("purchase completed")

	return records, nil
}

func (s *PurchaseServiceImpl) idempotencyKey(buyerID uuid.UUID, clientKey string) string {
	if clientKey == "" || s.idempRepo == nil {
		return ""
	}
	return domain.BuildPurchaseIdempotencyKey(buyerID, clientKey)
}

// replay looks the key up in Redis, then the database. A key recorded for a
// different request is rejected. An unreadable cache entry counts as a miss.
func (s *PurchaseServiceImpl) replay(ctx context.Context, key, requestHash string) ([]domain.PurchaseRecord, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	if s.idempCache != nil {
		if records, ok, err := s.replayCached(ctx, key, requestHash); err != nil || ok {
			return records, ok, err
		}
	}

	entry, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if entry == nil || entry.ResponseJSON == nil {
		return nil, false, nil
	}
	if entry.RequestHash != requestHash {
		return nil, false, apperror.ErrIdempotencyKeyReused()
	}
	records, err := decodeRecords(entry.ResponseJSON)
	if err != nil {
		return nil, false, apperror.InternalError(err)
	}
	return records, true, nil
}

func (s *PurchaseServiceImpl) replayCached(ctx context.Context, key, requestHash string) ([]domain.PurchaseRecord, bool, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		return nil, false, nil
	}
	if cached == nil {
		return nil, false, nil
	}

	var outcome cachedOutcome
	if err := json.Unmarshal(cached, &outcome); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("unreadable idempotency cache entry, falling through to DB")
		return nil, false, nil
	}
	if outcome.RequestHash != requestHash {
		return nil, false, apperror.ErrIdempotencyKeyReused()
	}
	records, err := decodeRecords(outcome.Records)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("unreadable idempotency cache entry, falling through to DB")
		return nil, false, nil
	}
	return records, true, nil
}

func (s *PurchaseServiceImpl) cacheOutcome(ctx context.Context, key, requestHash string, records []byte) {
	raw, err := json.Marshal(cachedOutcome{RequestHash: requestHash, Records: records})
	if err == nil {
		err = s.idempCache.Set(ctx, key, raw, s.idempTTL)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func (s *PurchaseServiceImpl) replayCommitted(ctx context.Context, key, requestHash string) ([]domain.PurchaseRecord, error) {
	records, ok, err := s.replay(ctx, key, requestHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %s recorded but not readable", key))
	}
	return records, nil
}

func decodeRecords(raw []byte) ([]domain.PurchaseRecord, error) {
	var records []domain.PurchaseRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal purchase records: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("no purchase records")
	}
	return records, nil
}

// participants returns the buyer and every distinct seller in lock order.
func participants(c checkout) []uuid.UUID {
	ids := []uuid.UUID{c.buyerID}
	for _, line := range c.lines {
		if !slices.Contains(ids, line.listing.OwnerID) {
			ids = append(ids, line.listing.OwnerID)
		}
	}
	domain.SortUUIDs(ids)
	return ids
}

// drifted reports whether the locked row no longer matches what was priced.
func drifted(locked, priced *domain.Listing) bool {
	return locked.OwnerID != priced.OwnerID ||
		locked.Currency != priced.Currency ||
		!locked.Price.Equal(priced.Price)
}

// isLineFailure reports errors that a basket attributes to a single line.
func isLineFailure(err error) bool {
	switch apperror.CodeOf(err) {
	case apperror.CodeListingNotFound,
		apperror.CodeSelfPurchase,
		apperror.CodeSellerNotFound,
		apperror.CodeListingUnavailable,
		apperror.CodeOutOfStock,
		apperror.CodeRateUnavailable:
		return true
	}
	return false
}

func isStockConflict(err error) bool {
	switch apperror.CodeOf(err) {
	case apperror.CodeOutOfStock,
		apperror.CodeListingUnavailable,
		apperror.CodeListingNotFound:
		return true
	}
	return false
}
