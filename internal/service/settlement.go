package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"mediahub-credits-api/internal/events"
	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/internal/repository"
	"mediahub-credits-api/pkg/uid"
)

// SettlementConfig holds the policy constants of the settlement protocol.
type SettlementConfig struct {
	// CreatorSharePercent of the price goes to the creator; the platform
	// keeps the remainder. The split uses integer floor, rounding in the
	// platform's favor.
	CreatorSharePercent int64

	// GrantTTL is the validity window of a purchased unlock.
	GrantTTL time.Duration

	// StoreTimeout bounds every store call; a call that exceeds it is
	// treated as a store failure.
	StoreTimeout time.Duration
}

func (c *SettlementConfig) applyDefaults() {
	if c.CreatorSharePercent <= 0 {
		c.CreatorSharePercent = 70
	}
	if c.GrantTTL <= 0 {
		c.GrantTTL = 24 * time.Hour
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
}

// SettlementService executes purchases as ordered, compensating-action
// sequences. The balance store only guarantees atomicity per single user, so
// cross-account consistency is engineered explicitly: every step after the
// buyer debit either completes or reverses all prior balance mutations.
type SettlementService struct {
	balances    repository.BalanceRepository
	grants      repository.GrantRepository
	sales       repository.SaleRepository
	idempotency repository.IdempotencyRepository
	catalog     MediaLookup
	publisher   events.Publisher
	cfg         SettlementConfig

	nowFn func() time.Time
}

// NewSettlementService creates the settlement engine.
func NewSettlementService(
	balances repository.BalanceRepository,
	grants repository.GrantRepository,
	sales repository.SaleRepository,
	idempotency repository.IdempotencyRepository,
	catalog MediaLookup,
	publisher events.Publisher,
	cfg SettlementConfig,
) *SettlementService {
	cfg.applyDefaults()
	return &SettlementService{
		balances:    balances,
		grants:      grants,
		sales:       sales,
		idempotency: idempotency,
		catalog:     catalog,
		publisher:   publisher,
		cfg:         cfg,
		nowFn:       time.Now,
	}
}

// storeCtx bounds a single store call.
func (s *SettlementService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// Purchase settles one purchase intent. Preconditions are checked before any
// mutation; after the buyer debit lands the sequence runs to completion or
// full compensation regardless of caller cancellation.
func (s *SettlementService) Purchase(ctx context.Context, intent model.PurchaseIntent) (*model.PurchaseResult, error) {
	if intent.BuyerID == "" {
		return nil, fmt.Errorf("%w: missing buyer", model.ErrUnauthenticated)
	}
	if intent.MediaID == "" {
		return nil, fmt.Errorf("%w: missing media_id", model.ErrInvalidPurchase)
	}
	if intent.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: missing idempotency_key", model.ErrInvalidPurchase)
	}

	// Idempotent retry: a key that already completed short-circuits to the
	// recorded outcome with zero additional mutation. An unreadable
	// idempotency store must not let a retry re-charge.
	sctx, cancel := s.storeCtx(ctx)
	rec, err := s.idempotency.Get(sctx, intent.IdempotencyKey)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lookup: %v", model.ErrStoreUnavailable, err)
	}
	if rec != nil {
		// A key is scoped to its original (buyer, media) pair; reuse for a
		// different purchase must not hand out someone else's outcome.
		if rec.BuyerID != intent.BuyerID || rec.MediaID != intent.MediaID {
			return nil, fmt.Errorf("%w: idempotency key already used for another purchase", model.ErrInvalidPurchase)
		}
		return s.replayOutcome(rec)
	}

	media, err := s.lookupMedia(ctx, intent.MediaID)
	if err != nil {
		return nil, err
	}

	// Price and creator come from the catalog, never from the caller.
	if intent.BuyerID == media.OwnerCreatorID {
		return nil, fmt.Errorf("%w: cannot purchase own media", model.ErrInvalidPurchase)
	}
	if media.Price <= 0 {
		return nil, fmt.Errorf("%w: media %s is not purchasable", model.ErrInvalidPurchase, media.ID)
	}

	price := media.Price
	creatorShare := price * s.cfg.CreatorSharePercent / 100
	platformShare := price - creatorShare

	// Step 1: debit buyer. The guarded atomic delta doubles as the balance
	// precondition; on any failure nothing has happened yet.
	buyerBalance, err := s.applyDelta(ctx, intent.BuyerID, -price)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: debit buyer: %v", model.ErrStoreUnavailable, err)
	}

	// From here on the caller may not abort the sequence; only internal
	// failures do, via compensation.
	ctx = context.WithoutCancel(ctx)

	// Step 3: credit creator.
	if _, err := s.applyDelta(ctx, media.OwnerCreatorID, creatorShare); err != nil {
		log.Printf("[SettlementService] Credit creator %s failed, compensating: %v", media.OwnerCreatorID, err)
		return nil, s.abort(ctx, intent, "credit creator failed", []delta{
			{intent.BuyerID, price},
		})
	}

	// Step 4: grant unlock.
	now := s.nowFn()
	grant := &model.UnlockGrant{
		ID:           uid.New(),
		UserID:       intent.BuyerID,
		MediaID:      media.ID,
		CreditsSpent: price,
		GrantedAt:    now,
		ExpiresAt:    now.Add(s.cfg.GrantTTL),
	}
	storedGrant, err := s.putGrant(ctx, grant)
	if err != nil {
		log.Printf("[SettlementService] Grant write failed, compensating: %v", err)
		return nil, s.abort(ctx, intent, "grant write failed", []delta{
			{media.OwnerCreatorID, -creatorShare},
			{intent.BuyerID, price},
		})
	}

	// Step 5: append the sale record. Not compensated: the buyer already
	// received value, the ledger is for reporting, not access control.
	saleID := s.appendSale(ctx, &model.SaleRecord{
		ID:            uid.New(),
		SellerID:      media.OwnerCreatorID,
		BuyerID:       intent.BuyerID,
		MediaID:       media.ID,
		MediaTitle:    media.Title,
		CreditsSpent:  price,
		CreatorShare:  creatorShare,
		PlatformShare: platformShare,
		CreatedAt:     now,
	})

	// The debit already returned the buyer's post-purchase balance; no
	// further buyer deltas happen on the success path.
	result := &model.PurchaseResult{
		Grant:         storedGrant,
		SaleID:        saleID,
		CreditsSpent:  price,
		CreatorShare:  creatorShare,
		PlatformShare: platformShare,
		BuyerBalance:  buyerBalance,
	}

	// Step 6: pin the key to the outcome so retries replay it.
	s.recordOutcome(ctx, intent, model.IdempotencyStatusSucceeded, "", result)

	// Step 7: completion event, fire-and-forget.
	s.publish(ctx, events.Event{
		Type:            events.TypePurchaseCompleted,
		BuyerID:         intent.BuyerID,
		CreatorID:       media.OwnerCreatorID,
		MediaID:         media.ID,
		GrantID:         storedGrant.ID,
		BalancesChanged: []string{intent.BuyerID, media.OwnerCreatorID},
		OccurredAt:      now,
	})

	return result, nil
}

// delta is one compensating balance mutation.
type delta struct {
	userID string
	amount int64
}

// abort reverses the given balance deltas and records the failure outcome.
// If compensation itself fails the condition is escalated for manual
// reconciliation and must not be retried automatically.
func (s *SettlementService) abort(ctx context.Context, intent model.PurchaseIntent, reason string, comps []delta) error {
	for _, c := range comps {
		if _, err := s.applyDelta(ctx, c.userID, c.amount); err != nil {
			log.Printf("[SettlementService] RECONCILIATION REQUIRED: compensation delta %+d for %s failed (key=%s): %v",
				c.amount, c.userID, intent.IdempotencyKey, err)
			s.recordOutcome(ctx, intent, model.IdempotencyStatusFailed, kindSettlementInconsistent, nil)
			return fmt.Errorf("%w: %s, compensation incomplete", model.ErrSettlementInconsistent, reason)
		}
	}
	s.recordOutcome(ctx, intent, model.IdempotencyStatusFailed, kindSettlementFailed, nil)
	return fmt.Errorf("%w: %s", model.ErrSettlementFailed, reason)
}

// Recorded failure kinds. Only outcomes reached after the first mutation are
// recorded; pre-mutation rejections stay retryable after correction.
const (
	kindSettlementFailed       = "settlement_failed"
	kindSettlementInconsistent = "settlement_inconsistent"
)

// replayOutcome maps a completed idempotency record back to the result the
// original call returned.
func (s *SettlementService) replayOutcome(rec *model.IdempotencyRecord) (*model.PurchaseResult, error) {
	if rec.Status == model.IdempotencyStatusSucceeded {
		var result model.PurchaseResult
		if err := json.Unmarshal(rec.Result, &result); err != nil {
			return nil, fmt.Errorf("%w: corrupt idempotency record: %v", model.ErrStoreUnavailable, err)
		}
		return &result, nil
	}

	switch rec.ErrorKind {
	case kindSettlementInconsistent:
		return nil, model.ErrSettlementInconsistent
	default:
		return nil, model.ErrSettlementFailed
	}
}

// recordOutcome is best-effort: losing the record only costs one retried
// settlement, never correctness of the balances just written.
func (s *SettlementService) recordOutcome(ctx context.Context, intent model.PurchaseIntent, status, errorKind string, result *model.PurchaseResult) {
	rec := &model.IdempotencyRecord{
		Key:       intent.IdempotencyKey,
		BuyerID:   intent.BuyerID,
		MediaID:   intent.MediaID,
		Status:    status,
		ErrorKind: errorKind,
		CreatedAt: s.nowFn(),
	}
	if result != nil {
		payload, err := json.Marshal(result)
		if err == nil {
			rec.Result = payload
		}
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.idempotency.Put(sctx, rec); err != nil {
		log.Printf("[SettlementService] Failed to record idempotency outcome for key=%s: %v", intent.IdempotencyKey, err)
	}
}

func (s *SettlementService) applyDelta(ctx context.Context, userID string, amount int64) (int64, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.balances.ApplyDelta(sctx, userID, amount)
}

func (s *SettlementService) putGrant(ctx context.Context, grant *model.UnlockGrant) (*model.UnlockGrant, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.grants.Put(sctx, grant)
}

func (s *SettlementService) appendSale(ctx context.Context, rec *model.SaleRecord) string {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	id, err := s.sales.Append(sctx, rec)
	if err != nil {
		// Deliberately soft-fail: log as a reconciliation discrepancy, the
		// purchase stands.
		log.Printf("[SettlementService] RECONCILIATION: sale ledger append failed for media=%s buyer=%s: %v",
			rec.MediaID, rec.BuyerID, err)
		return ""
	}
	return id
}

func (s *SettlementService) lookupMedia(ctx context.Context, mediaID string) (*model.MediaItem, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.catalog.GetMedia(sctx, mediaID)
}

func (s *SettlementService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.publisher.Publish(sctx, event); err != nil {
		log.Printf("[SettlementService] Event publish failed (subscribers fall back to polling): %v", err)
	}
}

// GetBalance returns a user's current credit balance.
func (s *SettlementService) GetBalance(ctx context.Context, userID string) (int64, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.balances.Get(sctx, userID)
}

// ListUnlocks returns all unlock grants for a user, newest first.
func (s *SettlementService) ListUnlocks(ctx context.Context, userID string) ([]model.UnlockGrant, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.grants.ListForUser(sctx, userID)
}

// ListSales returns the sale records for a seller, newest first.
func (s *SettlementService) ListSales(ctx context.Context, sellerID string) ([]model.SaleRecord, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.sales.ListBySeller(sctx, sellerID)
}
