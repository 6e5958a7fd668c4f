package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediahub-credits-api/internal/events"
	"mediahub-credits-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBalances is an in-memory balance store with failure injection, either
// per user or scheduled by call count.
type fakeBalances struct {
	mu           sync.Mutex
	amounts      map[string]int64
	failFor      map[string]error
	failGet      error
	scheduleFail func() bool
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{amounts: map[string]int64{}, failFor: map[string]error{}}
}

func (f *fakeBalances) Get(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return 0, f.failGet
	}
	return f.amounts[userID], nil
}

func (f *fakeBalances) ApplyDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleFail != nil && f.scheduleFail() {
		return 0, errors.New("injected balance failure")
	}
	if err := f.failFor[userID]; err != nil {
		return 0, err
	}
	next := f.amounts[userID] + delta
	if next < 0 {
		return 0, model.ErrInsufficientFunds
	}
	f.amounts[userID] = next
	return next, nil
}

type fakeGrants struct {
	mu      sync.Mutex
	grants  []model.UnlockGrant
	failPut error
}

func (f *fakeGrants) GetActive(ctx context.Context, userID, mediaID string) (*model.UnlockGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.grants {
		g := f.grants[i]
		if g.UserID == userID && g.MediaID == mediaID && g.ActiveAt(time.Now()) {
			return &g, nil
		}
	}
	return nil, nil
}

func (f *fakeGrants) Put(ctx context.Context, grant *model.UnlockGrant) (*model.UnlockGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return nil, f.failPut
	}
	for i := range f.grants {
		g := &f.grants[i]
		if g.UserID == grant.UserID && g.MediaID == grant.MediaID && grant.GrantedAt.Before(g.ExpiresAt) {
			if grant.ExpiresAt.After(g.ExpiresAt) {
				g.ExpiresAt = grant.ExpiresAt
			}
			stored := *g
			return &stored, nil
		}
	}
	f.grants = append(f.grants, *grant)
	stored := *grant
	return &stored, nil
}

func (f *fakeGrants) ListForUser(ctx context.Context, userID string) ([]model.UnlockGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.UnlockGrant{}
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeSales struct {
	mu         sync.Mutex
	records    []model.SaleRecord
	failAppend error
}

func (f *fakeSales) Append(ctx context.Context, rec *model.SaleRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend != nil {
		return "", f.failAppend
	}
	f.records = append(f.records, *rec)
	return rec.ID, nil
}

func (f *fakeSales) ListBySeller(ctx context.Context, sellerID string) ([]model.SaleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SaleRecord{}
	for _, r := range f.records {
		if r.SellerID == sellerID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]*model.IdempotencyRecord
	failGet error
	failPut error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{records: map[string]*model.IdempotencyRecord{}}
}

func (f *fakeIdempotency) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeIdempotency) Put(ctx context.Context, rec *model.IdempotencyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	if _, exists := f.records[rec.Key]; exists {
		return nil // first writer wins
	}
	cp := *rec
	f.records[rec.Key] = &cp
	return nil
}

func (f *fakeIdempotency) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

type fakeCatalog struct {
	items map[string]*model.MediaItem
}

func (f *fakeCatalog) GetMedia(ctx context.Context, mediaID string) (*model.MediaItem, error) {
	item, ok := f.items[mediaID]
	if !ok {
		return nil, model.ErrMediaNotFound
	}
	cp := *item
	return &cp, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// testEngine bundles the engine with its fakes for assertions.
type testEngine struct {
	svc         *SettlementService
	balances    *fakeBalances
	grants      *fakeGrants
	sales       *fakeSales
	idempotency *fakeIdempotency
	publisher   *capturePublisher
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	e := &testEngine{
		balances:    newFakeBalances(),
		grants:      &fakeGrants{},
		sales:       &fakeSales{},
		idempotency: newFakeIdempotency(),
		publisher:   &capturePublisher{},
	}
	catalog := &fakeCatalog{items: map[string]*model.MediaItem{
		"media-1": {ID: "media-1", OwnerCreatorID: "creator-1", Price: 40, Kind: "photo", Title: "Sunset"},
		"media-2": {ID: "media-2", OwnerCreatorID: "creator-1", Price: 10, Kind: "video", Title: "Clip"},
		"media-free": {ID: "media-free", OwnerCreatorID: "creator-1", Price: 0, Kind: "photo", Title: "Free"},
	}}
	e.svc = NewSettlementService(e.balances, e.grants, e.sales, e.idempotency, catalog, e.publisher, SettlementConfig{})
	return e
}

func intent(key string) model.PurchaseIntent {
	return model.PurchaseIntent{BuyerID: "buyer-1", MediaID: "media-1", IdempotencyKey: key}
}

func TestPurchaseSuccess(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100

	result, err := e.svc.Purchase(context.Background(), intent("key-1"))
	require.NoError(t, err)

	assert.Equal(t, int64(40), result.CreditsSpent)
	assert.Equal(t, int64(28), result.CreatorShare)
	assert.Equal(t, int64(12), result.PlatformShare)
	assert.Equal(t, int64(60), result.BuyerBalance)

	require.NotNil(t, result.Grant)
	assert.Equal(t, "buyer-1", result.Grant.UserID)
	assert.Equal(t, "media-1", result.Grant.MediaID)
	assert.Equal(t, 24*time.Hour, result.Grant.ExpiresAt.Sub(result.Grant.GrantedAt))

	assert.Equal(t, int64(60), e.balances.amounts["buyer-1"])
	assert.Equal(t, int64(28), e.balances.amounts["creator-1"])

	require.Len(t, e.sales.records, 1)
	sale := e.sales.records[0]
	assert.Equal(t, "creator-1", sale.SellerID)
	assert.Equal(t, "buyer-1", sale.BuyerID)
	assert.Equal(t, "Sunset", sale.MediaTitle)
	assert.Equal(t, int64(12), sale.PlatformShare)
	assert.Equal(t, result.SaleID, sale.ID)

	rec := e.idempotency.records["key-1"]
	require.NotNil(t, rec)
	assert.Equal(t, model.IdempotencyStatusSucceeded, rec.Status)

	require.Len(t, e.publisher.events, 1)
	ev := e.publisher.events[0]
	assert.Equal(t, events.TypePurchaseCompleted, ev.Type)
	assert.Equal(t, "buyer-1", ev.BuyerID)
	assert.Equal(t, "creator-1", ev.CreatorID)
	assert.ElementsMatch(t, []string{"buyer-1", "creator-1"}, ev.BalancesChanged)
}

func TestPurchaseShareFloorsInPlatformFavor(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100

	result, err := e.svc.Purchase(context.Background(), model.PurchaseIntent{
		BuyerID: "buyer-1", MediaID: "media-2", IdempotencyKey: "key-floor",
	})
	require.NoError(t, err)

	// 70% of 10 is exactly 7; both shares sum to the price.
	assert.Equal(t, int64(7), result.CreatorShare)
	assert.Equal(t, int64(3), result.PlatformShare)
	assert.Equal(t, result.CreditsSpent, result.CreatorShare+result.PlatformShare)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 30

	_, err := e.svc.Purchase(context.Background(), intent("key-poor"))
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	// Nothing mutated, nothing recorded: the retry is free to succeed after
	// a top-up with the same key.
	assert.Equal(t, int64(30), e.balances.amounts["buyer-1"])
	assert.Equal(t, int64(0), e.balances.amounts["creator-1"])
	assert.Empty(t, e.grants.grants)
	assert.Empty(t, e.sales.records)
	assert.Nil(t, e.idempotency.records["key-poor"])
}

func TestPurchaseValidation(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	ctx := context.Background()

	_, err := e.svc.Purchase(ctx, model.PurchaseIntent{MediaID: "media-1", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = e.svc.Purchase(ctx, model.PurchaseIntent{BuyerID: "buyer-1", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, model.ErrInvalidPurchase)

	_, err = e.svc.Purchase(ctx, model.PurchaseIntent{BuyerID: "buyer-1", MediaID: "media-1"})
	assert.ErrorIs(t, err, model.ErrInvalidPurchase)

	_, err = e.svc.Purchase(ctx, model.PurchaseIntent{BuyerID: "creator-1", MediaID: "media-1", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, model.ErrInvalidPurchase, "self-purchase must be rejected")

	_, err = e.svc.Purchase(ctx, model.PurchaseIntent{BuyerID: "buyer-1", MediaID: "media-free", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, model.ErrInvalidPurchase, "zero-price media is not purchasable")

	_, err = e.svc.Purchase(ctx, model.PurchaseIntent{BuyerID: "buyer-1", MediaID: "media-gone", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, model.ErrMediaNotFound)

	// None of the rejections touched the balance or burned the key.
	assert.Equal(t, int64(100), e.balances.amounts["buyer-1"])
	assert.Empty(t, e.idempotency.records)
}

func TestPurchaseCreditFailureCompensates(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.balances.failFor["creator-1"] = errors.New("creator store down")

	_, err := e.svc.Purchase(context.Background(), intent("key-comp"))
	require.ErrorIs(t, err, model.ErrSettlementFailed)

	// Buyer fully refunded, no grant, no sale.
	assert.Equal(t, int64(100), e.balances.amounts["buyer-1"])
	assert.Empty(t, e.grants.grants)
	assert.Empty(t, e.sales.records)

	rec := e.idempotency.records["key-comp"]
	require.NotNil(t, rec)
	assert.Equal(t, model.IdempotencyStatusFailed, rec.Status)
	assert.Equal(t, "settlement_failed", rec.ErrorKind)
}

func TestPurchaseGrantFailureCompensatesBoth(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.grants.failPut = errors.New("grant store down")

	_, err := e.svc.Purchase(context.Background(), intent("key-grant"))
	require.ErrorIs(t, err, model.ErrSettlementFailed)

	// Creator credit reversed too.
	assert.Equal(t, int64(100), e.balances.amounts["buyer-1"])
	assert.Equal(t, int64(0), e.balances.amounts["creator-1"])
	assert.Empty(t, e.sales.records)
}

func TestPurchaseCompensationFailureIsInconsistent(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.grants.failPut = errors.New("grant store down")

	// Debit and credit succeed, then every delta fails: the compensation of
	// the creator credit cannot land and money is stranded.
	calls := 0
	e.balances.scheduleFail = func() bool {
		calls++
		return calls > 2
	}

	_, err := e.svc.Purchase(context.Background(), intent("key-incons"))
	require.ErrorIs(t, err, model.ErrSettlementInconsistent)

	rec := e.idempotency.records["key-incons"]
	require.NotNil(t, rec)
	assert.Equal(t, model.IdempotencyStatusFailed, rec.Status)
	assert.Equal(t, "settlement_inconsistent", rec.ErrorKind)

	// A retry with the same key must replay the terminal outcome, not
	// re-execute the sequence.
	_, err = e.svc.Purchase(context.Background(), intent("key-incons"))
	assert.ErrorIs(t, err, model.ErrSettlementInconsistent)
}

func TestPurchaseIdempotentReplay(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100

	first, err := e.svc.Purchase(context.Background(), intent("key-replay"))
	require.NoError(t, err)

	second, err := e.svc.Purchase(context.Background(), intent("key-replay"))
	require.NoError(t, err)

	// Exactly one debit happened.
	assert.Equal(t, int64(60), e.balances.amounts["buyer-1"])
	assert.Equal(t, int64(28), e.balances.amounts["creator-1"])
	assert.Len(t, e.sales.records, 1)
	assert.Len(t, e.publisher.events, 1)

	assert.Equal(t, first.Grant.ID, second.Grant.ID)
	assert.Equal(t, first.SaleID, second.SaleID)
	assert.Equal(t, first.BuyerBalance, second.BuyerBalance)
}

func TestPurchaseKeyScopedToOriginalIntent(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.balances.amounts["buyer-2"] = 100

	_, err := e.svc.Purchase(context.Background(), intent("key-shared"))
	require.NoError(t, err)

	// Another buyer reusing the completed key must not receive the original
	// buyer's outcome.
	_, err = e.svc.Purchase(context.Background(), model.PurchaseIntent{
		BuyerID: "buyer-2", MediaID: "media-1", IdempotencyKey: "key-shared",
	})
	require.ErrorIs(t, err, model.ErrInvalidPurchase)
	assert.Equal(t, int64(100), e.balances.amounts["buyer-2"])

	grants, err := e.svc.ListUnlocks(context.Background(), "buyer-2")
	require.NoError(t, err)
	assert.Empty(t, grants)

	// Same buyer, different media: the key is bound to its original media too.
	_, err = e.svc.Purchase(context.Background(), model.PurchaseIntent{
		BuyerID: "buyer-1", MediaID: "media-2", IdempotencyKey: "key-shared",
	})
	require.ErrorIs(t, err, model.ErrInvalidPurchase)
	assert.Equal(t, int64(60), e.balances.amounts["buyer-1"], "only the original purchase debited")

	// The original pair still replays its outcome.
	result, err := e.svc.Purchase(context.Background(), intent("key-shared"))
	require.NoError(t, err)
	assert.Equal(t, int64(40), result.CreditsSpent)
}

func TestPurchaseResultBalanceComesFromDebit(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.balances.failGet = errors.New("balance read down")

	// The reported balance comes from the debit itself; an unreadable
	// balance store must not record a bogus zero that replays forever.
	result, err := e.svc.Purchase(context.Background(), intent("key-bal"))
	require.NoError(t, err)
	assert.Equal(t, int64(60), result.BuyerBalance)

	e.balances.failGet = nil
	replayed, err := e.svc.Purchase(context.Background(), intent("key-bal"))
	require.NoError(t, err)
	assert.Equal(t, int64(60), replayed.BuyerBalance)
}

func TestPurchaseFailedOutcomeReplays(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.grants.failPut = errors.New("grant store down")

	_, err := e.svc.Purchase(context.Background(), intent("key-fail"))
	require.ErrorIs(t, err, model.ErrSettlementFailed)

	// Store recovers, but the key is burned to its recorded outcome.
	e.grants.failPut = nil
	_, err = e.svc.Purchase(context.Background(), intent("key-fail"))
	assert.ErrorIs(t, err, model.ErrSettlementFailed)
	assert.Equal(t, int64(100), e.balances.amounts["buyer-1"], "replay must not re-debit")

	// A fresh key goes through.
	result, err := e.svc.Purchase(context.Background(), intent("key-fresh"))
	require.NoError(t, err)
	assert.Equal(t, int64(60), result.BuyerBalance)
}

func TestPurchaseIdempotencyStoreDownBlocksRetry(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.idempotency.failGet = errors.New("idempotency store down")

	_, err := e.svc.Purchase(context.Background(), intent("key-down"))
	require.ErrorIs(t, err, model.ErrStoreUnavailable)

	// Unverifiable key must not charge.
	assert.Equal(t, int64(100), e.balances.amounts["buyer-1"])
}

func TestPurchaseSaleLedgerSoftFailure(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100
	e.sales.failAppend = errors.New("ledger down")

	result, err := e.svc.Purchase(context.Background(), intent("key-soft"))
	require.NoError(t, err, "ledger failure must not fail the purchase")

	assert.Empty(t, result.SaleID)
	assert.Equal(t, int64(60), e.balances.amounts["buyer-1"])
	assert.Equal(t, int64(28), e.balances.amounts["creator-1"])
	require.NotNil(t, result.Grant)
}

func TestPurchaseRepeatExtendsGrant(t *testing.T) {
	e := newTestEngine(t)
	e.balances.amounts["buyer-1"] = 100

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.svc.nowFn = func() time.Time { return base }

	first, err := e.svc.Purchase(context.Background(), intent("key-a"))
	require.NoError(t, err)

	// Six hours later the buyer purchases again with a new key while the
	// grant is still active: same grant, later expiry, but fully charged.
	e.svc.nowFn = func() time.Time { return base.Add(6 * time.Hour) }
	second, err := e.svc.Purchase(context.Background(), intent("key-b"))
	require.NoError(t, err)

	assert.Equal(t, first.Grant.ID, second.Grant.ID)
	assert.Equal(t, base.Add(6*time.Hour+24*time.Hour), second.Grant.ExpiresAt)
	assert.Equal(t, int64(20), e.balances.amounts["buyer-1"], "both purchases charge in full")

	grants, err := e.svc.ListUnlocks(context.Background(), "buyer-1")
	require.NoError(t, err)
	assert.Len(t, grants, 1, "extension keeps a single grant row")
}

func TestGetBalanceUnseenUserIsZero(t *testing.T) {
	e := newTestEngine(t)

	amount, err := e.svc.GetBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount)
}
