package discount

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookpay/internal/models"
	"bookpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscountRepo struct {
	mu        sync.Mutex
	discounts map[string]*models.Discount
	nextID    uint
}

func newFakeDiscountRepo() *fakeDiscountRepo {
	return &fakeDiscountRepo{discounts: make(map[string]*models.Discount)}
}

func (r *fakeDiscountRepo) Create(d *models.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.discounts[d.Code]; ok {
		return repositories.ErrDiscountCodeTaken
	}
	r.nextID++
	d.ID = r.nextID
	cp := *d
	r.discounts[d.Code] = &cp
	return nil
}

func (r *fakeDiscountRepo) GetByCode(code string) (*models.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[code]
	if !ok {
		return nil, repositories.ErrDiscountNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDiscountRepo) Update(d *models.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.discounts[d.Code] = &cp
	return nil
}

func (r *fakeDiscountRepo) IncrementUses(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.discounts {
		if d.ID == id {
			if d.CurrentUses >= d.MaxUses {
				return repositories.ErrDiscountExhausted
			}
			d.CurrentUses++
			return nil
		}
	}
	return repositories.ErrDiscountNotFound
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedDiscount(t *testing.T, repo repositories.DiscountRepository, d models.Discount) *models.Discount {
	t.Helper()
	if d.ExpiresAt.IsZero() {
		d.ExpiresAt = time.Now().Add(24 * time.Hour)
	}
	if d.MaxUses == 0 {
		d.MaxUses = 100
	}
	if d.AppliesTo == "" {
		d.AppliesTo = models.DiscountScopeAll
	}
	d.Active = true
	require.NoError(t, repo.Create(&d))
	return &d
}

func TestDiscount_Validate(t *testing.T) {
	repo := newFakeDiscountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	seedDiscount(t, repo, models.Discount{
		Code: "SAVE10", Kind: models.DiscountKindPercentage, Value: dec("10"),
	})
	seedDiscount(t, repo, models.Discount{
		Code: "OLD", Kind: models.DiscountKindFixed, Value: dec("5"),
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	seedDiscount(t, repo, models.Discount{
		Code: "USEDUP", Kind: models.DiscountKindFixed, Value: dec("5"),
		MaxUses: 3, CurrentUses: 3,
	})
	seedDiscount(t, repo, models.Discount{
		Code: "BIGONLY", Kind: models.DiscountKindFixed, Value: dec("5"),
		MinOrderValue: decPtr("50"),
	})
	seedDiscount(t, repo, models.Discount{
		Code: "VENUE5", Kind: models.DiscountKindFixed, Value: dec("5"),
		AppliesTo: "venue",
	})

	inactive := seedDiscount(t, repo, models.Discount{
		Code: "GONE", Kind: models.DiscountKindFixed, Value: dec("5"),
	})
	inactive.Active = false
	require.NoError(t, repo.Update(inactive))

	tests := []struct {
		name     string
		code     string
		amount   string
		itemType string
		wantErr  error
	}{
		{"valid", "SAVE10", "100", "venue", nil},
		{"case insensitive lookup", "save10", "100", "venue", nil},
		{"missing", "NOPE", "100", "venue", ErrNotFound},
		{"inactive behaves as missing", "GONE", "100", "venue", ErrNotFound},
		{"expired", "OLD", "100", "venue", ErrExpired},
		{"exhausted", "USEDUP", "100", "venue", ErrUsageExhausted},
		{"below minimum", "BIGONLY", "49.99", "venue", ErrBelowMinimumOrder},
		{"at minimum passes", "BIGONLY", "50", "venue", nil},
		{"wrong item type", "VENUE5", "100", "equipment", ErrNotApplicable},
		{"matching item type", "VENUE5", "100", "venue", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(ctx, tt.code, dec(tt.amount), tt.itemType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDiscount_Apply(t *testing.T) {
	svc := NewService(newFakeDiscountRepo())

	tests := []struct {
		name     string
		discount models.Discount
		amount   string
		want     string
	}{
		{
			"percentage",
			models.Discount{Kind: models.DiscountKindPercentage, Value: dec("10")},
			"100", "90",
		},
		{
			"percentage capped at max discount",
			models.Discount{Kind: models.DiscountKindPercentage, Value: dec("20"), MaxDiscountAmount: decPtr("15")},
			"100", "85",
		},
		{
			"fixed",
			models.Discount{Kind: models.DiscountKindFixed, Value: dec("30")},
			"100", "70",
		},
		{
			"fixed floors at zero",
			models.Discount{Kind: models.DiscountKindFixed, Value: dec("30")},
			"20", "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Apply(&tt.discount, dec(tt.amount))
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDiscount_RedeemConsumesUse(t *testing.T) {
	repo := newFakeDiscountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	seedDiscount(t, repo, models.Discount{
		Code: "ONCE", Kind: models.DiscountKindFixed, Value: dec("10"), MaxUses: 1,
	})

	got, err := svc.Redeem(ctx, "once", dec("100"), "venue")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("90")))

	_, err = svc.Redeem(ctx, "ONCE", dec("100"), "venue")
	assert.ErrorIs(t, err, ErrUsageExhausted)
}

func TestDiscount_ConcurrentRedeemRespectsCap(t *testing.T) {
	repo := newFakeDiscountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	seedDiscount(t, repo, models.Discount{
		Code: "LAST1", Kind: models.DiscountKindFixed, Value: dec("10"), MaxUses: 1,
	})

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Redeem(ctx, "LAST1", dec("100"), "venue")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrUsageExhausted)
		}
	}
	assert.Equal(t, 1, succeeded, "maxUses=1 admits exactly one concurrent redemption")
}

// racingDiscountRepo simulates a writer that inserts the same code
// between the service's existence pre-check and its own insert.
type racingDiscountRepo struct {
	*fakeDiscountRepo
}

func (r *racingDiscountRepo) GetByCode(string) (*models.Discount, error) {
	return nil, repositories.ErrDiscountNotFound
}

func (r *racingDiscountRepo) Create(*models.Discount) error {
	return repositories.ErrDiscountCodeTaken
}

func TestDiscount_CreateDuplicateRace(t *testing.T) {
	svc := NewService(&racingDiscountRepo{fakeDiscountRepo: newFakeDiscountRepo()})

	err := svc.Create(context.Background(), &models.Discount{
		Code: "SPRING24", Kind: models.DiscountKindFixed, Value: dec("5"),
		MaxUses: 10, ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrCodeTaken, "a duplicate-key insert maps to the taxonomy error, not a raw database error")
}

func TestDiscount_QuoteFallsBack(t *testing.T) {
	repo := newFakeDiscountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	seedDiscount(t, repo, models.Discount{
		Code: "SAVE10", Kind: models.DiscountKindPercentage, Value: dec("10"),
	})

	assert.True(t, svc.QuoteAmount(ctx, "SAVE10", dec("100"), "venue").Equal(dec("90")))
	// unknown code quotes the full amount instead of failing
	assert.True(t, svc.QuoteAmount(ctx, "MISSING", dec("100"), "venue").Equal(dec("100")))
	assert.True(t, svc.QuoteAmount(ctx, "", dec("100"), "venue").Equal(dec("100")))
}

func TestDiscount_CreateLifecycle(t *testing.T) {
	repo := newFakeDiscountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	d := &models.Discount{
		Code: "  spring24 ", Kind: models.DiscountKindFixed, Value: dec("5"),
		MaxUses: 10, ExpiresAt: time.Now().Add(time.Hour), Active: true,
	}
	require.NoError(t, svc.Create(ctx, d))
	assert.Equal(t, "SPRING24", d.Code)
	assert.Equal(t, models.DiscountScopeAll, d.AppliesTo)

	dup := &models.Discount{
		Code: "SPRING24", Kind: models.DiscountKindFixed, Value: dec("5"),
		MaxUses: 1, ExpiresAt: time.Now().Add(time.Hour),
	}
	assert.ErrorIs(t, svc.Create(ctx, dup), ErrCodeTaken)

	require.NoError(t, svc.Deactivate(ctx, "spring24"))
	_, err := svc.Validate(ctx, "SPRING24", dec("100"), "venue")
	assert.ErrorIs(t, err, ErrNotFound)
}
