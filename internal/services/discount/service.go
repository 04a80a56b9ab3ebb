// Package discount validates and applies discount codes against order
// amounts. Usage-cap accounting is delegated to a conditional increment
// in the repository so concurrent redemptions can never overshoot the
// cap.
package discount

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bookpay/internal/models"
	"bookpay/internal/repositories"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Service defines the discount engine interface.
type Service interface {
	// Admin lifecycle
	Create(ctx context.Context, discount *models.Discount) error
	Deactivate(ctx context.Context, code string) error

	// Validate checks a code against an order without consuming a use.
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) (*models.Discount, error)

	// Apply computes the discounted amount. Pure math, no persistence.
	Apply(discount *models.Discount, orderAmount decimal.Decimal) decimal.Decimal

	// Redeem validates, consumes one use atomically and returns the
	// discounted amount. Used on the charge path, where failures must
	// propagate.
	Redeem(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) (decimal.Decimal, error)

	// QuoteAmount is the quote path: any lookup or validation failure
	// falls back to the undiscounted amount.
	QuoteAmount(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) decimal.Decimal
}

type service struct {
	repo repositories.DiscountRepository
	now  func() time.Time
}

// NewService creates a new discount service.
func NewService(repo repositories.DiscountRepository) Service {
	if repo == nil {
		panic("repo is required")
	}
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

// NormalizeCode uppercases and trims a discount code for storage and
// lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Create(ctx context.Context, discount *models.Discount) error {
	discount.Code = NormalizeCode(discount.Code)
	if discount.Code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidDiscount)
	}
	if discount.Kind != models.DiscountKindPercentage && discount.Kind != models.DiscountKindFixed {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDiscount, discount.Kind)
	}
	if !discount.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalidDiscount)
	}
	if discount.MaxUses <= 0 {
		return fmt.Errorf("%w: max uses must be positive", ErrInvalidDiscount)
	}
	if discount.AppliesTo == "" {
		discount.AppliesTo = models.DiscountScopeAll
	}

	if _, err := s.repo.GetByCode(discount.Code); err == nil {
		return ErrCodeTaken
	}
	if err := s.repo.Create(discount); err != nil {
		if errors.Is(err, repositories.ErrDiscountCodeTaken) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// Deactivate soft-disables a code. Codes referenced by historical
// payments are never physically deleted.
func (s *service) Deactivate(ctx context.Context, code string) error {
	discount, err := s.repo.GetByCode(NormalizeCode(code))
	if err != nil {
		if errors.Is(err, repositories.ErrDiscountNotFound) {
			return ErrNotFound
		}
		return err
	}
	discount.Active = false
	return s.repo.Update(discount)
}

func (s *service) Validate(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) (*models.Discount, error) {
	discount, err := s.repo.GetByCode(NormalizeCode(code))
	if err != nil {
		if errors.Is(err, repositories.ErrDiscountNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.check(discount, orderAmount, itemType); err != nil {
		return nil, err
	}
	return discount, nil
}

func (s *service) check(discount *models.Discount, orderAmount decimal.Decimal, itemType string) error {
	if !discount.Active {
		return ErrNotFound
	}
	if s.now().After(discount.ExpiresAt) {
		return ErrExpired
	}
	if discount.CurrentUses >= discount.MaxUses {
		return ErrUsageExhausted
	}
	if discount.MinOrderValue != nil && orderAmount.LessThan(*discount.MinOrderValue) {
		return ErrBelowMinimumOrder
	}
	if discount.AppliesTo != models.DiscountScopeAll && discount.AppliesTo != itemType {
		return ErrNotApplicable
	}
	return nil
}

func (s *service) Apply(discount *models.Discount, orderAmount decimal.Decimal) decimal.Decimal {
	var off decimal.Decimal
	switch discount.Kind {
	case models.DiscountKindPercentage:
		off = orderAmount.Mul(discount.Value).Div(hundred).Round(2)
		if discount.MaxDiscountAmount != nil && off.GreaterThan(*discount.MaxDiscountAmount) {
			off = *discount.MaxDiscountAmount
		}
	case models.DiscountKindFixed:
		off = discount.Value
	}

	result := orderAmount.Sub(off)
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

func (s *service) Redeem(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) (decimal.Decimal, error) {
	discount, err := s.Validate(ctx, code, orderAmount, itemType)
	if err != nil {
		return decimal.Zero, err
	}

	// The conditional increment re-checks the cap, so two redemptions
	// racing past Validate cannot both consume the last use.
	if err := s.repo.IncrementUses(discount.ID); err != nil {
		if errors.Is(err, repositories.ErrDiscountExhausted) {
			return decimal.Zero, ErrUsageExhausted
		}
		return decimal.Zero, err
	}
	return s.Apply(discount, orderAmount), nil
}

func (s *service) QuoteAmount(ctx context.Context, code string, orderAmount decimal.Decimal, itemType string) decimal.Decimal {
	if code == "" {
		return orderAmount
	}
	discount, err := s.Validate(ctx, code, orderAmount, itemType)
	if err != nil {
		log.Printf("discount quote for %q fell back to full amount: %v", code, err)
		return orderAmount
	}
	return s.Apply(discount, orderAmount)
}
