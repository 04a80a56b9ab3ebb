package repositories

import (
	"errors"

	"bookpay/internal/models"
)

var (
	ErrDiscountNotFound  = errors.New("discount not found")
	ErrDiscountCodeTaken = errors.New("discount code already exists")
	ErrDiscountExhausted = errors.New("discount usage exhausted")
)

// DiscountRepository defines the interface for discount code persistence.
type DiscountRepository interface {
	Create(discount *models.Discount) error
	GetByCode(code string) (*models.Discount, error)
	Update(discount *models.Discount) error

	// IncrementUses bumps current_uses by one only while it is still
	// below max_uses, as a single conditional statement. Returns
	// ErrDiscountExhausted when the cap has been reached, which makes
	// concurrent redemptions near the cap safe.
	IncrementUses(id uint) error
}
