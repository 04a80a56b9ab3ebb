package discount

import "errors"

// Service errors. Inactive codes are indistinguishable from missing
// ones on purpose: soft-deactivated discounts must behave as gone.
var (
	ErrNotFound          = errors.New("discount code not found")
	ErrExpired           = errors.New("discount code expired")
	ErrUsageExhausted    = errors.New("discount code usage limit reached")
	ErrBelowMinimumOrder = errors.New("order amount below discount minimum")
	ErrNotApplicable     = errors.New("discount code not applicable to this item type")
	ErrCodeTaken         = errors.New("discount code already exists")
	ErrInvalidDiscount   = errors.New("invalid discount definition")
)
