package repositories

import (
	"errors"
	"fmt"

	"bookpay/internal/models"

	"gorm.io/gorm"
)

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{
		db: db,
	}
}

func (r *discountRepository) Create(discount *models.Discount) error {
	result := r.db.Create(discount)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDiscountCodeTaken
		}
		return fmt.Errorf("failed to create discount: %w", result.Error)
	}
	return nil
}

func (r *discountRepository) GetByCode(code string) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.Where("code = ?", code).First(&discount).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrDiscountNotFound
		}
		return nil, fmt.Errorf("failed to get discount: %w", err)
	}
	return &discount, nil
}

func (r *discountRepository) Update(discount *models.Discount) error {
	result := r.db.Save(discount)
	if result.Error != nil {
		return fmt.Errorf("failed to update discount: %w", result.Error)
	}
	return nil
}

func (r *discountRepository) IncrementUses(id uint) error {
	result := r.db.Model(&models.Discount{}).
		Where("id = ? AND current_uses < max_uses", id).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment discount uses: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDiscountExhausted
	}
	return nil
}
