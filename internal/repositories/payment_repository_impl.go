package repositories

import (
	"fmt"
	"time"

	"bookpay/internal/models"

	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{
		db: db,
	}
}

func (r *paymentRepository) Create(payment *models.Payment) error {
	result := r.db.Create(payment)
	if result.Error != nil {
		return fmt.Errorf("failed to create payment: %w", result.Error)
	}
	return nil
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByGatewayRef(ref string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("gateway_ref = ?", ref).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by gateway ref: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) Update(payment *models.Payment) error {
	result := r.db.Save(payment)
	if result.Error != nil {
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	return nil
}

func (r *paymentRepository) TransitionStatus(id uint, to models.PaymentStatus, from ...models.PaymentStatus) error {
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to transition payment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *paymentRepository) ListFailedGatewayPayments(since time.Time) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.
		Where("status = ? AND method = ? AND retry_attempted = ? AND updated_at >= ?",
			models.PaymentStatusFailed, models.PaymentMethodGateway, false, since).
		Order("updated_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list failed gateway payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) MarkRetryAttempted(id uint) error {
	result := r.db.Model(&models.Payment{}).
		Where("id = ?", id).
		UpdateColumn("retry_attempted", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark payment retry attempted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
