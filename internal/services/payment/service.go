// Package payment orchestrates payment attempts across the wallet
// ledger and the external gateway. Gateway payments only complete on an
// authoritative success signal; duplicate signals are deduped on the
// intent reference.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"bookpay/internal/models"
	"bookpay/internal/repositories"
	"bookpay/internal/services/ledger"

	"github.com/google/uuid"
)

type service struct {
	repo      repositories.PaymentRepository
	ledger    LedgerService
	discounts DiscountService
	gateway   Gateway
	bookings  BookingService
}

// NewService creates a new payment orchestrator. The gateway may be nil
// when no gateway is configured; gateway-method payments then fail with
// ErrGatewayNotConfigured.
func NewService(
	repo repositories.PaymentRepository,
	ledgerSvc LedgerService,
	discountSvc DiscountService,
	gateway Gateway,
	bookings BookingService,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if discountSvc == nil {
		panic("discount service is required")
	}
	if bookings == nil {
		panic("booking service is required")
	}

	return &service{
		repo:      repo,
		ledger:    ledgerSvc,
		discounts: discountSvc,
		gateway:   gateway,
		bookings:  bookings,
	}
}

func (s *service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}

	// Charge path: a stale or invalid code must hard-fail, never fall
	// back to the undiscounted amount.
	amount := in.Amount
	if in.DiscountCode != "" {
		discounted, err := s.discounts.Redeem(ctx, in.DiscountCode, in.Amount, in.ItemType)
		if err != nil {
			return nil, fmt.Errorf("discount %q: %w", in.DiscountCode, err)
		}
		amount = discounted
	}

	p := &models.Payment{
		UserID:       in.UserID,
		BookingID:    in.BookingID,
		Amount:       amount,
		Currency:     in.Currency,
		Status:       models.PaymentStatusPending,
		Method:       in.Method,
		Reference:    uuid.NewString(),
		DiscountCode: in.DiscountCode,
	}

	switch in.Method {
	case models.PaymentMethodWallet:
		return s.createWalletPayment(ctx, p)
	case models.PaymentMethodGateway:
		return s.createGatewayPayment(ctx, p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, in.Method)
	}
}

func (s *service) createWalletPayment(ctx context.Context, p *models.Payment) (*CreatePaymentResult, error) {
	if err := s.repo.Create(p); err != nil {
		return nil, err
	}

	_, err := s.ledger.Debit(ctx, p.UserID, p.Amount, p.Currency, "booking payment", p.Reference)
	if err != nil {
		// Only a definitive ledger verdict settles the payment. An
		// infrastructure failure leaves it pending; the caller can try
		// again against the same payment record.
		var insufficient *ledger.InsufficientFundsError
		if !errors.As(err, &insufficient) {
			return nil, err
		}
		p.Status = models.PaymentStatusFailed
		if updateErr := s.repo.Update(p); updateErr != nil {
			log.Printf("failed to persist failed payment %d: %v", p.ID, updateErr)
		}
		s.notifyBookingFailed(ctx, p)
		return nil, err
	}

	p.Status = models.PaymentStatusCompleted
	if err := s.repo.Update(p); err != nil {
		return nil, err
	}
	s.notifyBookingPaid(ctx, p)
	return &CreatePaymentResult{Payment: p}, nil
}

func (s *service) createGatewayPayment(ctx context.Context, p *models.Payment) (*CreatePaymentResult, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	metadata := map[string]string{
		"reference": p.Reference,
		"user_id":   strconv.FormatUint(uint64(p.UserID), 10),
	}
	if p.BookingID != nil {
		metadata["booking_id"] = strconv.FormatUint(uint64(*p.BookingID), 10)
	}

	intent, err := s.gateway.CreateIntent(ctx, p.Amount, p.Currency, metadata)
	if err != nil {
		return nil, err
	}

	p.GatewayRef = intent.Ref
	p.PaymentMethodRef = intent.PaymentMethod
	if err := s.repo.Create(p); err != nil {
		return nil, err
	}

	// The payment stays pending until the gateway says otherwise.
	return &CreatePaymentResult{
		Payment:      p,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (s *service) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *service) OnGatewaySuccess(ctx context.Context, intentRef string) error {
	p, err := s.repo.GetByGatewayRef(intentRef)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	// Duplicate delivery: the payment already completed (or moved on to
	// a refund). Nothing to apply twice.
	if !p.CanTransitionTo(models.PaymentStatusCompleted) {
		return nil
	}

	// The conditional transition is the dedupe point: of several racing
	// duplicate signals exactly one flips the row.
	err = s.repo.TransitionStatus(p.ID, models.PaymentStatusCompleted,
		models.PaymentStatusPending, models.PaymentStatusFailed)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return nil
		}
		return err
	}

	p.Status = models.PaymentStatusCompleted
	s.notifyBookingPaid(ctx, p)
	return nil
}

func (s *service) OnGatewayFailure(ctx context.Context, intentRef string) error {
	p, err := s.repo.GetByGatewayRef(intentRef)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	if p.Status != models.PaymentStatusPending {
		return nil
	}

	err = s.repo.TransitionStatus(p.ID, models.PaymentStatusFailed, models.PaymentStatusPending)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return nil
		}
		return err
	}

	p.Status = models.PaymentStatusFailed
	s.notifyBookingFailed(ctx, p)
	return nil
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrGatewayNotConfigured
	}
	event, err := s.gateway.VerifyWebhookSignature(payload, signature)
	if err != nil {
		return fmt.Errorf("webhook verification failed: %w", err)
	}

	switch event.Type {
	case WebhookIntentSucceeded:
		return s.OnGatewaySuccess(ctx, event.IntentRef)
	case WebhookIntentFailed:
		return s.OnGatewayFailure(ctx, event.IntentRef)
	default:
		// other event types are none of our business
		return nil
	}
}

func (s *service) Refund(ctx context.Context, paymentID uint, reason string) (*models.Payment, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if p.Status == models.PaymentStatusRefunded {
		return nil, ErrAlreadyRefunded
	}
	if p.Status != models.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: status %q", ErrNotRefundable, p.Status)
	}
	if p.Method == models.PaymentMethodGateway && s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	// Claim the transition before moving any money: of two racing refund
	// requests exactly one gets past this point.
	err = s.repo.TransitionStatus(p.ID, models.PaymentStatusRefunded, models.PaymentStatusCompleted)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return nil, ErrAlreadyRefunded
		}
		return nil, err
	}

	switch p.Method {
	case models.PaymentMethodGateway:
		refundRef, err := s.gateway.Refund(ctx, p.GatewayRef)
		if err != nil {
			s.releaseRefundClaim(p)
			return nil, err
		}
		p.GatewayRefundRef = refundRef
	case models.PaymentMethodWallet:
		if _, err := s.ledger.Credit(ctx, p.UserID, p.Amount, p.Currency, "refund: "+reason, p.Reference); err != nil {
			s.releaseRefundClaim(p)
			return nil, err
		}
	default:
		s.releaseRefundClaim(p)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, p.Method)
	}

	p.Status = models.PaymentStatusRefunded
	p.RefundReason = reason
	if err := s.repo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

// releaseRefundClaim rolls a claimed refund transition back after the
// money movement failed, so the payment can be refunded again later.
func (s *service) releaseRefundClaim(p *models.Payment) {
	err := s.repo.TransitionStatus(p.ID, models.PaymentStatusCompleted, models.PaymentStatusRefunded)
	if err != nil {
		log.Printf("failed to release refund claim on payment %d: %v", p.ID, err)
	}
}

func (s *service) notifyBookingPaid(ctx context.Context, p *models.Payment) {
	if p.BookingID == nil {
		return
	}
	if err := s.bookings.MarkPaid(ctx, *p.BookingID); err != nil {
		log.Printf("failed to mark booking %d paid for payment %d: %v", *p.BookingID, p.ID, err)
	}
}

func (s *service) notifyBookingFailed(ctx context.Context, p *models.Payment) {
	if p.BookingID == nil {
		return
	}
	if err := s.bookings.MarkPaymentFailed(ctx, *p.BookingID); err != nil {
		log.Printf("failed to mark booking %d payment-failed for payment %d: %v", *p.BookingID, p.ID, err)
	}
}
