// Package retry drives recovery of failed gateway payments. A
// background scheduler periodically picks recent failures and replays
// them through fresh payment intents with exponential backoff.
package retry

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"bookpay/internal/models"
	"bookpay/internal/repositories"
	"bookpay/internal/services/payment"
)

// Config holds scheduler tuning. Zero values fall back to the defaults.
type Config struct {
	Interval      time.Duration // time between sweeps
	InitialDelay  time.Duration // delay before the first sweep after start
	Lookback      time.Duration // how far back failed payments are considered
	MaxRetries    int
	BackoffBase   time.Duration // first inter-attempt delay
	BackoffFactor float64
	BackoffMax    time.Duration
}

// Default scheduler configuration
const (
	DefaultInterval     = time.Hour
	DefaultInitialDelay = time.Minute
	DefaultLookback     = 24 * time.Hour
	DefaultMaxRetries   = 3
	DefaultBackoffBase  = time.Second
	DefaultBackoffMax   = 60 * time.Second
)

const defaultBackoffFactor = 2.0

// Scheduler retries failed gateway payments in the background.
type Scheduler struct {
	payments repositories.PaymentRepository
	gateway  payment.Gateway
	bookings payment.BookingService
	cfg      Config
}

// NewScheduler creates a retry scheduler.
func NewScheduler(
	payments repositories.PaymentRepository,
	gateway payment.Gateway,
	bookings payment.BookingService,
	cfg Config,
) *Scheduler {
	if payments == nil {
		panic("payment repository is required")
	}
	if gateway == nil {
		panic("gateway is required")
	}
	if bookings == nil {
		panic("booking service is required")
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.BackoffFactor == 0 {
		cfg.BackoffFactor = defaultBackoffFactor
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}

	return &Scheduler{
		payments: payments,
		gateway:  gateway,
		bookings: bookings,
		cfg:      cfg,
	}
}

// Start runs the scheduler until ctx is cancelled: one delayed sweep
// shortly after process start, then one per interval.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		if !sleep(ctx, s.cfg.InitialDelay) {
			return
		}
		s.RunOnce(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs a single sweep over retry candidates. A failure on
// one candidate is logged and the rest of the batch continues.
func (s *Scheduler) RunOnce(ctx context.Context) {
	since := time.Now().Add(-s.cfg.Lookback)
	candidates, err := s.payments.ListFailedGatewayPayments(since)
	if err != nil {
		log.Printf("retry sweep: failed to list candidates: %v", err)
		return
	}
	if len(candidates) == 0 {
		return
	}
	log.Printf("retry sweep: %d failed gateway payment(s) to retry", len(candidates))

	for _, p := range candidates {
		if ctx.Err() != nil {
			return
		}
		s.retryPayment(ctx, p)
	}
}

// retryPayment replays one payment through fresh intents. The
// retry-attempted flag is written only once the loop finishes, so a
// crash mid-loop leaves the payment eligible for the next sweep.
func (s *Scheduler) retryPayment(ctx context.Context, p *models.Payment) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("retry payment %d: panic: %v", p.ID, r)
		}
	}()

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if !sleep(ctx, s.Backoff(attempt)) {
				return // shutting down; leave the payment unflagged
			}
		}

		err := s.attempt(ctx, p)
		if err == nil {
			break
		}
		if !payment.IsRetryableGatewayError(err) {
			log.Printf("retry payment %d: non-retryable gateway error, giving up: %v", p.ID, err)
			break
		}
		log.Printf("retry payment %d: attempt %d failed: %v", p.ID, attempt+1, err)
	}

	if ctx.Err() != nil {
		return
	}
	if err := s.payments.MarkRetryAttempted(p.ID); err != nil {
		log.Printf("retry payment %d: failed to mark attempted: %v", p.ID, err)
	}
}

// attempt creates a fresh intent (the original is never reused) and
// confirms it off-session. On success the payment is completed with the
// new gateway reference and the booking confirmed.
func (s *Scheduler) attempt(ctx context.Context, p *models.Payment) error {
	metadata := map[string]string{
		"reference": p.Reference,
		"retry_of":  p.GatewayRef,
	}
	intent, err := s.gateway.CreateIntent(ctx, p.Amount, p.Currency, metadata)
	if err != nil {
		return err
	}

	confirmed, err := s.gateway.ConfirmIntent(ctx, intent.Ref, p.PaymentMethodRef)
	if err != nil {
		return err
	}
	if confirmed.Status != payment.IntentStatusSucceeded {
		return payment.NewGatewayError(string(confirmed.Status), nil)
	}

	// A late webhook may have completed the payment while this attempt
	// was in flight; the conditional transition keeps exactly one winner.
	err = s.payments.TransitionStatus(p.ID, models.PaymentStatusCompleted, models.PaymentStatusFailed)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return nil
		}
		return err
	}

	p.GatewayRef = confirmed.Ref
	p.Status = models.PaymentStatusCompleted
	if err := s.payments.Update(p); err != nil {
		return err
	}
	if p.BookingID != nil {
		if err := s.bookings.MarkPaid(ctx, *p.BookingID); err != nil {
			log.Printf("retry payment %d: failed to mark booking %d paid: %v", p.ID, *p.BookingID, err)
		}
	}
	log.Printf("retry payment %d: recovered with new intent %s", p.ID, confirmed.Ref)
	return nil
}

// Backoff returns the delay before the given attempt:
// min(base * factor^(attempt-1), max).
func (s *Scheduler) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(s.cfg.BackoffBase) * math.Pow(s.cfg.BackoffFactor, float64(attempt-1)))
	if d > s.cfg.BackoffMax {
		return s.cfg.BackoffMax
	}
	return d
}

// sleep waits for d unless ctx is cancelled first. It reports whether
// the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
