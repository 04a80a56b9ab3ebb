package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookpay/internal/models"
	"bookpay/internal/repositories"
	"bookpay/internal/services/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uint]*models.Payment
}

func newFakePaymentRepo(payments ...*models.Payment) *fakePaymentRepo {
	r := &fakePaymentRepo{payments: make(map[uint]*models.Payment)}
	for _, p := range payments {
		cp := *p
		r.payments[p.ID] = &cp
	}
	return r
}

func (r *fakePaymentRepo) Create(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByGatewayRef(ref string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r *fakePaymentRepo) Update(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) TransitionStatus(id uint, to models.PaymentStatus, from ...models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repositories.ErrStatusConflict
	}
	for _, f := range from {
		if p.Status == f {
			p.Status = to
			return nil
		}
	}
	return repositories.ErrStatusConflict
}

func (r *fakePaymentRepo) ListFailedGatewayPayments(time.Time) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusFailed && p.Method == models.PaymentMethodGateway && !p.RetryAttempted {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) MarkRetryAttempted(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repositories.ErrPaymentNotFound
	}
	p.RetryAttempted = true
	return nil
}

// scriptedGateway answers CreateIntent from a queue of outcomes.
type scriptedGateway struct {
	mu       sync.Mutex
	outcomes []error // nil means the attempt succeeds
	created  int
	onCreate func()
}

func (g *scriptedGateway) CreateIntent(context.Context, decimal.Decimal, string, map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onCreate != nil {
		g.onCreate()
	}
	idx := g.created
	g.created++
	if idx < len(g.outcomes) && g.outcomes[idx] != nil {
		return nil, g.outcomes[idx]
	}
	return &payment.Intent{Ref: "pi_retry", Status: payment.IntentStatusRequiresAction}, nil
}

func (g *scriptedGateway) RetrieveIntent(_ context.Context, ref string) (*payment.Intent, error) {
	return &payment.Intent{Ref: ref, Status: payment.IntentStatusSucceeded}, nil
}

func (g *scriptedGateway) ConfirmIntent(_ context.Context, ref, _ string) (*payment.Intent, error) {
	return &payment.Intent{Ref: ref, Status: payment.IntentStatusSucceeded}, nil
}

func (g *scriptedGateway) Refund(context.Context, string) (string, error) {
	return "re_1", nil
}

func (g *scriptedGateway) VerifyWebhookSignature([]byte, string) (*payment.WebhookEvent, error) {
	return nil, nil
}

type fakeBookings struct {
	mu   sync.Mutex
	paid []uint
}

func (b *fakeBookings) MarkPaid(_ context.Context, bookingID uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paid = append(b.paid, bookingID)
	return nil
}

func (b *fakeBookings) MarkPaymentFailed(context.Context, uint) error { return nil }

func failedPayment(id uint, bookingID *uint) *models.Payment {
	return &models.Payment{
		ID:         id,
		UserID:     1,
		BookingID:  bookingID,
		Amount:     decimal.NewFromInt(50),
		Currency:   "USD",
		Status:     models.PaymentStatusFailed,
		Method:     models.PaymentMethodGateway,
		Reference:  "ref-1",
		GatewayRef: "pi_old",
	}
}

func uintPtr(v uint) *uint { return &v }

func fastConfig() Config {
	return Config{
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	}
}

func TestBackoff(t *testing.T) {
	s := NewScheduler(newFakePaymentRepo(), &scriptedGateway{}, &fakeBookings{}, Config{})

	assert.Equal(t, time.Second, s.Backoff(1))
	assert.Equal(t, 2*time.Second, s.Backoff(2))
	assert.Equal(t, 4*time.Second, s.Backoff(3))
	assert.Equal(t, 60*time.Second, s.Backoff(10), "backoff is capped")
}

func TestRunOnce_SuccessRecoversPayment(t *testing.T) {
	repo := newFakePaymentRepo(failedPayment(1, uintPtr(7)))
	gw := &scriptedGateway{}
	bookings := &fakeBookings{}
	s := NewScheduler(repo, gw, bookings, fastConfig())

	s.RunOnce(context.Background())

	p, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	assert.Equal(t, "pi_retry", p.GatewayRef, "fresh intent replaces the original")
	assert.True(t, p.RetryAttempted)
	assert.Equal(t, []uint{7}, bookings.paid)
	assert.Equal(t, 1, gw.created)
}

func TestRunOnce_CardDeclinedStopsImmediately(t *testing.T) {
	repo := newFakePaymentRepo(failedPayment(1, uintPtr(7)))
	gw := &scriptedGateway{outcomes: []error{
		payment.NewGatewayError("card_declined", nil),
	}}
	bookings := &fakeBookings{}
	s := NewScheduler(repo, gw, bookings, fastConfig())

	s.RunOnce(context.Background())

	p, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, p.Status)
	assert.True(t, p.RetryAttempted)
	assert.Equal(t, 1, gw.created, "no further attempts after a non-retryable error")
	assert.Empty(t, bookings.paid)
}

func TestRunOnce_RetryableErrorsExhaustRetries(t *testing.T) {
	repo := newFakePaymentRepo(failedPayment(1, nil))
	gw := &scriptedGateway{outcomes: []error{
		payment.NewGatewayError("api_connection_error", nil),
		payment.NewGatewayError("api_connection_error", nil),
		payment.NewGatewayError("api_connection_error", nil),
	}}
	s := NewScheduler(repo, gw, &fakeBookings{}, fastConfig())

	s.RunOnce(context.Background())

	p, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, p.Status)
	assert.True(t, p.RetryAttempted, "flag set after retries are exhausted")
	assert.Equal(t, DefaultMaxRetries, gw.created)
}

func TestRunOnce_RecoversOnSecondAttempt(t *testing.T) {
	repo := newFakePaymentRepo(failedPayment(1, nil))
	gw := &scriptedGateway{outcomes: []error{
		payment.NewGatewayError("api_connection_error", nil),
		nil,
	}}
	s := NewScheduler(repo, gw, &fakeBookings{}, fastConfig())

	s.RunOnce(context.Background())

	p, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	assert.Equal(t, 2, gw.created)
}

func TestRunOnce_CancellationLeavesPaymentUnflagged(t *testing.T) {
	repo := newFakePaymentRepo(failedPayment(1, nil))
	ctx, cancel := context.WithCancel(context.Background())
	gw := &scriptedGateway{
		outcomes: []error{payment.NewGatewayError("api_connection_error", nil)},
		onCreate: cancel, // shutdown arrives during the first attempt
	}
	s := NewScheduler(repo, gw, &fakeBookings{}, Config{
		BackoffBase: time.Hour, // would block forever without cancellation
	})

	done := make(chan struct{})
	go func() {
		s.RunOnce(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunOnce did not react to cancellation")
	}

	p, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.False(t, p.RetryAttempted, "interrupted payments stay eligible for the next sweep")
}

func TestRunOnce_BatchContinuesAfterBadCandidate(t *testing.T) {
	p1 := failedPayment(1, nil)
	p2 := failedPayment(2, nil)
	p2.Reference = "ref-2"
	p2.GatewayRef = "pi_old_2"
	repo := newFakePaymentRepo(p1, p2)

	calls := 0
	gw := &scriptedGateway{}
	gw.onCreate = func() {
		calls++
		if calls == 1 {
			panic("gateway client blew up")
		}
	}
	s := NewScheduler(repo, gw, &fakeBookings{}, fastConfig())

	s.RunOnce(context.Background())

	// one of the two candidates panicked; the other still recovered
	completed := 0
	for _, id := range []uint{1, 2} {
		p, err := repo.GetByID(id)
		require.NoError(t, err)
		if p.Status == models.PaymentStatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}
