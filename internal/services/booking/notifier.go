// Package booking holds the booking-side collaborator used by the
// payment orchestrator. The real booking subsystem lives in another
// service; LogNotifier is the default stand-in until it is wired.
package booking

import (
	"context"
	"log"
)

// LogNotifier records payment outcomes to the process log.
type LogNotifier struct{}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) MarkPaid(ctx context.Context, bookingID uint) error {
	log.Printf("booking %d marked paid", bookingID)
	return nil
}

func (n *LogNotifier) MarkPaymentFailed(ctx context.Context, bookingID uint) error {
	log.Printf("booking %d marked payment failed", bookingID)
	return nil
}
