package domain

import "testing"

func TestUsageStatusTerminal(t *testing.T) {
	if UsageApplied.Terminal() {
		t.Error("APPLIED must not be terminal")
	}
	for _, s := range []UsageStatus{UsageCancelled, UsageRefunded} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestPaymentStatusCancellable(t *testing.T) {
	cancellable := map[PaymentStatus]bool{
		PaymentPending:           true,
		PaymentProcessing:        true,
		PaymentCompleted:         false,
		PaymentFailed:            false,
		PaymentCancelled:         false,
		PaymentExpired:           false,
		PaymentRefunded:          false,
		PaymentPartiallyRefunded: false,
		PaymentDisputed:          false,
	}
	for s, want := range cancellable {
		if got := s.Cancellable(); got != want {
			t.Errorf("%s.Cancellable() = %v, want %v", s, got, want)
		}
	}
}
