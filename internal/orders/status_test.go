package orders

import "testing"

func TestStatusValid(t *testing.T) {
	valid := []Status{
		StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusInTransit, StatusOutForDelivery, StatusDelivered,
		StatusCancelled, StatusPaymentFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}

	for _, s := range []Status{"", "unknown", "PAID", "Pending"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
