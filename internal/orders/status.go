package orders

type Status string

const (
	StatusPending        Status = "pending"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusPaymentFailed  Status = "payment_failed"
)

var validStatuses = map[Status]bool{
	StatusPending:        true,
	StatusPaid:           true,
	StatusProcessing:     true,
	StatusShipped:        true,
	StatusInTransit:      true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
	StatusCancelled:      true,
	StatusPaymentFailed:  true,
}

func (s Status) Valid() bool { return validStatuses[s] }
