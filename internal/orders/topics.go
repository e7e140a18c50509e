package orders

const (
	TopicOrderCreated       = "orders.created"
	TopicOrderPaid          = "orders.paid"
	TopicOrderPaymentFailed = "orders.payment_failed"
)

// Partition key = order id, so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
