package orders

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentInitiated = "order.payment.initiated"
	TopicOrderPaid        = "order.paid"
	TopicOrderCancelled   = "order.cancelled"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
