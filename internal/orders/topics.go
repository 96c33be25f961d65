package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderItemAdded     = "order.item.added"
	TopicOrderStatusChanged = "order.status.changed"
)

// Partition key = order id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
