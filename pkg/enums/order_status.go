package enums

// OrderStatus is the shopper-level order state. Only the values the
// fulfillment engine writes are named here.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

func (o OrderStatus) String() string {
	return string(o)
}
