package refunds

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/money"
)

// Breakdown is the itemized refund owed for one canceled purchase order.
type Breakdown struct {
	Items          decimal.Decimal `json:"items"`
	Tax            decimal.Decimal `json:"tax"`
	ServiceBase    decimal.Decimal `json:"service_base"`
	ServiceComms   decimal.Decimal `json:"service_comms"`
	ServiceGateway decimal.Decimal `json:"service_gateway"`
	Total          decimal.Decimal `json:"total"`

	UnitsCanceled int             `json:"units_canceled"`
	TotalUnits    int             `json:"total_units"`
	RatioByValue  decimal.Decimal `json:"ratio_by_value"`
	RatioByUnits  decimal.Decimal `json:"ratio_by_units"`
}

// LineAmount is the stored line total, or unit price × quantity when the line
// carries none.
func LineAmount(item models.OrderItem) decimal.Decimal {
	if item.LineTotal != nil {
		return *item.LineTotal
	}
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Calculate prorates the parent order's tax and service fees onto the
// canceled items. Tax and the base fee follow the items' share of the order
// subtotal; the communications fee follows their share of units. Gateway
// fees are never refunded.
func Calculate(order models.Order, items []models.OrderItem, totalUnits int) Breakdown {
	lines := make([]decimal.Decimal, 0, len(items))
	units := 0
	for _, item := range items {
		lines = append(lines, LineAmount(item))
		units += item.Quantity
	}
	itemsSubtotal := money.Sum(lines...)

	byValue := money.Ratio(itemsSubtotal, order.Subtotal)
	byUnits := money.Ratio(decimal.NewFromInt(int64(units)), decimal.NewFromInt(int64(totalUnits)))

	b := Breakdown{
		Items:          itemsSubtotal,
		Tax:            money.Prorate(order.Tax, byValue),
		ServiceBase:    money.Prorate(order.ServiceFeeBase, byValue),
		ServiceComms:   money.Prorate(order.ServiceFeeComms, byUnits),
		ServiceGateway: decimal.Zero,
		UnitsCanceled:  units,
		TotalUnits:     totalUnits,
		RatioByValue:   byValue,
		RatioByUnits:   byUnits,
	}
	b.Total = money.Sum(b.Items, b.Tax, b.ServiceBase, b.ServiceComms, b.ServiceGateway)
	return b
}
