package mockapi

import (
	"fmt"

	"github.com/jogardn/orders-client/pkg/models"
)

// transitions lists the statuses an update may move an order to. Paid is
// reached only by paying the order.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusCreated:   {models.OrderStatusCanceled},
	models.OrderStatusPaid:      {models.OrderStatusCanceled, models.OrderStatusFulfilled},
	models.OrderStatusFulfilled: {models.OrderStatusCanceled, models.OrderStatusReturned},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves order to status and stamps the matching status
// transition. Setting the current status again is a no-op.
func transition(order *models.Order, to models.OrderStatus, now int64) error {
	from := order.GetStatus()
	if from == to {
		return nil
	}
	if to == models.OrderStatusPaid {
		return fmt.Errorf("orders can only be marked paid by paying them")
	}
	if !canTransition(from, to) {
		return fmt.Errorf("cannot change the status of a %s order to %s", from, to)
	}
	setStatus(order, to, now)
	return nil
}

func setStatus(order *models.Order, to models.OrderStatus, now int64) {
	st := order.StatusTransitions.OrZero()
	stamp := models.NullableOf(now)
	switch to {
	case models.OrderStatusPaid:
		st.Paid = stamp
	case models.OrderStatusFulfilled:
		st.Fulfilled = stamp
	case models.OrderStatusCanceled:
		st.Canceled = stamp
	case models.OrderStatusReturned:
		st.Returned = stamp
	}
	order.Status = &to
	order.StatusTransitions = models.NullableOf(st)
	order.Updated = models.NullableOf(now)
}

func transitionTime(st models.StatusTransitions, status models.OrderStatus) (int64, bool) {
	switch status {
	case models.OrderStatusPaid:
		return st.Paid.Get()
	case models.OrderStatusFulfilled:
		return st.Fulfilled.Get()
	case models.OrderStatusCanceled:
		return st.Canceled.Get()
	case models.OrderStatusReturned:
		return st.Returned.Get()
	}
	return 0, false
}

// returnable reports, per SKU, how many units of order have not been
// returned yet.
func returnable(order *models.Order) map[string]int64 {
	remaining := make(map[string]int64)
	for _, item := range order.Items {
		if item.Type == nil || *item.Type != models.ItemTypeSKU {
			continue
		}
		remaining[item.Parent.OrZero().ID] += quantity(item)
	}

	returns := order.Returns.OrZero()
	for _, ret := range returns.Data {
		for _, item := range ret.Items {
			if item.Type == nil || *item.Type != models.ItemTypeSKU {
				continue
			}
			remaining[item.Parent.OrZero().ID] -= quantity(item)
		}
	}

	for sku, qty := range remaining {
		if qty <= 0 {
			delete(remaining, sku)
		}
	}
	return remaining
}

func quantity(item models.OrderItem) int64 {
	if q, ok := item.Quantity.Get(); ok {
		return q
	}
	return 1
}
