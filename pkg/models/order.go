package models

import (
	"encoding/json"
	"fmt"
)

const (
	ObjectOrder       = "order"
	ObjectOrderItem   = "order_item"
	ObjectOrderReturn = "order_return"
	ObjectList        = "list"

	// MaxOrderItems is the most items an order can carry.
	MaxOrderItems = 25
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusReturned  OrderStatus = "returned"

	// OrderStatusRefunded is accepted by the list filter only. No order
	// reports it, so filtering on it matches nothing.
	OrderStatusRefunded OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusCanceled,
		OrderStatusFulfilled, OrderStatusReturned:
		return true
	}
	return false
}

// ValidFilter reports whether s may be used as a list status filter.
func (s OrderStatus) ValidFilter() bool {
	return s.Valid() || s == OrderStatusRefunded
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !OrderStatus(raw).Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	*s = OrderStatus(raw)
	return nil
}

type ItemType string

const (
	ItemTypeDiscount ItemType = "discount"
	ItemTypeShipping ItemType = "shipping"
	ItemTypeSKU      ItemType = "sku"
	ItemTypeTax      ItemType = "tax"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeDiscount, ItemTypeShipping, ItemTypeSKU, ItemTypeTax:
		return true
	}
	return false
}

func (t *ItemType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !ItemType(raw).Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidItemType, raw)
	}
	*t = ItemType(raw)
	return nil
}

// Order is a purchase tracked through the created/paid/fulfilled/canceled/
// returned lifecycle. Amounts are in the smallest currency unit.
type Order struct {
	ID                     *string                     `json:"id,omitzero"`
	Object                 *string                     `json:"object,omitzero"`
	Amount                 *int64                      `json:"amount,omitzero"`
	AmountReturned         Nullable[int64]             `json:"amount_returned,omitzero"`
	Application            Nullable[string]            `json:"application,omitzero"`
	ApplicationFee         Nullable[int64]             `json:"application_fee,omitzero"`
	Charge                 Nullable[Expandable]        `json:"charge,omitzero"`
	Created                *int64                      `json:"created,omitzero"`
	Currency               *string                     `json:"currency,omitzero"`
	Customer               Nullable[Expandable]        `json:"customer,omitzero"`
	Email                  Nullable[string]            `json:"email,omitzero"`
	ExternalCouponCode     *string                     `json:"external_coupon_code,omitzero"`
	Items                  []OrderItem                 `json:"items,omitzero"`
	Livemode               *bool                       `json:"livemode,omitzero"`
	Metadata               map[string]string           `json:"metadata,omitzero"`
	Returns                Nullable[OrderReturnList]   `json:"returns,omitzero"`
	SelectedShippingMethod Nullable[string]            `json:"selected_shipping_method,omitzero"`
	Shipping               Nullable[OrderShipping]     `json:"shipping,omitzero"`
	ShippingMethods        Nullable[[]ShippingMethod]  `json:"shipping_methods,omitzero"`
	Status                 *OrderStatus                `json:"status,omitzero"`
	StatusTransitions      Nullable[StatusTransitions] `json:"status_transitions,omitzero"`
	Updated                Nullable[int64]             `json:"updated,omitzero"`
	UpstreamID             *string                     `json:"upstream_id,omitzero"`
}

// GetID returns the order ID or "" when absent.
func (o *Order) GetID() string {
	if o == nil {
		return ""
	}
	return StringValue(o.ID)
}

// GetStatus returns the order status or "" when absent.
func (o *Order) GetStatus() OrderStatus {
	if o == nil || o.Status == nil {
		return ""
	}
	return *o.Status
}

// Money pairs the order amount with its currency.
func (o *Order) Money() Money {
	return Money{Amount: Int64Value(o.Amount), Currency: StringValue(o.Currency)}
}

type OrderItem struct {
	Object      *string              `json:"object,omitzero"`
	Amount      *int64               `json:"amount,omitzero"`
	Currency    *string              `json:"currency,omitzero"`
	Description *string              `json:"description,omitzero"`
	Parent      Nullable[Expandable] `json:"parent,omitzero"`
	Quantity    Nullable[int64]      `json:"quantity,omitzero"`
	Type        *ItemType            `json:"type,omitzero"`
}

type Address struct {
	City       Nullable[string] `json:"city,omitzero"`
	Country    Nullable[string] `json:"country,omitzero"`
	Line1      Nullable[string] `json:"line1,omitzero"`
	Line2      Nullable[string] `json:"line2,omitzero"`
	PostalCode Nullable[string] `json:"postal_code,omitzero"`
	State      Nullable[string] `json:"state,omitzero"`
}

// OrderShipping is where and how an order ships. Carrier is the delivery
// service (Fedex, UPS, USPS...); TrackingNumber may hold several comma
// separated numbers.
type OrderShipping struct {
	Address        *Address         `json:"address,omitzero"`
	Carrier        Nullable[string] `json:"carrier,omitzero"`
	Name           Nullable[string] `json:"name,omitzero"`
	Phone          Nullable[string] `json:"phone,omitzero"`
	TrackingNumber Nullable[string] `json:"tracking_number,omitzero"`
}

type ShippingMethod struct {
	Amount           int64                      `json:"amount"`
	Currency         string                     `json:"currency"`
	DeliveryEstimate Nullable[DeliveryEstimate] `json:"delivery_estimate,omitzero"`
	Description      string                     `json:"description"`
	ID               string                     `json:"id"`
}

type DeliveryEstimateType string

const (
	DeliveryEstimateExact DeliveryEstimateType = "exact"
	DeliveryEstimateRange DeliveryEstimateType = "range"
)

// DeliveryEstimate is either an exact date or an earliest/latest range, all
// formatted YYYY-MM-DD.
type DeliveryEstimate struct {
	Date     *string              `json:"date,omitzero"`
	Earliest *string              `json:"earliest,omitzero"`
	Latest   *string              `json:"latest,omitzero"`
	Type     DeliveryEstimateType `json:"type"`
}

func (d DeliveryEstimate) Validate() error {
	switch d.Type {
	case DeliveryEstimateExact:
		if d.Date == nil {
			return fmt.Errorf("%w: exact delivery estimate without date", ErrInvalidParams)
		}
	case DeliveryEstimateRange:
		if d.Earliest == nil || d.Latest == nil {
			return fmt.Errorf("%w: range delivery estimate needs earliest and latest", ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: unknown delivery estimate type %q", ErrInvalidParams, d.Type)
	}
	return nil
}

// StatusTransitions records the unix time each status was reached. The
// fulfilled key is misspelled on the wire and must stay that way.
type StatusTransitions struct {
	Canceled  Nullable[int64] `json:"canceled,omitzero"`
	Fulfilled Nullable[int64] `json:"fulfiled,omitzero"`
	Paid      Nullable[int64] `json:"paid,omitzero"`
	Returned  Nullable[int64] `json:"returned,omitzero"`
}

type OrderReturn struct {
	ID       *string              `json:"id,omitzero"`
	Object   *string              `json:"object,omitzero"`
	Amount   *int64               `json:"amount,omitzero"`
	Created  *int64               `json:"created,omitzero"`
	Currency *string              `json:"currency,omitzero"`
	Items    []OrderItem          `json:"items,omitzero"`
	Livemode *bool                `json:"livemode,omitzero"`
	Order    Nullable[Expandable] `json:"order,omitzero"`
	Refund   Nullable[Expandable] `json:"refund,omitzero"`
}

type OrderReturnList = List[OrderReturn]

type OrderList = List[Order]
