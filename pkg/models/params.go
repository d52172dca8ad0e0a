package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params carries the options shared by every request that reaches the API.
type Params struct {
	// Expand names the nested references the API should inline as objects.
	Expand []string `json:"expand,omitzero" validate:"dive,required"`
}

func (p *Params) AddExpand(field string) {
	p.Expand = append(p.Expand, field)
}

// OrderCreateParams creates a new order.
type OrderCreateParams struct {
	Currency string               `json:"currency"           validate:"required,len=3,lowercase"`
	Coupon   *string              `json:"coupon,omitzero"`
	Customer *string              `json:"customer,omitzero"`
	Email    *string              `json:"email,omitzero"     validate:"omitempty,email"`
	Items    []OrderCreateItem    `json:"items,omitzero"     validate:"max=25,dive"`
	Metadata map[string]string    `json:"metadata,omitzero"  validate:"max=50,dive,keys,required,max=40,endkeys,max=500"`
	Shipping *OrderCreateShipping `json:"shipping,omitzero"`
	Params
}

func (p *OrderCreateParams) Validate() error {
	return validateStruct(p)
}

type OrderCreateItem struct {
	Type        *ItemType `json:"type,omitzero"        validate:"omitempty,oneof=discount shipping sku tax"`
	Parent      *string   `json:"parent,omitzero"`
	Quantity    *int64    `json:"quantity,omitzero"    validate:"omitempty,gte=1"`
	Amount      *int64    `json:"amount,omitzero"`
	Currency    *string   `json:"currency,omitzero"    validate:"omitempty,len=3,lowercase"`
	Description *string   `json:"description,omitzero"`
}

type OrderCreateShipping struct {
	Address OrderCreateAddress `json:"address"         validate:"required"`
	Name    string             `json:"name"            validate:"required"`
	Phone   *string            `json:"phone,omitzero"`
}

type OrderCreateAddress struct {
	City       *string `json:"city,omitzero"`
	Country    *string `json:"country,omitzero"     validate:"omitempty,len=2"`
	Line1      string  `json:"line1"                validate:"required"`
	Line2      *string `json:"line2,omitzero"`
	PostalCode *string `json:"postal_code,omitzero"`
	State      *string `json:"state,omitzero"`
}

// OrderRetrieveParams retrieves an existing order.
type OrderRetrieveParams struct {
	Params
}

func (p *OrderRetrieveParams) Validate() error {
	return validateStruct(p)
}

// OrderUpdateParams updates an order. Fields left nil are not changed.
type OrderUpdateParams struct {
	Coupon                 *string              `json:"coupon,omitzero"`
	Metadata               map[string]string    `json:"metadata,omitzero"                 validate:"max=50,dive,keys,required,max=40,endkeys,max=500"`
	SelectedShippingMethod *string              `json:"selected_shipping_method,omitzero"`
	Shipping               *OrderUpdateShipping `json:"shipping,omitzero"`
	Status                 *OrderStatus         `json:"status,omitzero"                   validate:"omitempty,oneof=canceled created fulfilled paid returned"`
	Params
}

func (p *OrderUpdateParams) Validate() error {
	return validateStruct(p)
}

// OrderUpdateShipping is the tracking information of a fulfilled order.
type OrderUpdateShipping struct {
	Carrier        string `json:"carrier"         validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

// OrderListParams filters and paginates the order list. At most one of
// StartingAfter and EndingBefore may be set.
type OrderListParams struct {
	Created           *RangeFilter             `json:"created,omitzero"`
	Customer          *string                  `json:"customer,omitzero"`
	EndingBefore      *string                  `json:"ending_before,omitzero"`
	IDs               []string                 `json:"ids,omitzero"                validate:"dive,required"`
	Limit             *int64                   `json:"limit,omitzero"              validate:"omitempty,min=1,max=100"`
	StartingAfter     *string                  `json:"starting_after,omitzero"`
	Status            *OrderStatus             `json:"status,omitzero"             validate:"omitempty,oneof=created paid canceled fulfilled returned refunded"`
	StatusTransitions *StatusTransitionsFilter `json:"status_transitions,omitzero"`
	UpstreamIDs       []string                 `json:"upstream_ids,omitzero"       validate:"dive,required"`
	Params
}

func (p *OrderListParams) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.StartingAfter != nil && p.EndingBefore != nil {
		return fmt.Errorf("%w: starting_after and ending_before are mutually exclusive", ErrInvalidParams)
	}
	if err := p.Created.Validate(); err != nil {
		return err
	}
	return p.StatusTransitions.Validate()
}

// OrderPayParams pays an order with a source or a customer's default source.
type OrderPayParams struct {
	ApplicationFee *int64            `json:"application_fee,omitzero" validate:"omitempty,gte=0"`
	Customer       *string           `json:"customer,omitzero"`
	Email          *string           `json:"email,omitzero"           validate:"omitempty,email"`
	Metadata       map[string]string `json:"metadata,omitzero"        validate:"max=50,dive,keys,required,max=40,endkeys,max=500"`
	Source         *string           `json:"source,omitzero"`
	Params
}

func (p *OrderPayParams) Validate() error {
	return validateStruct(p)
}

// OrderReturnOrderParams returns all or part of a paid or fulfilled order.
type OrderReturnOrderParams struct {
	Items ReturnItems `json:"items,omitzero"`
	Params
}

func (p *OrderReturnOrderParams) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.Items.set && !p.Items.all && len(p.Items.items) == 0 {
		return fmt.Errorf("%w: items needs at least one entry, use ReturnAllItems to return everything", ErrInvalidParams)
	}
	for i := range p.Items.items {
		if err := validateStruct(&p.Items.items[i]); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

// OrderReturnItem names an item to return. Description disambiguates which
// tax item is meant.
type OrderReturnItem struct {
	Amount      *int64    `json:"amount,omitzero"`
	Description *string   `json:"description,omitzero"`
	Parent      *string   `json:"parent,omitzero"`
	Quantity    *int64    `json:"quantity,omitzero"    validate:"omitempty,gte=1"`
	Type        *ItemType `json:"type,omitzero"        validate:"omitempty,oneof=discount shipping sku tax"`
}

// ReturnItems selects what to return: either everything (sent as the empty
// string) or an explicit list of items.
type ReturnItems struct {
	items []OrderReturnItem
	all   bool
	set   bool
}

func ReturnAllItems() ReturnItems {
	return ReturnItems{all: true, set: true}
}

func ReturnItemsOf(items ...OrderReturnItem) ReturnItems {
	return ReturnItems{items: items, set: true}
}

func (r ReturnItems) IsZero() bool { return !r.set }

// All reports whether every remaining item is returned. An absent selection
// also means everything.
func (r ReturnItems) All() bool { return !r.set || r.all }

func (r ReturnItems) Items() []OrderReturnItem { return r.items }

func (r ReturnItems) MarshalJSON() ([]byte, error) {
	if r.All() {
		return []byte(`""`), nil
	}
	return json.Marshal(r.items)
}

func (r *ReturnItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "" {
			return fmt.Errorf("%w: items must be \"\" or a list, got %q", ErrInvalidParams, s)
		}
		*r = ReturnAllItems()
		return nil
	}

	var items []OrderReturnItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: items must be \"\" or a list: %v", ErrInvalidParams, err)
	}
	*r = ReturnItemsOf(items...)
	return nil
}
