package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/internal/events"
	"github.com/jogardn/orders-client/pkg/models"
)

const (
	defaultListLimit   = 10
	taxItemDescription = "Taxes (included)"
)

// CreateOrder prices and stores a new order.
func (s *Server) CreateOrder(ctx context.Context, params *models.OrderCreateParams) (*models.Order, error) {
	now := s.now()
	id := newID("or")

	order := &models.Order{
		ID:                     models.String(id),
		Object:                 models.String(models.ObjectOrder),
		AmountReturned:         models.Null[int64](),
		Application:            models.Null[string](),
		ApplicationFee:         models.Null[int64](),
		Charge:                 models.Null[models.Expandable](),
		Created:                models.Int64(now.Unix()),
		Currency:               models.String(params.Currency),
		Customer:               models.Null[models.Expandable](),
		Email:                  models.Null[string](),
		Livemode:               models.Bool(false),
		Metadata:               map[string]string{},
		SelectedShippingMethod: models.Null[string](),
		Shipping:               models.Null[models.OrderShipping](),
		ShippingMethods:        models.Null[[]models.ShippingMethod](),
		StatusTransitions: models.NullableOf(models.StatusTransitions{
			Canceled:  models.Null[int64](),
			Fulfilled: models.Null[int64](),
			Paid:      models.Null[int64](),
			Returned:  models.Null[int64](),
		}),
		Updated: models.NullableOf(now.Unix()),
		Returns: models.NullableOf(models.OrderReturnList{
			Object: models.ObjectList,
			Data:   []models.OrderReturn{},
			URL:    "/v1/order_returns?order=" + id,
		}),
	}
	status := models.OrderStatusCreated
	order.Status = &status

	for k, v := range params.Metadata {
		order.Metadata[k] = v
	}

	if params.Customer != nil {
		customer, ok := s.catalog.Customer(*params.Customer)
		if !ok {
			return nil, resourceMissing("customer", *params.Customer, "customer")
		}
		order.Customer = models.NullableOf(models.ExpandableID(customer.ID))
		if customer.Email != "" {
			order.Email = models.NullableOf(customer.Email)
		}
	}
	if params.Email != nil {
		order.Email = models.NullableOf(*params.Email)
	}

	for i, in := range params.Items {
		item, err := s.createItem(i, in, params.Currency)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if params.Coupon != nil && *params.Coupon != "" {
		if err := s.applyCoupon(order, *params.Coupon); err != nil {
			return nil, err
		}
	}

	if params.Shipping != nil {
		order.Shipping = models.NullableOf(shippingFromParams(params.Shipping))

		methods := s.catalog.ShippingMethods(params.Currency, now)
		order.ShippingMethods = models.NullableOf(methods)
		selectShippingMethod(order, methods[0])
	}

	order.Items = append(order.Items, models.OrderItem{
		Object:      models.String(models.ObjectOrderItem),
		Amount:      models.Int64(0),
		Currency:    models.String(params.Currency),
		Description: models.String(taxItemDescription),
		Parent:      models.Null[models.Expandable](),
		Quantity:    models.Null[int64](),
		Type:        itemType(models.ItemTypeTax),
	})

	if len(order.Items) > models.MaxOrderItems {
		return nil, invalidRequest(fmt.Sprintf("An order can have at most %d items", models.MaxOrderItems)).WithParam("items")
	}
	if err := recomputeAmount(order); err != nil {
		return nil, err
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"amount":   order.Money().String(),
		"items":    len(order.Items),
	}).Info("Order created")

	s.publish(ctx, events.OrderCreated, order, nil)
	return order, nil
}

func (s *Server) createItem(i int, in models.OrderCreateItem, currency string) (models.OrderItem, error) {
	param := func(field string) string { return fmt.Sprintf("items[%d][%s]", i, field) }

	typ := models.ItemTypeSKU
	if in.Type != nil {
		typ = *in.Type
	}
	if in.Currency != nil && *in.Currency != currency {
		return models.OrderItem{}, invalidRequest("Item currency must match the order currency").WithParam(param("currency"))
	}

	item := models.OrderItem{
		Object:      models.String(models.ObjectOrderItem),
		Currency:    models.String(currency),
		Description: in.Description,
		Parent:      models.Null[models.Expandable](),
		Quantity:    models.Null[int64](),
		Type:        itemType(typ),
	}

	switch typ {
	case models.ItemTypeSKU:
		if in.Parent == nil {
			return models.OrderItem{}, invalidRequest("SKU items need a parent").WithParam(param("parent"))
		}
		sku, ok := s.catalog.SKU(*in.Parent)
		if !ok {
			return models.OrderItem{}, resourceMissing("sku", *in.Parent, param("parent"))
		}
		if sku.Currency != currency {
			return models.OrderItem{}, invalidRequest(fmt.Sprintf("SKU %s is priced in %s, not %s", sku.ID, sku.Currency, currency)).
				WithParam(param("parent"))
		}

		qty := int64(1)
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		item.Amount = models.Int64(sku.Price * qty)
		item.Parent = models.NullableOf(models.ExpandableID(sku.ID))
		item.Quantity = models.NullableOf(qty)
		if item.Description == nil {
			item.Description = models.String(sku.Description)
		}

	case models.ItemTypeDiscount, models.ItemTypeTax:
		if in.Amount == nil {
			return models.OrderItem{}, invalidRequest(fmt.Sprintf("%s items need an amount", typ)).WithParam(param("amount"))
		}
		amount := *in.Amount
		if typ == models.ItemTypeDiscount && amount > 0 {
			amount = -amount
		}
		if typ == models.ItemTypeTax && amount < 0 {
			return models.OrderItem{}, invalidRequest("Tax items cannot be negative").WithParam(param("amount"))
		}
		item.Amount = models.Int64(amount)
		if item.Description == nil {
			item.Description = models.String(string(typ))
		}

	default:
		return models.OrderItem{}, invalidRequest("Shipping items are added from the order's shipping methods").WithParam(param("type"))
	}

	return item, nil
}

func shippingFromParams(p *models.OrderCreateShipping) models.OrderShipping {
	opt := func(v *string) models.Nullable[string] {
		if v == nil {
			return models.Null[string]()
		}
		return models.NullableOf(*v)
	}

	return models.OrderShipping{
		Address: &models.Address{
			City:       opt(p.Address.City),
			Country:    opt(p.Address.Country),
			Line1:      models.NullableOf(p.Address.Line1),
			Line2:      opt(p.Address.Line2),
			PostalCode: opt(p.Address.PostalCode),
			State:      opt(p.Address.State),
		},
		Carrier:        models.Null[string](),
		Name:           models.NullableOf(p.Name),
		Phone:          opt(p.Phone),
		TrackingNumber: models.Null[string](),
	}
}

// selectShippingMethod replaces the order's shipping item with one for method.
func selectShippingMethod(order *models.Order, method models.ShippingMethod) {
	order.Items = removeItems(order.Items, func(item models.OrderItem) bool {
		return item.Type != nil && *item.Type == models.ItemTypeShipping
	})
	order.Items = append(order.Items, models.OrderItem{
		Object:      models.String(models.ObjectOrderItem),
		Amount:      models.Int64(method.Amount),
		Currency:    models.String(method.Currency),
		Description: models.String(method.Description),
		Parent:      models.NullableOf(models.ExpandableID(method.ID)),
		Quantity:    models.Null[int64](),
		Type:        itemType(models.ItemTypeShipping),
	})
	order.SelectedShippingMethod = models.NullableOf(method.ID)
}

// applyCoupon replaces any coupon discount with one for code. An empty code
// removes the coupon.
func (s *Server) applyCoupon(order *models.Order, code string) error {
	order.Items = removeItems(order.Items, func(item models.OrderItem) bool {
		return item.Type != nil && *item.Type == models.ItemTypeDiscount && item.Parent.IsSet()
	})
	order.ExternalCouponCode = nil
	if code == "" {
		return nil
	}

	coupon, ok := s.catalog.Coupon(code)
	if !ok {
		return resourceMissing("coupon", code, "coupon")
	}

	var subtotal int64
	for _, item := range order.Items {
		if item.Type != nil && *item.Type == models.ItemTypeSKU {
			subtotal += models.Int64Value(item.Amount)
		}
	}

	currency := models.StringValue(order.Currency)
	order.Items = append(order.Items, models.OrderItem{
		Object:      models.String(models.ObjectOrderItem),
		Amount:      models.Int64(-coupon.discount(subtotal, currency)),
		Currency:    models.String(currency),
		Description: models.String("Discount (" + coupon.ID + ")"),
		Parent:      models.NullableOf(models.ExpandableID(coupon.ID)),
		Quantity:    models.Null[int64](),
		Type:        itemType(models.ItemTypeDiscount),
	})
	order.ExternalCouponCode = models.String(coupon.ID)
	return nil
}

func recomputeAmount(order *models.Order) error {
	var amount int64
	for _, item := range order.Items {
		amount += models.Int64Value(item.Amount)
	}
	if amount < 0 {
		return invalidRequest("The order amount cannot be negative").WithParam("items")
	}
	order.Amount = models.Int64(amount)
	return nil
}

func removeItems(items []models.OrderItem, drop func(models.OrderItem) bool) []models.OrderItem {
	kept := items[:0:0]
	for _, item := range items {
		if !drop(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

func itemType(t models.ItemType) *models.ItemType { return &t }

func (s *Server) getOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		e := resourceMissing("order", id, "id")
		e.HTTPStatus = http.StatusNotFound
		return nil, e
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return order, nil
}

func (s *Server) RetrieveOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.getOrder(ctx, id)
}

// UpdateOrder applies params to the order. Coupon and shipping method
// changes are only allowed before the order is paid.
func (s *Server) UpdateOrder(ctx context.Context, id string, params *models.OrderUpdateParams) (*models.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	previous := map[string]any{}

	if params.Metadata != nil {
		previous["metadata"] = copyMetadata(order.Metadata)
		order.Metadata = mergeMetadata(order.Metadata, params.Metadata)
	}

	if params.Coupon != nil || params.SelectedShippingMethod != nil {
		if order.GetStatus() != models.OrderStatusCreated {
			param := "coupon"
			if params.Coupon == nil {
				param = "selected_shipping_method"
			}
			return nil, invalidRequest("The items of an order can only be changed before it is paid").WithParam(param)
		}
		previous["amount"] = models.Int64Value(order.Amount)

		if params.Coupon != nil {
			if err := s.applyCoupon(order, *params.Coupon); err != nil {
				return nil, err
			}
		}
		if params.SelectedShippingMethod != nil {
			method, ok := findShippingMethod(order, *params.SelectedShippingMethod)
			if !ok {
				return nil, invalidRequest(fmt.Sprintf("The order has no shipping method %q", *params.SelectedShippingMethod)).
					WithParam("selected_shipping_method")
			}
			previous["selected_shipping_method"] = order.SelectedShippingMethod.OrZero()
			selectShippingMethod(order, method)
		}
		if err := recomputeAmount(order); err != nil {
			return nil, err
		}
	}

	if params.Shipping != nil {
		shipping, ok := order.Shipping.Get()
		if !ok {
			return nil, invalidRequest("The order has no shipping details to add tracking to").WithParam("shipping")
		}
		previous["shipping"] = shipping
		shipping.Carrier = models.NullableOf(params.Shipping.Carrier)
		shipping.TrackingNumber = models.NullableOf(params.Shipping.TrackingNumber)
		order.Shipping = models.NullableOf(shipping)
	}

	if params.Status != nil && *params.Status != order.GetStatus() {
		from := order.GetStatus()
		if err := transition(order, *params.Status, now); err != nil {
			return nil, invalidRequest(err.Error()).WithParam("status")
		}
		previous["status"] = from
	}

	order.Updated = models.NullableOf(now)
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"status":   order.GetStatus(),
	}).Info("Order updated")

	s.publish(ctx, events.OrderUpdated, order, previous)
	return order, nil
}

func findShippingMethod(order *models.Order, id string) (models.ShippingMethod, bool) {
	methods, _ := order.ShippingMethods.Get()
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return models.ShippingMethod{}, false
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeMetadata sets the keys of update on m. An empty value unsets the key.
func mergeMetadata(m, update map[string]string) map[string]string {
	out := copyMetadata(m)
	for k, v := range update {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// PayOrder charges a created order to params.Source, or to the default source
// of the order's customer.
func (s *Server) PayOrder(ctx context.Context, id string, params *models.OrderPayParams) (*models.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if status := order.GetStatus(); status != models.OrderStatusCreated {
		return nil, invalidRequest(fmt.Sprintf("Only created orders can be paid, this order is %s", status)).
			WithCode("order_status_invalid")
	}

	customerID := order.Customer.OrZero().ID
	if params.Customer != nil {
		customerID = *params.Customer
	}

	var customer Customer
	if customerID != "" {
		var ok bool
		if customer, ok = s.catalog.Customer(customerID); !ok {
			return nil, resourceMissing("customer", customerID, "customer")
		}
	}

	source := customer.DefaultSource
	if params.Source != nil {
		source = *params.Source
	}

	switch {
	case customerID == "" && source == "":
		return nil, invalidRequest("You must supply either a source or a customer to pay an order").WithParam("source")
	case source == "":
		return nil, cardError("missing", "Cannot charge a customer that has no active card", "")
	case strings.HasSuffix(source, "chargeDeclined"):
		return nil, cardError("card_declined", "Your card was declined.", "generic_decline")
	}

	if params.ApplicationFee != nil {
		if *params.ApplicationFee > models.Int64Value(order.Amount) {
			return nil, invalidRequest("The application fee cannot exceed the order amount").WithParam("application_fee")
		}
		order.ApplicationFee = models.NullableOf(*params.ApplicationFee)
	}
	if customerID != "" {
		order.Customer = models.NullableOf(models.ExpandableID(customerID))
	}
	if params.Email != nil {
		order.Email = models.NullableOf(*params.Email)
	}
	if params.Metadata != nil {
		order.Metadata = mergeMetadata(order.Metadata, params.Metadata)
	}

	order.Charge = models.NullableOf(models.ExpandableID(newID("ch")))
	setStatus(order, models.OrderStatusPaid, s.now().Unix())

	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":  id,
		"charge_id": order.Charge.OrZero().ID,
		"amount":    order.Money().String(),
	}).Info("Order paid")

	s.publish(ctx, events.OrderPaymentSucceeded, order, map[string]any{"status": models.OrderStatusCreated})
	return order, nil
}

func cardError(code, message, declineCode string) *backend.Error {
	e := backend.NewError(http.StatusPaymentRequired, backend.ErrorTypeCard, message).WithCode(code)
	e.DeclineCode = declineCode
	return e
}

// ReturnOrder refunds SKU items of a paid or fulfilled order. Returning
// every remaining item moves the order to returned, or to canceled when it
// had not been fulfilled.
func (s *Server) ReturnOrder(ctx context.Context, id string, params *models.OrderReturnOrderParams) (*models.OrderReturn, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	status := order.GetStatus()
	if status != models.OrderStatusPaid && status != models.OrderStatusFulfilled {
		return nil, invalidRequest(fmt.Sprintf("Only paid or fulfilled orders can be returned, this order is %s", status)).
			WithCode("order_status_invalid")
	}

	remaining := returnable(order)
	if len(remaining) == 0 {
		return nil, invalidRequest("Every item of this order has already been returned").WithParam("items")
	}

	var items []models.OrderItem
	if params.Items.All() {
		items = returnAll(order, remaining)
	} else {
		items, err = returnSome(order, remaining, params.Items.Items())
		if err != nil {
			return nil, err
		}
	}

	var amount int64
	for _, item := range items {
		amount += models.Int64Value(item.Amount)
	}

	now := s.now().Unix()
	ret := models.OrderReturn{
		ID:       models.String(newID("orret")),
		Object:   models.String(models.ObjectOrderReturn),
		Amount:   models.Int64(amount),
		Created:  models.Int64(now),
		Currency: order.Currency,
		Items:    items,
		Livemode: models.Bool(false),
		Order:    models.NullableOf(models.ExpandableID(id)),
		Refund:   models.NullableOf(models.ExpandableID(newID("re"))),
	}

	previous := map[string]any{"amount_returned": order.AmountReturned}

	returns := order.Returns.OrZero()
	returns.Object = models.ObjectList
	returns.URL = "/v1/order_returns?order=" + id
	returns.Data = append([]models.OrderReturn{ret}, returns.Data...)
	order.Returns = models.NullableOf(returns)
	order.AmountReturned = models.NullableOf(order.AmountReturned.OrZero() + amount)
	order.Updated = models.NullableOf(now)

	if len(returnable(order)) == 0 {
		previous["status"] = status
		if status == models.OrderStatusFulfilled {
			setStatus(order, models.OrderStatusReturned, now)
		} else {
			setStatus(order, models.OrderStatusCanceled, now)
		}
	}

	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":  id,
		"return_id": models.StringValue(ret.ID),
		"amount":    amount,
		"status":    order.GetStatus(),
	}).Info("Order returned")

	s.publish(ctx, events.OrderReturnCreated, ret, nil)
	s.publish(ctx, events.OrderUpdated, order, previous)
	return &ret, nil
}

func returnedItem(item models.OrderItem, qty int64) models.OrderItem {
	unit := models.Int64Value(item.Amount) / quantity(item)
	item.Amount = models.Int64(unit * qty)
	item.Quantity = models.NullableOf(qty)
	return item
}

func returnAll(order *models.Order, remaining map[string]int64) []models.OrderItem {
	var items []models.OrderItem
	for _, item := range order.Items {
		if item.Type == nil || *item.Type != models.ItemTypeSKU {
			continue
		}
		sku := item.Parent.OrZero().ID
		qty := min(remaining[sku], quantity(item))
		if qty <= 0 {
			continue
		}
		remaining[sku] -= qty
		items = append(items, returnedItem(item, qty))
	}
	return items
}

func returnSome(order *models.Order, remaining map[string]int64, requested []models.OrderReturnItem) ([]models.OrderItem, error) {
	var items []models.OrderItem
	for i, req := range requested {
		param := func(field string) string { return fmt.Sprintf("items[%d][%s]", i, field) }

		if req.Type != nil && *req.Type != models.ItemTypeSKU {
			return nil, invalidRequest("Only sku items can be returned").WithParam(param("type"))
		}
		if req.Parent == nil {
			return nil, invalidRequest("Returned items need a parent").WithParam(param("parent"))
		}

		var (
			source models.OrderItem
			found  bool
		)
		for _, item := range order.Items {
			if item.Type != nil && *item.Type == models.ItemTypeSKU && item.Parent.OrZero().ID == *req.Parent {
				source, found = item, true
				break
			}
		}
		if !found {
			return nil, resourceMissing("order item", *req.Parent, param("parent"))
		}

		left := remaining[*req.Parent]
		qty := left
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		if qty <= 0 || qty > left {
			return nil, invalidRequest(fmt.Sprintf("Only %d of %s can still be returned", left, *req.Parent)).
				WithParam(param("quantity"))
		}
		remaining[*req.Parent] -= qty

		// Priced from the order; a requested amount is ignored.
		items = append(items, returnedItem(source, qty))
	}
	return items, nil
}

// ListOrders returns one page of the orders matching params, newest first.
func (s *Server) ListOrders(ctx context.Context, params *models.OrderListParams) (*models.OrderList, error) {
	all, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var cursor *models.Order
	backward := false
	switch {
	case params.StartingAfter != nil:
		if cursor, err = s.cursor(ctx, *params.StartingAfter, "starting_after"); err != nil {
			return nil, err
		}
	case params.EndingBefore != nil:
		if cursor, err = s.cursor(ctx, *params.EndingBefore, "ending_before"); err != nil {
			return nil, err
		}
		backward = true
	}

	var candidates []models.Order
	for _, order := range all {
		if !matches(order, params) {
			continue
		}
		if cursor != nil {
			if backward && !newer(order, cursor) {
				continue
			}
			if !backward && !newer(cursor, order) {
				continue
			}
		}
		candidates = append(candidates, *order)
	}

	limit := defaultListLimit
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

	page := candidates
	if len(page) > limit {
		if backward {
			page = page[len(page)-limit:]
		} else {
			page = page[:limit]
		}
	}
	if page == nil {
		page = []models.Order{}
	}

	return &models.OrderList{
		Object:  models.ObjectList,
		Data:    page,
		HasMore: len(candidates) > limit,
		URL:     "/v1/orders",
	}, nil
}

func (s *Server) cursor(ctx context.Context, id, param string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, resourceMissing("order", id, param)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor %s: %w", id, err)
	}
	return order, nil
}

// newer reports whether a sorts before b in newest-first order.
func newer(a, b *models.Order) bool {
	ca, cb := models.Int64Value(a.Created), models.Int64Value(b.Created)
	if ca != cb {
		return ca > cb
	}
	return a.GetID() > b.GetID()
}

func matches(order *models.Order, params *models.OrderListParams) bool {
	if params.Customer != nil && order.Customer.OrZero().ID != *params.Customer {
		return false
	}
	if params.Status != nil && order.GetStatus() != *params.Status {
		return false
	}
	if len(params.IDs) > 0 && !contains(params.IDs, order.GetID()) {
		return false
	}
	if len(params.UpstreamIDs) > 0 && !contains(params.UpstreamIDs, models.StringValue(order.UpstreamID)) {
		return false
	}
	if !params.Created.Match(models.Int64Value(order.Created)) {
		return false
	}

	if f := params.StatusTransitions; f != nil {
		st := order.StatusTransitions.OrZero()
		for status, filter := range map[models.OrderStatus]*models.RangeFilter{
			models.OrderStatusCanceled:  f.Canceled,
			models.OrderStatusFulfilled: f.Fulfilled,
			models.OrderStatusPaid:      f.Paid,
			models.OrderStatusReturned:  f.Returned,
		} {
			if filter == nil {
				continue
			}
			ts, ok := transitionTime(st, status)
			if !ok || !filter.Match(ts) {
				return false
			}
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// expandOrder inlines the references named in expand. prefix is "data." for
// list responses.
func (s *Server) expandOrder(order *models.Order, expand []string, prefix string) error {
	for _, field := range expand {
		name, ok := strings.CutPrefix(field, prefix)
		if !ok || name != "customer" {
			return invalidRequest(fmt.Sprintf("This property cannot be expanded (%s).", field)).WithParam("expand")
		}

		ref, ok := order.Customer.Get()
		if !ok || ref.IsExpanded() {
			continue
		}
		customer, ok := s.catalog.Customer(ref.ID)
		if !ok {
			continue
		}
		data, err := json.Marshal(customer)
		if err != nil {
			return fmt.Errorf("failed to expand customer %s: %w", ref.ID, err)
		}
		order.Customer = models.NullableOf(models.Expandable{ID: ref.ID, Object: data})
	}
	return nil
}
