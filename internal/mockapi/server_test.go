package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/internal/events"
	"github.com/jogardn/orders-client/internal/metrics"
	"github.com/jogardn/orders-client/pkg/models"
)

const testKey = "sk_test_123"

type recorder struct {
	mutex  sync.Mutex
	events []*events.Event
}

func (r *recorder) Publish(_ context.Context, event *events.Event) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var types []events.EventType
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

func (r *recorder) last() *events.Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.events[len(r.events)-1]
}

// tick returns a clock that advances one second per call so every order gets
// a distinct creation time.
func tick() func() time.Time {
	var mutex sync.Mutex
	now := time.Unix(1577836800, 0)
	return func() time.Time {
		mutex.Lock()
		defer mutex.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	server   *Server
	http     *httptest.Server
	events   *recorder
	registry *metrics.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &fixture{events: &recorder{}, registry: metrics.New()}
	f.server = NewServer(Options{
		Publisher: f.events,
		Metrics:   f.registry,
		Logger:    logger,
		Now:       tick(),
	})
	f.server.Catalog().AddCustomer(Customer{ID: "cus_card", Email: "jenny@example.com", Name: "Jenny Rosen", DefaultSource: "tok_visa"})
	f.server.Catalog().AddCustomer(Customer{ID: "cus_nocard", Email: "no@example.com"})

	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) request(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(data)
		}
		reader = bytes.NewBufferString(raw)
	}

	req, err := http.NewRequest(method, f.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (f *fixture) order(t *testing.T, method, path string, body any) *models.Order {
	t.Helper()
	resp, data := f.request(t, method, path, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var order models.Order
	require.NoError(t, json.Unmarshal(data, &order))
	return &order
}

func (f *fixture) apiError(t *testing.T, method, path string, body any, status int) *backend.Error {
	t.Helper()
	resp, data := f.request(t, method, path, body)
	require.Equal(t, status, resp.StatusCode, string(data))

	var envelope backend.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error
}

func (f *fixture) create(t *testing.T, body string) *models.Order {
	t.Helper()
	return f.order(t, http.MethodPost, "/v1/orders", body)
}

func itemsOfType(order *models.Order, typ models.ItemType) []models.OrderItem {
	var items []models.OrderItem
	for _, item := range order.Items {
		if item.Type != nil && *item.Type == typ {
			items = append(items, item)
		}
	}
	return items
}

func TestCreateOrderPricesItems(t *testing.T) {
	f := newFixture(t)

	order := f.create(t, `{"currency":"usd","items":[{"type":"sku","parent":"sku_tshirt","quantity":2}]}`)

	assert.Regexp(t, `^or_[0-9a-f]{24}$`, order.GetID())
	assert.Equal(t, models.OrderStatusCreated, order.GetStatus())
	assert.Equal(t, int64(3000), models.Int64Value(order.Amount))
	assert.Equal(t, "usd", models.StringValue(order.Currency))
	assert.Equal(t, map[string]string{}, order.Metadata)
	assert.True(t, order.Charge.IsNull())
	assert.True(t, order.Shipping.IsNull())

	skus := itemsOfType(order, models.ItemTypeSKU)
	require.Len(t, skus, 1)
	assert.Equal(t, "sku_tshirt", skus[0].Parent.OrZero().ID)
	assert.Equal(t, int64(2), skus[0].Quantity.OrZero())

	taxes := itemsOfType(order, models.ItemTypeTax)
	require.Len(t, taxes, 1)
	assert.Equal(t, int64(0), models.Int64Value(taxes[0].Amount))

	returns, ok := order.Returns.Get()
	require.True(t, ok)
	assert.Empty(t, returns.Data)
	assert.Equal(t, "/v1/order_returns?order="+order.GetID(), returns.URL)

	assert.Equal(t, []events.EventType{events.OrderCreated}, f.events.types())
	assert.Equal(t, order.GetID(), f.events.last().OrderID())
}

func TestCreateOrderWithShippingAndCoupon(t *testing.T) {
	f := newFixture(t)

	order := f.create(t, `{
		"currency": "usd",
		"coupon": "SAVE10",
		"items": [{"parent": "sku_tshirt"}],
		"shipping": {"name": "Jenny Rosen", "address": {"line1": "1234 Main Street", "city": "Anytown", "country": "US"}}
	}`)

	assert.Equal(t, int64(1350), models.Int64Value(order.Amount))
	assert.Equal(t, "SAVE10", models.StringValue(order.ExternalCouponCode))
	assert.Equal(t, "ship_free", order.SelectedShippingMethod.OrZero())

	methods, ok := order.ShippingMethods.Get()
	require.True(t, ok)
	require.Len(t, methods, 2)
	free, ok := methods[0].DeliveryEstimate.Get()
	require.True(t, ok)
	assert.Equal(t, models.DeliveryEstimateRange, free.Type)
	assert.Equal(t, "2020-01-06", models.StringValue(free.Earliest))
	express, _ := methods[1].DeliveryEstimate.Get()
	assert.Equal(t, models.DeliveryEstimateExact, express.Type)
	require.NoError(t, express.Validate())

	discounts := itemsOfType(order, models.ItemTypeDiscount)
	require.Len(t, discounts, 1)
	assert.Equal(t, int64(-150), models.Int64Value(discounts[0].Amount))
	assert.Len(t, itemsOfType(order, models.ItemTypeShipping), 1)

	shipping, ok := order.Shipping.Get()
	require.True(t, ok)
	assert.Equal(t, "Jenny Rosen", shipping.Name.OrZero())
	assert.True(t, shipping.Carrier.IsNull())
	assert.Equal(t, "Anytown", shipping.Address.City.OrZero())
}

func TestCreateOrderErrors(t *testing.T) {
	f := newFixture(t)

	tooMany := `{"currency":"usd","items":[`
	for i := 0; i < 26; i++ {
		if i > 0 {
			tooMany += ","
		}
		tooMany += `{"parent":"sku_mug"}`
	}
	tooMany += `]}`

	tests := []struct {
		name  string
		body  string
		param string
		code  string
	}{
		{name: "unknown sku", body: `{"currency":"usd","items":[{"parent":"sku_nope"}]}`, param: "items[0][parent]", code: "resource_missing"},
		{name: "currency mismatch", body: `{"currency":"usd","items":[{"parent":"sku_poster"}]}`, param: "items[0][parent]"},
		{name: "sku without parent", body: `{"currency":"usd","items":[{"type":"sku"}]}`, param: "items[0][parent]"},
		{name: "shipping item", body: `{"currency":"usd","items":[{"type":"shipping","amount":100}]}`, param: "items[0][type]"},
		{name: "unknown coupon", body: `{"currency":"usd","coupon":"BOGUS"}`, param: "coupon", code: "resource_missing"},
		{name: "unknown customer", body: `{"currency":"usd","customer":"cus_missing"}`, param: "customer", code: "resource_missing"},
		{name: "missing currency", body: `{}`},
		{name: "unknown field", body: `{"currency":"usd","colour":"red"}`},
		{name: "unknown item type", body: `{"currency":"usd","items":[{"type":"gift","amount":1}]}`},
		{name: "too many items", body: tooMany},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := f.apiError(t, http.MethodPost, "/v1/orders", tt.body, http.StatusBadRequest)
			assert.Equal(t, backend.ErrorTypeInvalidRequest, apiErr.Type)
			assert.Equal(t, tt.param, apiErr.Param)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.NotEmpty(t, apiErr.Message)
		})
	}

	assert.Empty(t, f.events.types())
}

func TestRequestsNeedAnAPIKey(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.http.URL+"/v1/orders", "application/json", bytes.NewBufferString(`{"currency":"usd"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var envelope backend.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, backend.ErrorTypeAuthentication, envelope.Error.Type)
	assert.NotEmpty(t, resp.Header.Get("Request-Id"))
}

func TestRetrieveOrder(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, `{"currency":"usd","customer":"cus_card","items":[{"parent":"sku_mug"}]}`)

	got := f.order(t, http.MethodGet, "/v1/orders/"+created.GetID(), nil)
	assert.Equal(t, created.GetID(), got.GetID())
	assert.Equal(t, "jenny@example.com", got.Email.OrZero())
	assert.False(t, got.Customer.OrZero().IsExpanded())

	expanded := f.order(t, http.MethodGet, "/v1/orders/"+created.GetID()+"?expand[]=customer", nil)
	ref := expanded.Customer.OrZero()
	require.True(t, ref.IsExpanded())
	var customer Customer
	require.NoError(t, ref.Decode(&customer))
	assert.Equal(t, "Jenny Rosen", customer.Name)

	apiErr := f.apiError(t, http.MethodGet, "/v1/orders/"+created.GetID()+"?expand[]=charge", nil, http.StatusBadRequest)
	assert.Equal(t, "expand", apiErr.Param)

	apiErr = f.apiError(t, http.MethodGet, "/v1/orders/or_missing", nil, http.StatusNotFound)
	assert.Equal(t, "resource_missing", apiErr.Code)
	assert.Equal(t, "id", apiErr.Param)
}

func TestUnknownRoutes(t *testing.T) {
	f := newFixture(t)

	apiErr := f.apiError(t, http.MethodGet, "/v1/customers", nil, http.StatusNotFound)
	assert.Contains(t, apiErr.Message, "Unrecognized request URL")
}

func TestUpdateOrder(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, `{
		"currency": "usd",
		"metadata": {"a": "1", "b": "2"},
		"items": [{"parent": "sku_hoodie"}],
		"shipping": {"name": "Jenny Rosen", "address": {"line1": "1234 Main Street"}}
	}`)
	path := "/v1/orders/" + created.GetID()

	updated := f.order(t, http.MethodPost, path, `{"metadata":{"a":"","c":"3"},"selected_shipping_method":"ship_express"}`)
	assert.Equal(t, map[string]string{"b": "2", "c": "3"}, updated.Metadata)
	assert.Equal(t, "ship_express", updated.SelectedShippingMethod.OrZero())
	assert.Equal(t, int64(5000), models.Int64Value(updated.Amount))
	assert.Len(t, itemsOfType(updated, models.ItemTypeShipping), 1)

	event := f.events.last()
	assert.Equal(t, events.OrderUpdated, event.Type)
	assert.JSONEq(t, `{"amount":4500,"metadata":{"a":"1","b":"2"},"selected_shipping_method":"ship_free"}`, string(event.Data.PreviousAttributes))

	apiErr := f.apiError(t, http.MethodPost, path, `{"selected_shipping_method":"ship_rocket"}`, http.StatusBadRequest)
	assert.Equal(t, "selected_shipping_method", apiErr.Param)

	apiErr = f.apiError(t, http.MethodPost, path, `{"status":"paid"}`, http.StatusBadRequest)
	assert.Equal(t, "status", apiErr.Param)

	apiErr = f.apiError(t, http.MethodPost, path, `{"status":"shipped"}`, http.StatusBadRequest)
	assert.Equal(t, backend.ErrorTypeInvalidRequest, apiErr.Type)

	canceled := f.order(t, http.MethodPost, path, `{"status":"canceled"}`)
	assert.Equal(t, models.OrderStatusCanceled, canceled.GetStatus())
	assert.True(t, canceled.StatusTransitions.OrZero().Canceled.IsSet())

	apiErr = f.apiError(t, http.MethodPost, path, `{"coupon":"SAVE10"}`, http.StatusBadRequest)
	assert.Equal(t, "coupon", apiErr.Param)
}

func TestPayOrder(t *testing.T) {
	f := newFixture(t)

	t.Run("needs a source or customer", func(t *testing.T) {
		order := f.create(t, `{"currency":"usd","items":[{"parent":"sku_mug"}]}`)
		apiErr := f.apiError(t, http.MethodPost, "/v1/orders/"+order.GetID()+"/pay", `{}`, http.StatusBadRequest)
		assert.Equal(t, "source", apiErr.Param)
	})

	t.Run("declined card", func(t *testing.T) {
		order := f.create(t, `{"currency":"usd","items":[{"parent":"sku_mug"}]}`)
		apiErr := f.apiError(t, http.MethodPost, "/v1/orders/"+order.GetID()+"/pay", `{"source":"tok_chargeDeclined"}`, http.StatusPaymentRequired)
		assert.Equal(t, backend.ErrorTypeCard, apiErr.Type)
		assert.Equal(t, "card_declined", apiErr.Code)
		assert.Equal(t, backend.KindCard, backend.Kind(apiErr))

		again := f.order(t, http.MethodGet, "/v1/orders/"+order.GetID(), nil)
		assert.Equal(t, models.OrderStatusCreated, again.GetStatus())
	})

	t.Run("customer without card", func(t *testing.T) {
		order := f.create(t, `{"currency":"usd","customer":"cus_nocard","items":[{"parent":"sku_mug"}]}`)
		apiErr := f.apiError(t, http.MethodPost, "/v1/orders/"+order.GetID()+"/pay", `{}`, http.StatusPaymentRequired)
		assert.Equal(t, "missing", apiErr.Code)
	})

	t.Run("application fee above amount", func(t *testing.T) {
		order := f.create(t, `{"currency":"usd","items":[{"parent":"sku_mug"}]}`)
		apiErr := f.apiError(t, http.MethodPost, "/v1/orders/"+order.GetID()+"/pay", `{"source":"tok_visa","application_fee":1001}`, http.StatusBadRequest)
		assert.Equal(t, "application_fee", apiErr.Param)
	})

	t.Run("customer default source", func(t *testing.T) {
		order := f.create(t, `{"currency":"usd","customer":"cus_card","items":[{"parent":"sku_mug"}]}`)
		paid := f.order(t, http.MethodPost, "/v1/orders/"+order.GetID()+"/pay", `{"application_fee":100,"metadata":{"via":"test"}}`)

		assert.Equal(t, models.OrderStatusPaid, paid.GetStatus())
		assert.Regexp(t, `^ch_`, paid.Charge.OrZero().ID)
		assert.Equal(t, int64(100), paid.ApplicationFee.OrZero())
		assert.Equal(t, "test", paid.Metadata["via"])
		assert.True(t, paid.StatusTransitions.OrZero().Paid.IsSet())

		event := f.events.last()
		assert.Equal(t, events.OrderPaymentSucceeded, event.Type)
		assert.JSONEq(t, `{"status":"created"}`, string(event.Data.PreviousAttributes))

		apiErr := f.apiError(t, http.MethodPost, "/v1/orders/"+order.GetID()+"/pay", `{}`, http.StatusBadRequest)
		assert.Equal(t, "order_status_invalid", apiErr.Code)
	})
}

func TestReturnWholeFulfilledOrder(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, `{
		"currency": "usd",
		"items": [{"parent": "sku_tshirt", "quantity": 2}, {"parent": "sku_mug"}],
		"shipping": {"name": "Jenny Rosen", "address": {"line1": "1234 Main Street"}}
	}`)
	path := "/v1/orders/" + order.GetID()

	apiErr := f.apiError(t, http.MethodPost, path+"/returns", `{}`, http.StatusBadRequest)
	assert.Equal(t, "order_status_invalid", apiErr.Code)

	f.order(t, http.MethodPost, path+"/pay", `{"source":"tok_visa"}`)
	fulfilled := f.order(t, http.MethodPost, path, `{"status":"fulfilled","shipping":{"carrier":"USPS","tracking_number":"9400111"}}`)
	shipping := fulfilled.Shipping.OrZero()
	assert.Equal(t, "USPS", shipping.Carrier.OrZero())
	assert.Equal(t, "9400111", shipping.TrackingNumber.OrZero())

	resp, data := f.request(t, http.MethodPost, path+"/returns", `{"items":""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var ret models.OrderReturn
	require.NoError(t, json.Unmarshal(data, &ret))

	assert.Regexp(t, `^orret_`, models.StringValue(ret.ID))
	assert.Equal(t, int64(4000), models.Int64Value(ret.Amount))
	assert.Equal(t, order.GetID(), ret.Order.OrZero().ID)
	assert.Regexp(t, `^re_`, ret.Refund.OrZero().ID)
	assert.Len(t, ret.Items, 2)

	returned := f.order(t, http.MethodGet, path, nil)
	assert.Equal(t, models.OrderStatusReturned, returned.GetStatus())
	assert.Equal(t, int64(4000), returned.AmountReturned.OrZero())
	assert.True(t, returned.StatusTransitions.OrZero().Returned.IsSet())
	assert.Len(t, returned.Returns.OrZero().Data, 1)

	assert.Equal(t, []events.EventType{
		events.OrderCreated,
		events.OrderPaymentSucceeded,
		events.OrderUpdated,
		events.OrderReturnCreated,
		events.OrderUpdated,
	}, f.events.types())

	apiErr = f.apiError(t, http.MethodPost, path+"/returns", `{}`, http.StatusBadRequest)
	assert.Equal(t, "order_status_invalid", apiErr.Code)
}

func TestPartialReturnsOfPaidOrder(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, `{"currency":"usd","items":[{"parent":"sku_tshirt","quantity":3}]}`)
	path := "/v1/orders/" + order.GetID()
	f.order(t, http.MethodPost, path+"/pay", `{"source":"tok_visa"}`)

	resp, data := f.request(t, http.MethodPost, path+"/returns", `{"items":[{"parent":"sku_tshirt","quantity":1}],"expand":["order"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var ret models.OrderReturn
	require.NoError(t, json.Unmarshal(data, &ret))
	assert.Equal(t, int64(1500), models.Int64Value(ret.Amount))

	var expanded models.Order
	require.NoError(t, ret.Order.OrZero().Decode(&expanded))
	assert.Equal(t, models.OrderStatusPaid, expanded.GetStatus())
	assert.Equal(t, int64(1500), expanded.AmountReturned.OrZero())

	apiErr := f.apiError(t, http.MethodPost, path+"/returns", `{"items":[{"parent":"sku_tshirt","quantity":3}]}`, http.StatusBadRequest)
	assert.Equal(t, "items[0][quantity]", apiErr.Param)

	apiErr = f.apiError(t, http.MethodPost, path+"/returns", `{"items":[{"parent":"sku_mug"}]}`, http.StatusBadRequest)
	assert.Equal(t, "resource_missing", apiErr.Code)

	apiErr = f.apiError(t, http.MethodPost, path+"/returns", `{"items":[{"type":"shipping","parent":"ship_free"}]}`, http.StatusBadRequest)
	assert.Equal(t, "items[0][type]", apiErr.Param)

	resp, data = f.request(t, http.MethodPost, path+"/returns", `{"items":[{"parent":"sku_tshirt"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	canceled := f.order(t, http.MethodGet, path, nil)
	assert.Equal(t, models.OrderStatusCanceled, canceled.GetStatus())
	assert.Equal(t, int64(4500), canceled.AmountReturned.OrZero())
	assert.Len(t, canceled.Returns.OrZero().Data, 2)
}

func listIDs(t *testing.T, f *fixture, query string) ([]string, bool) {
	t.Helper()
	resp, data := f.request(t, http.MethodGet, "/v1/orders"+query, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var list models.OrderList
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, models.ObjectList, list.Object)
	assert.Equal(t, "/v1/orders", list.URL)

	ids := []string{}
	for _, order := range list.Data {
		ids = append(ids, order.GetID())
	}
	return ids, list.HasMore
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)

	// created[4] is the newest.
	var created []string
	for i := 0; i < 5; i++ {
		body := `{"currency":"usd","items":[{"parent":"sku_mug"}]}`
		if i%2 == 0 {
			body = `{"currency":"usd","customer":"cus_card","items":[{"parent":"sku_mug"}]}`
		}
		created = append(created, f.create(t, body).GetID())
	}
	f.order(t, http.MethodPost, "/v1/orders/"+created[1]+"/pay", `{"source":"tok_visa"}`)

	ids, more := listIDs(t, f, "")
	assert.Equal(t, []string{created[4], created[3], created[2], created[1], created[0]}, ids)
	assert.False(t, more)

	ids, more = listIDs(t, f, "?limit=2")
	assert.Equal(t, []string{created[4], created[3]}, ids)
	assert.True(t, more)

	ids, more = listIDs(t, f, "?limit=2&starting_after="+created[3])
	assert.Equal(t, []string{created[2], created[1]}, ids)
	assert.True(t, more)

	ids, more = listIDs(t, f, "?limit=2&starting_after="+created[1])
	assert.Equal(t, []string{created[0]}, ids)
	assert.False(t, more)

	ids, more = listIDs(t, f, "?limit=2&ending_before="+created[1])
	assert.Equal(t, []string{created[3], created[2]}, ids)
	assert.True(t, more)

	ids, _ = listIDs(t, f, "?customer=cus_card")
	assert.Equal(t, []string{created[4], created[2], created[0]}, ids)

	ids, _ = listIDs(t, f, "?status=paid")
	assert.Equal(t, []string{created[1]}, ids)

	ids, _ = listIDs(t, f, "?status=refunded")
	assert.Empty(t, ids)

	apiErr := f.apiError(t, http.MethodGet, "/v1/orders?status=shipped", nil, http.StatusBadRequest)
	assert.Equal(t, backend.ErrorTypeInvalidRequest, apiErr.Type)

	ids, _ = listIDs(t, f, "?ids[]="+created[0]+"&ids[]="+created[3])
	assert.Equal(t, []string{created[3], created[0]}, ids)

	ids, _ = listIDs(t, f, "?status_transitions[paid][gt]=0")
	assert.Equal(t, []string{created[1]}, ids)

	paid := f.order(t, http.MethodGet, "/v1/orders/"+created[1], nil)
	ids, _ = listIDs(t, f, "?created[lte]="+itoa(models.Int64Value(paid.Created)))
	assert.Equal(t, []string{created[1], created[0]}, ids)

	apiErr = f.apiError(t, http.MethodGet, "/v1/orders?limit=101", nil, http.StatusBadRequest)
	assert.Equal(t, backend.ErrorTypeInvalidRequest, apiErr.Type)

	apiErr = f.apiError(t, http.MethodGet, "/v1/orders?starting_after=or_missing", nil, http.StatusBadRequest)
	assert.Equal(t, "starting_after", apiErr.Param)

	apiErr = f.apiError(t, http.MethodGet, "/v1/orders?starting_after=a&ending_before=b", nil, http.StatusBadRequest)
	assert.Contains(t, apiErr.Message, "mutually exclusive")

	resp, data := f.request(t, http.MethodGet, "/v1/orders?customer=cus_card&expand[]=data.customer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var list models.OrderList
	require.NoError(t, json.Unmarshal(data, &list))
	for _, order := range list.Data {
		assert.True(t, order.Customer.OrZero().IsExpanded())
	}
}

func TestListRejectsUnknownParameters(t *testing.T) {
	f := newFixture(t)

	for query, param := range map[string]string{
		"?created[eq]=5":                     "created[eq]",
		"?created[foo]=1":                    "created[foo]",
		"?bogus=1":                           "bogus",
		"?status_transitions[shipped][gt]=1": "status_transitions[shipped][gt]",
		"?status_transitions[paid]x=1":       "status_transitions[paid]x",
		"?limit=2&ids=or_1":                  "ids",
	} {
		t.Run(query, func(t *testing.T) {
			apiErr := f.apiError(t, http.MethodGet, "/v1/orders"+query, nil, http.StatusBadRequest)
			assert.Equal(t, backend.ErrorTypeInvalidRequest, apiErr.Type)
			assert.Equal(t, param, apiErr.Param)
			assert.Equal(t, "Received unknown parameter: "+param, apiErr.Message)
		})
	}

	ids, _ := listIDs(t, f, "?created=5&status_transitions[returned]=1&upstream_ids[]=x&expand[]=data.customer")
	assert.Empty(t, ids)
}

func itoa(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func TestIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	body := `{"currency":"usd","items":[{"parent":"sku_mug"}]}`

	resp1, data1 := f.request(t, http.MethodPost, "/v1/orders", body, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	resp2, data2 := f.request(t, http.MethodPost, "/v1/orders", body, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	assert.Equal(t, data1, data2)
	assert.Equal(t, "true", resp2.Header.Get("Idempotent-Replayed"))
	assert.Len(t, f.events.types(), 1)

	resp3, data3 := f.request(t, http.MethodPost, "/v1/orders", `{"currency":"usd"}`, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusBadRequest, resp3.StatusCode)
	var envelope backend.ErrorResponse
	require.NoError(t, json.Unmarshal(data3, &envelope))
	assert.Equal(t, backend.ErrorTypeIdempotency, envelope.Error.Type)

	ids, _ := listIDs(t, f, "")
	assert.Len(t, ids, 1)
}

func TestIdempotencyCacheExpires(t *testing.T) {
	now := time.Unix(1577836800, 0)
	cache := newIdempotencyCache(func() time.Time { return now }, logrus.New())
	cache.entries["k"] = &cachedResponse{done: true, stored: now.Add(-25 * time.Hour)}
	cache.entries["fresh"] = &cachedResponse{done: true, stored: now.Add(-time.Hour)}
	cache.entries["pending"] = &cachedResponse{stored: now.Add(-25 * time.Hour)}

	cache.evict()
	assert.NotContains(t, cache.entries, "k")
	assert.Contains(t, cache.entries, "fresh")
	assert.Contains(t, cache.entries, "pending")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.create(t, `{"currency":"usd"}`)

	resp, data := f.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","service":"orders-mock"}`, string(data))

	resp, data = f.request(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `orders_mock_http_requests_total{method="POST",route="/v1/orders",status="200"} 1`)
	assert.Contains(t, string(data), `orders_mock_events_published_total{outcome="ok",type="order.created"} 1`)
}
