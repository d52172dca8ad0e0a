package orders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/pkg/models"
)

var ErrMissingID = fmt.Errorf("%w: order id is required", models.ErrInvalidParams)

const defaultRetrieveConcurrency = 4

// Caller executes one API request. *backend.Backend implements it.
type Caller interface {
	Call(ctx context.Context, method, path string, params backend.Validator, out any, opts ...backend.RequestOption) error
}

// Client binds the order operations to their paths and shapes.
type Client struct {
	backend Caller
	logger  *logrus.Logger
}

func NewClient(b Caller, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{backend: b, logger: logger}
}

func orderPath(id string, suffix ...string) string {
	p := "/v1/orders/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// Create creates a new order object.
func (c *Client) Create(ctx context.Context, params *models.OrderCreateParams, opts ...backend.RequestOption) (*models.Order, error) {
	if params == nil {
		params = &models.OrderCreateParams{}
	}

	var order models.Order
	if err := c.backend.Call(ctx, http.MethodPost, "/v1/orders", params, &order, opts...); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": order.GetID(),
		"amount":   order.Money().String(),
	}).Info("Order created")

	return &order, nil
}

// Retrieve fetches the order with the given id. params may be nil.
func (c *Client) Retrieve(ctx context.Context, id string, params *models.OrderRetrieveParams, opts ...backend.RequestOption) (*models.Order, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if params == nil {
		params = &models.OrderRetrieveParams{}
	}

	var order models.Order
	if err := c.backend.Call(ctx, http.MethodGet, orderPath(id), params, &order, opts...); err != nil {
		return nil, fmt.Errorf("failed to retrieve order %s: %w", id, err)
	}

	c.logger.WithField("order_id", id).Debug("Order retrieved")
	return &order, nil
}

// Update changes the given fields of an order. Fields left nil in params are
// not sent.
func (c *Client) Update(ctx context.Context, id string, params *models.OrderUpdateParams, opts ...backend.RequestOption) (*models.Order, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if params == nil {
		params = &models.OrderUpdateParams{}
	}

	var order models.Order
	if err := c.backend.Call(ctx, http.MethodPost, orderPath(id), params, &order, opts...); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": id,
		"status":   order.GetStatus(),
	}).Info("Order updated")

	return &order, nil
}

// List returns an iterator over the orders matching params. params may be
// nil. Invalid params are reported by the iterator before any request is
// made.
func (c *Client) List(ctx context.Context, params *models.OrderListParams, opts ...backend.RequestOption) *Iter {
	return newIter(c, params, opts)
}

// ListPage fetches a single page of orders.
func (c *Client) ListPage(ctx context.Context, params *models.OrderListParams, opts ...backend.RequestOption) (*models.OrderList, error) {
	if params == nil {
		params = &models.OrderListParams{}
	}

	var list models.OrderList
	if err := c.backend.Call(ctx, http.MethodGet, "/v1/orders", params, &list, opts...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"count":    len(list.Data),
		"has_more": list.HasMore,
	}).Debug("Order page fetched")

	return &list, nil
}

// Pay pays an order with a source or the default source of a customer.
func (c *Client) Pay(ctx context.Context, id string, params *models.OrderPayParams, opts ...backend.RequestOption) (*models.Order, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if params == nil {
		params = &models.OrderPayParams{}
	}

	var order models.Order
	if err := c.backend.Call(ctx, http.MethodPost, orderPath(id, "pay"), params, &order, opts...); err != nil {
		return nil, fmt.Errorf("failed to pay order %s: %w", id, err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": id,
		"status":   order.GetStatus(),
		"amount":   order.Money().String(),
	}).Info("Order paid")

	return &order, nil
}

// ReturnOrder returns all or part of an order. Leaving params.Items unset
// returns every item.
func (c *Client) ReturnOrder(ctx context.Context, id string, params *models.OrderReturnOrderParams, opts ...backend.RequestOption) (*models.OrderReturn, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if params == nil {
		params = &models.OrderReturnOrderParams{}
	}

	var ret models.OrderReturn
	if err := c.backend.Call(ctx, http.MethodPost, orderPath(id, "returns"), params, &ret, opts...); err != nil {
		return nil, fmt.Errorf("failed to return order %s: %w", id, err)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":  id,
		"return_id": models.StringValue(ret.ID),
		"amount":    models.Int64Value(ret.Amount),
	}).Info("Order returned")

	return &ret, nil
}

// RetrieveMany fetches several orders concurrently. The result has the same
// order as ids; the first failure cancels the remaining requests.
func (c *Client) RetrieveMany(ctx context.Context, ids []string, params *models.OrderRetrieveParams, opts ...backend.RequestOption) ([]*models.Order, error) {
	for _, id := range ids {
		if id == "" {
			return nil, ErrMissingID
		}
	}

	results := make([]*models.Order, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultRetrieveConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			order, err := c.Retrieve(ctx, id, params, opts...)
			if err != nil {
				return err
			}
			results[i] = order
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
