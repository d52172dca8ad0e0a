package orders

import (
	"context"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/pkg/models"
)

// Iter walks the orders of a list across pages. Pages are fetched lazily
// with starting_after set to the last order seen, or with ending_before set
// to the first order seen when the listing started from ending_before.
//
//	it := client.List(ctx, &models.OrderListParams{Limit: models.Int64(10)})
//	for it.Next(ctx) {
//		order := it.Order()
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iter struct {
	client   *Client
	params   models.OrderListParams
	opts     []backend.RequestOption
	backward bool

	page    []models.Order
	index   int
	current *models.Order
	meta    models.ListMeta
	fetched bool
	err     error
}

func newIter(c *Client, params *models.OrderListParams, opts []backend.RequestOption) *Iter {
	it := &Iter{client: c, opts: opts}
	if params != nil {
		it.params = *params
	}
	it.backward = it.params.EndingBefore != nil
	it.err = it.params.Validate()
	return it
}

// Next advances to the next order and reports whether there is one.
func (it *Iter) Next(ctx context.Context) bool {
	for {
		if it.err != nil {
			return false
		}
		if it.index < len(it.page) {
			it.current = &it.page[it.index]
			it.index++
			return true
		}
		if it.fetched && (!it.meta.HasMore || len(it.page) == 0) {
			it.current = nil
			return false
		}
		if it.fetched {
			it.advanceCursor()
		}

		list, err := it.client.ListPage(ctx, &it.params, it.opts...)
		if err != nil {
			it.err = err
			it.current = nil
			return false
		}

		it.fetched = true
		it.page = list.Data
		it.index = 0
		it.meta = list.Meta()
	}
}

func (it *Iter) advanceCursor() {
	if it.backward {
		it.params.EndingBefore = models.String(it.page[0].GetID())
		return
	}
	it.params.StartingAfter = models.String(it.page[len(it.page)-1].GetID())
}

// Order returns the order Next moved to.
func (it *Iter) Order() *models.Order { return it.current }

func (it *Iter) Err() error { return it.err }

// Meta returns the pagination state of the last fetched page.
func (it *Iter) Meta() models.ListMeta { return it.meta }

// Collect drains the iterator into a slice. limit <= 0 means no limit.
func (it *Iter) Collect(ctx context.Context, limit int) ([]*models.Order, error) {
	var orders []*models.Order
	for (limit <= 0 || len(orders) < limit) && it.Next(ctx) {
		orders = append(orders, it.Order())
	}
	return orders, it.Err()
}
