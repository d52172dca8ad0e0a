package mockapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/pkg/models"
)

var carriers = []string{"USPS", "UPS", "FedEx", "DHL"}

// Seed adds n fake customers and n orders to the server. Orders are spread
// over the lifecycle: some stay created, some are canceled, paid, fulfilled
// or returned.
func Seed(ctx context.Context, s *Server, n int, faker *gofakeit.Faker) error {
	if n <= 0 {
		return nil
	}
	if faker == nil {
		faker = gofakeit.New(0)
	}

	skus := s.catalog.SKUs("usd")
	if len(skus) == 0 {
		return fmt.Errorf("catalog has no usd products to seed orders with")
	}

	customers := make([]Customer, n)
	for i := range customers {
		customers[i] = Customer{
			ID:            newID("cus"),
			Email:         faker.Email(),
			Name:          faker.Name(),
			Phone:         faker.Phone(),
			DefaultSource: "tok_visa",
		}
		s.catalog.AddCustomer(customers[i])
	}

	counts := make(map[models.OrderStatus]int)
	for i := 0; i < n; i++ {
		customer := customers[i]
		address := faker.Address()

		params := &models.OrderCreateParams{
			Currency: "usd",
			Customer: models.String(customer.ID),
			Metadata: map[string]string{"seeded": "true"},
			Shipping: &models.OrderCreateShipping{
				Name:  customer.Name,
				Phone: models.String(customer.Phone),
				Address: models.OrderCreateAddress{
					Line1:      address.Street,
					City:       models.String(address.City),
					State:      models.String(address.State),
					PostalCode: models.String(address.Zip),
					Country:    models.String("US"),
				},
			},
		}
		start := faker.Number(0, len(skus)-1)
		for j := range faker.Number(1, min(3, len(skus))) {
			params.Items = append(params.Items, models.OrderCreateItem{
				Parent:   models.String(skus[(start+j)%len(skus)].ID),
				Quantity: models.Int64(int64(faker.Number(1, 3))),
			})
		}
		if faker.Number(0, 4) == 0 {
			params.Coupon = models.String("SAVE10")
		}

		order, err := s.CreateOrder(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to seed order %d: %w", i, err)
		}
		if order, err = s.advance(ctx, order, faker.Number(0, 4), faker); err != nil {
			return fmt.Errorf("failed to seed order %d: %w", i, err)
		}
		counts[order.GetStatus()]++
	}

	s.logger.WithFields(logrus.Fields{
		"customers": n,
		"orders":    n,
		"created":   counts[models.OrderStatusCreated],
		"paid":      counts[models.OrderStatusPaid],
		"fulfilled": counts[models.OrderStatusFulfilled],
		"canceled":  counts[models.OrderStatusCanceled],
		"returned":  counts[models.OrderStatusReturned],
	}).Info("Seeded mock orders")
	return nil
}

// advance walks order through stage steps of the lifecycle.
func (s *Server) advance(ctx context.Context, order *models.Order, stage int, faker *gofakeit.Faker) (*models.Order, error) {
	id := order.GetID()
	var err error

	switch stage {
	case 0:
		return order, nil
	case 1:
		return s.UpdateOrder(ctx, id, &models.OrderUpdateParams{Status: statusPtr(models.OrderStatusCanceled)})
	}

	if order, err = s.PayOrder(ctx, id, &models.OrderPayParams{}); err != nil || stage == 2 {
		return order, err
	}

	order, err = s.UpdateOrder(ctx, id, &models.OrderUpdateParams{
		Status: statusPtr(models.OrderStatusFulfilled),
		Shipping: &models.OrderUpdateShipping{
			Carrier:        faker.RandomString(carriers),
			TrackingNumber: strings.ToUpper(faker.LetterN(2)) + strconv.Itoa(faker.Number(100000000, 999999999)),
		},
	})
	if err != nil || stage == 3 {
		return order, err
	}

	if _, err := s.ReturnOrder(ctx, id, &models.OrderReturnOrderParams{Items: models.ReturnAllItems()}); err != nil {
		return nil, err
	}
	return s.RetrieveOrder(ctx, id)
}

func statusPtr(status models.OrderStatus) *models.OrderStatus { return &status }
