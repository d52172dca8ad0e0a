package main

import (
	"context"
	"flag"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/pkg/models"
)

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	currency := fs.String("currency", "usd", "three-letter currency code")
	customer := fs.String("customer", "", "customer id")
	email := fs.String("email", "", "customer email")
	coupon := fs.String("coupon", "", "coupon code")
	idempotencyKey := fs.String("idempotency-key", "", "idempotency key")
	shipName := fs.String("ship-name", "", "shipping recipient; enables shipping")
	shipLine1 := fs.String("ship-line1", "", "shipping address line 1")
	shipCity := fs.String("ship-city", "", "shipping city")
	shipPostal := fs.String("ship-postal-code", "", "shipping postal code")
	shipCountry := fs.String("ship-country", "", "shipping country (two letters)")
	var items, metadata listFlag
	fs.Var(&items, "item", "sku or sku:quantity, repeatable")
	fs.Var(&metadata, "metadata", "key=value, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := &models.OrderCreateParams{
		Currency: *currency,
		Customer: optionalString(*customer),
		Email:    optionalString(*email),
		Coupon:   optionalString(*coupon),
	}

	var err error
	if params.Items, err = parseCreateItems(items); err != nil {
		return err
	}
	if params.Metadata, err = parseMetadata(metadata); err != nil {
		return err
	}
	if *shipName != "" {
		params.Shipping = &models.OrderCreateShipping{
			Name: *shipName,
			Address: models.OrderCreateAddress{
				Line1:      *shipLine1,
				City:       optionalString(*shipCity),
				PostalCode: optionalString(*shipPostal),
				Country:    optionalString(*shipCountry),
			},
		}
	}

	var opts []backend.RequestOption
	if *idempotencyKey != "" {
		opts = append(opts, backend.WithIdempotencyKey(*idempotencyKey))
	}

	order, err := a.client.Create(ctx, params, opts...)
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *app) get(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	var expand listFlag
	fs.Var(&expand, "expand", "field to expand, repeatable")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	order, err := a.client.Retrieve(ctx, id, &models.OrderRetrieveParams{Params: models.Params{Expand: expand}})
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	status := fs.String("status", "", "new status")
	coupon := fs.String("coupon", "", "coupon code")
	method := fs.String("shipping-method", "", "selected shipping method id")
	carrier := fs.String("carrier", "", "shipping carrier")
	tracking := fs.String("tracking-number", "", "shipping tracking number")
	var metadata listFlag
	fs.Var(&metadata, "metadata", "key=value, repeatable; an empty value unsets the key")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	params := &models.OrderUpdateParams{
		Coupon:                 optionalString(*coupon),
		SelectedShippingMethod: optionalString(*method),
	}
	if params.Status, err = optionalStatus(*status); err != nil {
		return err
	}
	if params.Metadata, err = parseMetadata(metadata); err != nil {
		return err
	}
	if *carrier != "" || *tracking != "" {
		params.Shipping = &models.OrderUpdateShipping{Carrier: *carrier, TrackingNumber: *tracking}
	}

	order, err := a.client.Update(ctx, id, params)
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int64("limit", 10, "page size (1-100)")
	maxOrders := fs.Int("max", 0, "stop after this many orders; 0 lists everything")
	status := fs.String("status", "", "only orders with this status")
	customer := fs.String("customer", "", "only orders of this customer")
	startingAfter := fs.String("starting-after", "", "cursor: list orders older than this id")
	endingBefore := fs.String("ending-before", "", "cursor: list orders newer than this id")
	createdGTE := fs.Int64("created-gte", 0, "only orders created at or after this unix time")
	createdLTE := fs.Int64("created-lte", 0, "only orders created at or before this unix time")
	var ids listFlag
	fs.Var(&ids, "id", "only these order ids, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := &models.OrderListParams{
		Limit:         limit,
		Customer:      optionalString(*customer),
		StartingAfter: optionalString(*startingAfter),
		EndingBefore:  optionalString(*endingBefore),
		IDs:           ids,
	}
	var err error
	if params.Status, err = optionalStatusFilter(*status); err != nil {
		return err
	}
	if *createdGTE != 0 || *createdLTE != 0 {
		params.Created = &models.RangeFilter{}
		if *createdGTE != 0 {
			params.Created.GTE = createdGTE
		}
		if *createdLTE != 0 {
			params.Created.LTE = createdLTE
		}
	}

	orders, err := a.client.List(ctx, params).Collect(ctx, *maxOrders)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return a.print(orders)
}

func (a *app) pay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	source := fs.String("source", "", "payment source")
	customer := fs.String("customer", "", "customer whose default source is charged")
	email := fs.String("email", "", "receipt email")
	fee := fs.Int64("application-fee", -1, "application fee in the smallest currency unit")
	var metadata listFlag
	fs.Var(&metadata, "metadata", "key=value, repeatable")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	params := &models.OrderPayParams{
		Source:   optionalString(*source),
		Customer: optionalString(*customer),
		Email:    optionalString(*email),
	}
	if *fee >= 0 {
		params.ApplicationFee = fee
	}
	if params.Metadata, err = parseMetadata(metadata); err != nil {
		return err
	}

	order, err := a.client.Pay(ctx, id, params)
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *app) returnOrder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("return", flag.ContinueOnError)
	var items listFlag
	fs.Var(&items, "item", "sku or sku:quantity to return, repeatable; omit to return everything")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	selection, err := parseReturnItems(items)
	if err != nil {
		return err
	}

	ret, err := a.client.ReturnOrder(ctx, id, &models.OrderReturnOrderParams{Items: selection})
	if err != nil {
		return err
	}
	return a.print(ret)
}
