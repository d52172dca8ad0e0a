package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jogardn/orders-client/pkg/models"
)

// listFlag collects every occurrence of a repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// parseMetadata turns key=value pairs into a metadata map. An empty value
// unsets the key on update.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("metadata %q must look like key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// parseSKUQuantity reads sku_123 or sku_123:2.
func parseSKUQuantity(v string) (string, *int64, error) {
	sku, rawQty, hasQty := strings.Cut(v, ":")
	if sku == "" {
		return "", nil, fmt.Errorf("item %q has no sku", v)
	}
	if !hasQty {
		return sku, nil, nil
	}
	qty, err := strconv.ParseInt(rawQty, 10, 64)
	if err != nil || qty < 1 {
		return "", nil, fmt.Errorf("item %q has an invalid quantity", v)
	}
	return sku, &qty, nil
}

func parseCreateItems(values []string) ([]models.OrderCreateItem, error) {
	items := make([]models.OrderCreateItem, 0, len(values))
	for _, v := range values {
		sku, qty, err := parseSKUQuantity(v)
		if err != nil {
			return nil, err
		}
		typ := models.ItemTypeSKU
		items = append(items, models.OrderCreateItem{Type: &typ, Parent: models.String(sku), Quantity: qty})
	}
	return items, nil
}

func parseReturnItems(values []string) (models.ReturnItems, error) {
	if len(values) == 0 {
		return models.ReturnAllItems(), nil
	}
	items := make([]models.OrderReturnItem, 0, len(values))
	for _, v := range values {
		sku, qty, err := parseSKUQuantity(v)
		if err != nil {
			return models.ReturnItems{}, err
		}
		typ := models.ItemTypeSKU
		items = append(items, models.OrderReturnItem{Type: &typ, Parent: models.String(sku), Quantity: qty})
	}
	return models.ReturnItemsOf(items...), nil
}

// optionalString returns nil for an unset flag so it is not sent.
func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optionalStatus(v string) (*models.OrderStatus, error) {
	if v == "" {
		return nil, nil
	}
	status := models.OrderStatus(v)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, v)
	}
	return &status, nil
}

func optionalStatusFilter(v string) (*models.OrderStatus, error) {
	if v == "" {
		return nil, nil
	}
	status := models.OrderStatus(v)
	if !status.ValidFilter() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, v)
	}
	return &status, nil
}
