package migration

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/jogardn/orders-client/pkg/models"
)

// Comparison reports how two sets of orders differ.
type Comparison struct {
	SourceCount     int        `json:"source_count"`
	TargetCount     int        `json:"target_count"`
	Matches         int        `json:"matches"`
	MissingInTarget []string   `json:"missing_in_target"`
	MissingInSource []string   `json:"missing_in_source"`
	Mismatches      []Mismatch `json:"mismatches"`
	SyncPercentage  float64    `json:"sync_percentage"`
}

type Mismatch struct {
	OrderID string `json:"order_id"`
	Field   string `json:"field"`
	Source  any    `json:"source"`
	Target  any    `json:"target"`
}

func (c *Comparison) InSync() bool {
	return len(c.MissingInTarget) == 0 && len(c.MissingInSource) == 0 && len(c.Mismatches) == 0
}

// Compare matches orders by id and checks the fields that matter for
// money and fulfillment. Lists are sorted by order id.
func Compare(source, target []*models.Order) *Comparison {
	sourceByID := index(source)
	targetByID := index(target)

	c := &Comparison{
		SourceCount:     len(sourceByID),
		TargetCount:     len(targetByID),
		MissingInTarget: []string{},
		MissingInSource: []string{},
		Mismatches:      []Mismatch{},
	}

	for _, id := range slices.Sorted(maps.Keys(sourceByID)) {
		t, ok := targetByID[id]
		if !ok {
			c.MissingInTarget = append(c.MissingInTarget, id)
			continue
		}
		mismatches := compareFields(sourceByID[id], t)
		if len(mismatches) == 0 {
			c.Matches++
		}
		c.Mismatches = append(c.Mismatches, mismatches...)
	}
	for _, id := range slices.Sorted(maps.Keys(targetByID)) {
		if _, ok := sourceByID[id]; !ok {
			c.MissingInSource = append(c.MissingInSource, id)
		}
	}

	unique := len(sourceByID) + len(c.MissingInSource)
	if unique == 0 {
		c.SyncPercentage = 100
	} else {
		c.SyncPercentage = float64(c.Matches) / float64(unique) * 100
	}
	return c
}

func index(orders []*models.Order) map[string]*models.Order {
	byID := make(map[string]*models.Order, len(orders))
	for _, order := range orders {
		byID[order.GetID()] = order
	}
	return byID
}

func compareFields(s, t *models.Order) []Mismatch {
	var mismatches []Mismatch
	check := func(field string, sv, tv any) {
		if sv != tv {
			mismatches = append(mismatches, Mismatch{OrderID: s.GetID(), Field: field, Source: sv, Target: tv})
		}
	}

	check("amount", models.Int64Value(s.Amount), models.Int64Value(t.Amount))
	check("amount_returned", s.AmountReturned.OrZero(), t.AmountReturned.OrZero())
	check("currency", models.StringValue(s.Currency), models.StringValue(t.Currency))
	check("customer", s.Customer.OrZero().ID, t.Customer.OrZero().ID)
	check("status", s.GetStatus(), t.GetStatus())
	check("items", len(s.Items), len(t.Items))
	check("metadata", canonical(s.Metadata), canonical(t.Metadata))
	return mismatches
}

// canonical renders metadata comparably; encoding/json sorts map keys.
func canonical(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "{}"
	}
	data, _ := json.Marshal(metadata)
	return string(data)
}
