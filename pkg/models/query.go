package models

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// QueryEncoder is implemented by params sent on the query string of GET
// requests.
type QueryEncoder interface {
	AppendTo(values url.Values)
}

func (p *Params) AppendTo(values url.Values) {
	for _, field := range p.Expand {
		values.Add("expand[]", field)
	}
}

func (p *OrderRetrieveParams) AppendTo(values url.Values) {
	p.Params.AppendTo(values)
}

func (p *OrderListParams) AppendTo(values url.Values) {
	p.Created.AppendTo(values, "created")
	setString(values, "customer", p.Customer)
	setString(values, "ending_before", p.EndingBefore)
	for _, id := range p.IDs {
		values.Add("ids[]", id)
	}
	if p.Limit != nil {
		values.Set("limit", strconv.FormatInt(*p.Limit, 10))
	}
	setString(values, "starting_after", p.StartingAfter)
	if p.Status != nil {
		values.Set("status", string(*p.Status))
	}
	p.StatusTransitions.AppendTo(values, "status_transitions")
	for _, id := range p.UpstreamIDs {
		values.Add("upstream_ids[]", id)
	}
	p.Params.AppendTo(values)
}

func setString(values url.Values, key string, v *string) {
	if v != nil {
		values.Set(key, *v)
	}
}

func optString(values url.Values, key string) *string {
	if _, ok := values[key]; !ok {
		return nil
	}
	return String(values.Get(key))
}

// UnknownParamError reports a query key the list endpoint does not accept.
type UnknownParamError struct {
	Key string
}

func (e *UnknownParamError) Error() string {
	return "Received unknown parameter: " + e.Key
}

func (e *UnknownParamError) Unwrap() error { return ErrInvalidParams }

var (
	listKeys = map[string]bool{
		"customer": true, "ending_before": true, "starting_after": true, "limit": true,
		"status": true, "ids[]": true, "upstream_ids[]": true, "expand[]": true,
	}
	rangeOps    = map[string]bool{"gt": true, "gte": true, "lt": true, "lte": true}
	transitions = map[string]bool{"canceled": true, "fulfilled": true, "paid": true, "returned": true}
)

// knownListKey accepts the keys AppendTo writes for OrderListParams.
func knownListKey(key string) bool {
	if listKeys[key] {
		return true
	}
	if rest, ok := strings.CutPrefix(key, "created"); ok {
		return rangeSuffix(rest)
	}
	if rest, ok := strings.CutPrefix(key, "status_transitions["); ok {
		status, rest, ok := strings.Cut(rest, "]")
		return ok && transitions[status] && rangeSuffix(rest)
	}
	return false
}

// rangeSuffix accepts "" (exact value) or "[op]".
func rangeSuffix(s string) bool {
	if s == "" {
		return true
	}
	op, ok := strings.CutPrefix(s, "[")
	if !ok {
		return false
	}
	op, ok = strings.CutSuffix(op, "]")
	return ok && rangeOps[op]
}

// ParseOrderListParams decodes a list query written by AppendTo and validates
// the result. Keys AppendTo never writes are rejected with an
// *UnknownParamError.
func ParseOrderListParams(values url.Values) (*OrderListParams, error) {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if !knownListKey(key) {
			return nil, &UnknownParamError{Key: key}
		}
	}

	p := &OrderListParams{
		Customer:      optString(values, "customer"),
		EndingBefore:  optString(values, "ending_before"),
		StartingAfter: optString(values, "starting_after"),
		IDs:           values["ids[]"],
		UpstreamIDs:   values["upstream_ids[]"],
		Params:        Params{Expand: values["expand[]"]},
	}

	var err error
	if p.Created, err = ParseRangeFilter(values, "created"); err != nil {
		return nil, err
	}
	if p.StatusTransitions, err = ParseStatusTransitionsFilter(values, "status_transitions"); err != nil {
		return nil, err
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: limit must be an integer", ErrInvalidParams)
		}
		p.Limit = &limit
	}
	if raw := values.Get("status"); raw != "" {
		status := OrderStatus(raw)
		p.Status = &status
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
