package models

// List is the envelope the API wraps paginated collections in.
type List[T any] struct {
	Object     string `json:"object"`
	Data       []T    `json:"data"`
	HasMore    bool   `json:"has_more"`
	URL        string `json:"url"`
	TotalCount *int64 `json:"total_count,omitzero"`
}

// ListMeta is the pagination state of a List without its data.
type ListMeta struct {
	HasMore    bool
	URL        string
	TotalCount *int64
}

func (l *List[T]) Meta() ListMeta {
	return ListMeta{HasMore: l.HasMore, URL: l.URL, TotalCount: l.TotalCount}
}
