package types

// Page is the response envelope of every list endpoint.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Pages int64 `json:"pages"`
}

func TotalPages(total int64, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func NewPage[T any](items []T, total int64, page int64, limit int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: TotalPages(total, limit),
	}
}
