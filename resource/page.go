package resource

// Page is one page of a paginated list.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PageWire is the wire form of a page.
type PageWire[W any] struct {
	Items []W `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PageFromWire converts every item of a wire page with conv.
func PageFromWire[W, T any](w PageWire[W], conv func(W) T) Page[T] {
	return Page[T]{
		Items: MapSlice(w.Items, conv),
		Total: w.Total,
		Page:  w.Page,
		Limit: w.Limit,
	}
}

// HasNext reports whether later pages exist.
func (p Page[T]) HasNext() bool {
	return p.Limit > 0 && p.Page*p.Limit < p.Total
}

// MapSlice converts every element of in with conv. A nil input stays nil.
func MapSlice[W, T any](in []W, conv func(W) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, w := range in {
		out[i] = conv(w)
	}
	return out
}
