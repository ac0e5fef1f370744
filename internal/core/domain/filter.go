package domain

// Filter is a portable, Mongo-style filter expression: field names map to
// primitive values, arrays, or operator objects ({"$gte": 10}), and the
// logical keys $and/$or/$not combine sub-expressions. Translation into the
// vector store's native format happens in the store adapter.
type Filter map[string]any

func (f Filter) IsEmpty() bool { return len(f) == 0 }

// Clone returns a shallow copy so callers can modify a decision's filter
// without mutating the original.
func (f Filter) Clone() Filter {
	if f == nil {
		return nil
	}
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
