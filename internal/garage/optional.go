package garage

import "context"

// Optional holds secondary data a view can live without. An absent value is
// a defined state that renders as an empty placeholder; it is never an error
// for the caller.
type Optional[T any] struct {
	value  T
	loaded bool
}

// Loaded wraps a present value.
func Loaded[T any](v T) Optional[T] {
	return Optional[T]{value: v, loaded: true}
}

// Absent returns the empty state.
func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.loaded
}

// Present reports whether a value was loaded.
func (o Optional[T]) Present() bool {
	return o.loaded
}

// LoadOptional runs fetch and degrades any failure to Absent. The failure is
// logged at warn level and goes no further.
func LoadOptional[T any](ctx context.Context, logger Logger, what string, fetch func(context.Context) (*T, error)) Optional[T] {
	v, err := fetch(ctx)
	if err != nil {
		logger.Warn("optional data unavailable", "what", what, "error", err)
		return Absent[T]()
	}
	if v == nil {
		return Absent[T]()
	}
	return Loaded(*v)
}
