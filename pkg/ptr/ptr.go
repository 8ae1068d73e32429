package ptr

// New returns a pointer to v.
func New[T any](v T) *T { return &v }

// Or returns *p, or fallback when p is nil. Handy for applying partial updates.
func Or[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
