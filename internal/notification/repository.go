package notification

import "context"

// Repository archives terminal dispatch results. Persistence is
// fire-and-forget from the dispatcher's perspective: a Save failure is
// logged by the dispatcher but never retried and never affects the
// result surfaced to the caller.
type Repository interface {
	// Save persists one terminal result.
	Save(ctx context.Context, result *DispatchResult) error
}

// RepositoryFunc adapts a function to the Repository interface.
type RepositoryFunc func(ctx context.Context, result *DispatchResult) error

// Save calls f.
func (f RepositoryFunc) Save(ctx context.Context, result *DispatchResult) error {
	return f(ctx, result)
}

// NopRepository discards every result. Used when no archive backend is
// configured.
type NopRepository struct{}

// Save discards the result.
func (NopRepository) Save(context.Context, *DispatchResult) error { return nil }
