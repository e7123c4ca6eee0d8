package cascade

import "context"

// Store receives every finished result of a run, synchronously and in traversal order.
// A Store that also implements SetLogger(Logger) gets the crawler's logger.
type Store interface {
	Store(ctx context.Context, result *Result) error
}
