package ports

import (
	"context"

	"github.com/iamshnoo/soc-bias/domain/weat"
)

// TestLoader reads association tests from a data directory
type TestLoader interface {
	// Discover lists the available test ids in natural-sort order
	Discover(ctx context.Context) ([]string, error)

	// Load reads one test; core.ErrTestNotFound when it does not exist
	Load(ctx context.Context, id string) (*weat.Test, error)
}
