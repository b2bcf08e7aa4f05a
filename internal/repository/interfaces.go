package repository

import (
	"context"

	"github.com/avoskres/wishkeeper/internal/models"
)

// StateRepository defines the persistence contract for wishlist state. Load
// returns (nil, nil) when the backend holds nothing yet; the caller decides
// what an empty first run looks like. Save replaces the persisted state with
// the given one, last write wins.
type StateRepository interface {
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, state *models.State) error
	Close() error
}
