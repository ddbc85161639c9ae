package ledger

import (
	"context"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Store is the persistence collaborator behind the ledger.  The ledger
// calls Load once at construction and Save/Remove inside every mutating
// operation while holding its write lock; a returned error aborts the
// operation and leaves the in-memory state untouched.
type Store interface {
	// Load returns every persisted reservation.
	Load(ctx context.Context) ([]model.Reservation, error)
	// Save inserts or replaces the given reservations by id and raises
	// the issued-id mark to the largest id saved.
	Save(ctx context.Context, reservations []model.Reservation) error
	// Remove deletes the reservations with the given ids.  Unknown ids
	// are ignored.
	Remove(ctx context.Context, ids []uint64) error
	// LastIssuedID returns the largest id ever saved, including ids whose
	// reservations have since been removed.  Zero when nothing was saved.
	LastIssuedID(ctx context.Context) (uint64, error)
}
