package trusts

import (
	"context"

	"github.com/mkarpenko/keywarden/internal/watchdog/models"
)

// Repository is the narrow store contract the engine depends on. Every
// happens-once mutation goes through ConditionalUpdate, the compare-and-swap
// primitive that makes overlapping watchdog instances safe.
type Repository interface {
	// ListByStatus returns all records currently in the given state.
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Trust, error)

	// ConditionalUpdate applies set to the record only while every where
	// field still holds its expected value. Returns true iff exactly one row
	// changed.
	ConditionalUpdate(ctx context.Context, id string, where, set map[string]any) (bool, error)

	// Delete removes a record irrevocably. Deleting an id that no longer
	// exists is a no-op, not an error.
	Delete(ctx context.Context, id string) error

	// DeleteIdentity removes the owner's authentication identity.
	// Best-effort: callers swallow failures.
	DeleteIdentity(ctx context.Context, ownerID string) error
}
