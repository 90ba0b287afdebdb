package staff

import (
	"errors"
	"fmt"
)

// Validation errors returned synchronously to the initiating actor. No state
// is mutated when one of these comes back.
var (
	// ErrInvalidState means the requested transition is not legal from the
	// record's current state, e.g. suspending a non-staff user or
	// suspending someone who already has an active suspension.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrAlreadyReviewed means a promotion queue entry was approved or
	// denied a second time.
	ErrAlreadyReviewed = errors.New("promotion entry already reviewed")

	// ErrNotFound means an unknown suspension or queue ID was referenced.
	ErrNotFound = errors.New("record not found")
)

// ExternalCallError wraps a failed platform call (role mutation,
// notification). The owning record is still persisted; the durable store is
// the source of truth and a later reconciliation pass retries the side
// effect.
type ExternalCallError struct {
	Op      string
	GuildID string
	UserID  string
	Err     error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("external call %s failed for user %s in guild %s: %v", e.Op, e.UserID, e.GuildID, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}
