package queue

import (
	"errors"
	"fmt"

	"github.com/paulsmith/jjq/internal/lock"
	"github.com/paulsmith/jjq/internal/meta"
)

// ErrLockBusy is returned when the id lock is held by another process.
// Callers surface it with its own exit code so scripts can back off and
// retry.
var ErrLockBusy = errors.New("sequence-ID lock is held by another process")

// Allocator serializes read-increment-write of the last_id counter under
// the id lock.
type Allocator struct {
	Locks *lock.Manager
	Store *meta.Store
}

// Next allocates the next sequence ID. IDs strictly increase across the
// repository's history; the allocator does not roll back on caller failure,
// so a caller crashing between allocation and publish leaves a gap.
func (a *Allocator) Next() (int, error) {
	guard, err := a.Locks.Acquire(lock.ID)
	if err != nil {
		return 0, err
	}
	if guard == nil {
		return 0, ErrLockBusy
	}
	defer guard.Release()

	last, err := a.Store.LastID()
	if err != nil {
		return 0, err
	}
	if last >= meta.MaxID {
		return 0, fmt.Errorf("%w (last_id = %d)", meta.ErrExhausted, last)
	}
	next := last + 1
	if err := a.Store.SetLastID(next); err != nil {
		return 0, err
	}
	return next, nil
}
