package session

import (
	"context"
	"errors"
)

// ErrLeaseHeld is returned when another owner holds an unexpired lease.
var ErrLeaseHeld = errors.New("lease held by another owner")

// Locker hands out named leases so that only one process runs a job at a time.
type Locker interface {
	// Acquire takes the lease for owner. It succeeds if the lease is free,
	// expired, or already held by owner.
	Acquire(ctx context.Context, name, owner string) error

	// Release frees the lease if owner holds it.
	Release(ctx context.Context, name, owner string) error
}
