// Package flock guards files that several crucible processes may write at once,
// such as the per-toolchain environment snapshots.
//
// Locks are advisory and taken on a sidecar "<path>.lock" file:
//
//	l, err := flock.Acquire(ctx, snapshotPath, constants.LockTimeout)
//	if err != nil {
//	    return err
//	}
//	defer l.Release()
package flock
