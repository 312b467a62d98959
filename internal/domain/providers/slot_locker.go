package providers

import (
	"context"
)

// UnlockFunc releases the locks taken by one SlotLocker.Lock call
type UnlockFunc func()

// SlotLocker provides mutual exclusion over slot and appointment keys.
// Lock deduplicates keys and acquires them in sorted order. It never waits
// past its configured bound; on timeout it fails with apperrors.ErrSlotBusy.
type SlotLocker interface {
	Lock(ctx context.Context, keys ...string) (UnlockFunc, error)
}

// AppointmentLockKey is the lock key for an appointment record
func AppointmentLockKey(appointmentID string) string {
	return "appointment:" + appointmentID
}
