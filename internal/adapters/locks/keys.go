// Package locks implements providers.SlotLocker for a single process and for
// a fleet of processes sharing Redis.
package locks

import (
	"sort"

	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

// normalizeKeys drops empty and duplicate keys and sorts the rest. Every
// caller acquires in this order, so two Lock calls can never wait on each
// other in a cycle. "appointment:" sorts before "slot:", which gives the
// appointment-then-slots order for free.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func busy(key string) error {
	return apperrors.ErrSlotBusy.WithMessage("timed out waiting for %s", key)
}
