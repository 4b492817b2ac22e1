// Package providers holds helpers shared by the simulated verification
// providers.
package providers

import (
	"context"
	"hash/fnv"
	"time"
)

// Wait simulates provider round-trip latency while honoring cancellation.
// A non-positive duration only checks for prior cancellation.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Seed derives a stable pseudo-random seed from a customer identifier so
// simulated results are reproducible per customer.
func Seed(customerID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID))
	return h.Sum32()
}
