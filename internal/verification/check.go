// Package verification defines the contract for the three independent
// onboarding checks and the coordinator that fans them out in parallel.
package verification

import (
	"context"

	"onboard/internal/domain"
)

// Check is one independently invokable verification unit. Implementations
// are stateless given their input and must honor context cancellation; no
// check may read another check's result.
type Check interface {
	Name() domain.CheckName
	Provider() string
	Run(ctx context.Context, customerID string, profile domain.Profile) (domain.VerificationResult, error)
}
