// Package simulated provides in-process stand-ins for the external identity
// and bank-link providers, faithful to the sandbox behavior of the real
// integrations.
package simulated

import (
	"context"

	"github.com/google/uuid"

	"onboard/internal/capability"
	"onboard/internal/domain"
)

// IdentityVerifier simulates an applicant-creation + document-check flow. A
// profile with the fields the real provider requires verifies successfully;
// anything else comes back unverified with a detail message.
type IdentityVerifier struct{}

func NewIdentityVerifier() *IdentityVerifier {
	return &IdentityVerifier{}
}

func (v *IdentityVerifier) VerifyIdentity(ctx context.Context, profile domain.Profile) (capability.IdentityResult, error) {
	if err := ctx.Err(); err != nil {
		return capability.IdentityResult{}, err
	}

	if profile.FirstName == "" || profile.LastName == "" || profile.DateOfBirth == "" {
		return capability.IdentityResult{
			Verified: false,
			Detail:   "applicant profile incomplete",
		}, nil
	}

	return capability.IdentityResult{
		Verified:    true,
		ApplicantID: "apl_" + uuid.NewString(),
		Detail:      "clear",
	}, nil
}
