// Package capability defines the contracts for the external collaborators
// the workflow suspends on: identity verification and bank-account linking.
// Concrete providers are injected at startup; the core never constructs
// ambient global clients.
package capability

import (
	"context"

	"onboard/internal/domain"
)

//go:generate mockgen -source=capability.go -destination=mocks/mock_capability.go -package=mocks

// IdentityResult is the outcome of one identity verification attempt.
type IdentityResult struct {
	Verified    bool   `json:"verified"`
	ApplicantID string `json:"applicant_id"`
	Detail      string `json:"detail,omitempty"`
}

// IdentityVerifier is the identity-verification capability. One-shot per
// execution: retries are the provider's concern, not the workflow's.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, profile domain.Profile) (IdentityResult, error)
}

// AccountInfo describes one linked bank account.
type AccountInfo struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Mask      string `json:"mask"`
	Type      string `json:"type"`
	Subtype   string `json:"subtype,omitempty"`
}

// BankLinkResult is the outcome of exchanging a link token for account
// access.
type BankLinkResult struct {
	ItemID   string        `json:"item_id"`
	Accounts []AccountInfo `json:"accounts"`
}

// BankLinker is the bank-account-linking capability.
type BankLinker interface {
	CreateLinkToken(ctx context.Context, customerID string) (string, error)
	LinkAccount(ctx context.Context, publicToken string) (BankLinkResult, error)
}
