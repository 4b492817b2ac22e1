// Package credithistory simulates an Experian credit history report. Counts
// are derived from the customer identifier; negative items (bankruptcies,
// delinquencies) are never fabricated for a simulated applicant.
package credithistory

import (
	"context"
	"strconv"
	"time"

	"onboard/internal/domain"
	"onboard/internal/verification/providers"
)

const providerName = "Experian"

type Provider struct {
	latency time.Duration
}

type Option func(*Provider)

// WithLatency simulates provider round-trip time.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

func New(opts ...Option) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() domain.CheckName { return domain.CheckCreditHistory }

func (p *Provider) Provider() string { return providerName }

func (p *Provider) Run(ctx context.Context, customerID string, _ domain.Profile) (domain.VerificationResult, error) {
	if err := providers.Wait(ctx, p.latency); err != nil {
		return domain.VerificationResult{}, err
	}

	seed := providers.Seed(customerID)
	report := &domain.CreditHistoryReport{
		Bankruptcies:      0,
		Collections:       0,
		Delinquencies:     0,
		LatePayments:      int(seed % 3),
		AccountsOpened:    int((seed>>4)%5) + 2,
		Inquiries:         int((seed >> 8) % 3),
		AverageAccountAge: strconv.Itoa(int((seed>>12)%60)+24) + " months",
		Summary:           "No negative items found in credit history",
	}

	return domain.VerificationResult{
		Check:       domain.CheckCreditHistory,
		Provider:    providerName,
		History:     report,
		CompletedAt: time.Now(),
	}, nil
}
