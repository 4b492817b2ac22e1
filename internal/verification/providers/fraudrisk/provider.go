// Package fraudrisk simulates a Kount fraud risk evaluation. Higher scores
// mean lower risk. The score is derived from the customer identifier so the
// same applicant always evaluates the same way.
package fraudrisk

import (
	"context"
	"time"

	"onboard/internal/domain"
	"onboard/internal/verification/providers"
)

const providerName = "Kount"

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

func (p *Provider) Name() domain.CheckName { return domain.CheckFraudRisk }

func (p *Provider) Provider() string { return providerName }

func (p *Provider) Run(ctx context.Context, customerID string, _ domain.Profile) (domain.VerificationResult, error) {
	if err := providers.Wait(ctx, p.latency); err != nil {
		return domain.VerificationResult{}, err
	}

	seed := providers.Seed(customerID)
	score := 70 + int(seed%30)       // 70-99
	ipRisk := 90 + int((seed>>8)%10) // 90-99

	return domain.VerificationResult{
		Check:       domain.CheckFraudRisk,
		Provider:    providerName,
		Score:       score,
		RiskLevel:   riskLevel(score),
		DeviceTrust: "Trusted",
		IPRiskScore: ipRisk,
		CompletedAt: time.Now(),
	}, nil
}

func riskLevel(score int) string {
	switch {
	case score > 90:
		return "Low"
	case score > 70:
		return "Medium"
	default:
		return "High"
	}
}
