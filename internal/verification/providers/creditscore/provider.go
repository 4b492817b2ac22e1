// Package creditscore simulates a FICO credit score pull. The score is
// derived deterministically from the last four SSN digits so demo runs and
// tests are reproducible without calling the real bureau API.
package creditscore

import (
	"context"
	"strconv"
	"time"

	"onboard/internal/domain"
	"onboard/internal/verification/providers"
)

const providerName = "FICO"

// Score bounds of the FICO scale.
const (
	minScore = 300
	maxScore = 850
)

var factors = []string{
	"Length of credit history",
	"Payment history",
	"Credit utilization",
	"Recent inquiries",
}

type Provider struct {
	latency time.Duration
}

type Option func(*Provider)

// WithLatency simulates provider round-trip time. Useful for exercising
// timeout behavior.
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

func (p *Provider) Name() domain.CheckName { return domain.CheckCreditScore }

func (p *Provider) Provider() string { return providerName }

func (p *Provider) Run(ctx context.Context, customerID string, profile domain.Profile) (domain.VerificationResult, error) {
	if err := providers.Wait(ctx, p.latency); err != nil {
		return domain.VerificationResult{}, err
	}

	last4 := profile.Last4SSN
	if last4 == "" {
		last4 = "1234"
	}
	n, err := strconv.Atoi(last4)
	if err != nil {
		n = 1234
	}

	score := (n % 600) + minScore
	if score > maxScore {
		score = maxScore
	}

	return domain.VerificationResult{
		Check:       domain.CheckCreditScore,
		Provider:    providerName,
		Score:       score,
		Rating:      rating(score),
		Factors:     append([]string{}, factors...),
		CompletedAt: time.Now(),
	}, nil
}

func rating(score int) string {
	switch {
	case score > 750:
		return "Excellent"
	case score > 700:
		return "Good"
	case score > 650:
		return "Fair"
	case score > 600:
		return "Poor"
	default:
		return "Very Poor"
	}
}
