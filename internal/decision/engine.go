// Package decision holds the pure approval rules for onboarding
// applications. No I/O, no side effects: the engine receives the three
// verification results and returns a decision, which keeps the rules
// centralized and testable.
package decision

import (
	"time"

	"onboard/internal/domain"
)

// Approval thresholds. Scores are provider-scaled: credit scores run
// 300-850, fraud scores 1-100 where higher means lower risk.
const (
	CreditScoreThreshold = 650
	FraudScoreThreshold  = 70
)

var (
	approvedNextSteps = []string{
		"Account setup will be completed within 24 hours",
		"Check your email for login details",
	}
	declinedNextSteps = []string{
		"You can apply again in 30 days",
		"Contact customer support for more information",
	}
)

// Decide maps the aggregated verification results to an approve/decline
// decision. It is total for well-formed input: missing entries behave like
// sentinel results because the zero score fails every threshold.
//
// Rule chain (order matters for the reasons list):
//  1. credit score must reach CreditScoreThreshold
//  2. fraud score must reach FraudScoreThreshold
//  3. any bankruptcy or delinquency in the credit history declines the
//     application even when both scores pass
func Decide(results map[domain.CheckName]domain.VerificationResult, now time.Time) domain.Decision {
	creditScore := results[domain.CheckCreditScore]
	fraudRisk := results[domain.CheckFraudRisk]
	creditHistory := results[domain.CheckCreditHistory]

	approved := creditScore.Score >= CreditScoreThreshold && fraudRisk.Score >= FraudScoreThreshold

	var reasons []string
	if creditScore.Score < CreditScoreThreshold {
		reasons = append(reasons, domain.ReasonCreditScoreBelowThreshold)
	}
	if fraudRisk.Score < FraudScoreThreshold {
		reasons = append(reasons, domain.ReasonFraudRiskConcerns)
	}
	// History negatives always win: this can flip an otherwise-approved
	// application, in which case the history reason is the only one.
	if creditHistory.History.HasNegativeItems() {
		approved = false
		reasons = append(reasons, domain.ReasonNegativeCreditHistory)
	}

	if approved {
		return domain.Decision{
			Status:    domain.DecisionApproved,
			Reasons:   []string{domain.ReasonAllChecksPassed},
			NextSteps: append([]string{}, approvedNextSteps...),
			DecidedAt: now,
		}
	}
	return domain.Decision{
		Status:    domain.DecisionDeclined,
		Reasons:   reasons,
		NextSteps: append([]string{}, declinedNextSteps...),
		DecidedAt: now,
	}
}
