package domain

import "time"

// DecisionStatus enumerates the possible terminal application outcomes.
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "approved"
	DecisionDeclined DecisionStatus = "declined"
)

// Decline reason strings are part of the external contract; downstream
// consumers match on them verbatim.
const (
	ReasonCreditScoreBelowThreshold = "Credit score below threshold"
	ReasonFraudRiskConcerns         = "Fraud risk assessment indicated potential concerns"
	ReasonNegativeCreditHistory     = "Negative items found in credit history"
	ReasonAllChecksPassed           = "All verification checks passed"
)

// Decision is created exactly once per execution by the decision engine and
// is immutable thereafter.
type Decision struct {
	Status    DecisionStatus `json:"status"`
	Reasons   []string       `json:"reasons"`
	NextSteps []string       `json:"next_steps"`
	DecidedAt time.Time      `json:"decided_at"`
}
