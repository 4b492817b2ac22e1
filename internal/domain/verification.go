package domain

import "time"

// CheckName identifies one of the three independent verification checks.
type CheckName string

const (
	CheckCreditScore   CheckName = "credit_score"
	CheckFraudRisk     CheckName = "fraud_risk"
	CheckCreditHistory CheckName = "credit_history"
)

// CheckOrder is the canonical ordering of checks. Results are addressed by
// name everywhere; this ordering exists only so serialized output is stable.
var CheckOrder = []CheckName{CheckCreditScore, CheckFraudRisk, CheckCreditHistory}

// CreditHistoryReport is the structured detail payload of the credit-history
// check.
type CreditHistoryReport struct {
	Bankruptcies      int    `json:"bankruptcies"`
	Collections       int    `json:"collections"`
	Delinquencies     int    `json:"delinquencies"`
	LatePayments      int    `json:"late_payments"`
	AccountsOpened    int    `json:"accounts_opened"`
	Inquiries         int    `json:"inquiries"`
	AverageAccountAge string `json:"average_account_age"`
	Summary           string `json:"summary"`
}

// HasNegativeItems reports whether the history contains items that force a
// decline regardless of scores.
func (r *CreditHistoryReport) HasNegativeItems() bool {
	return r != nil && (r.Bankruptcies > 0 || r.Delinquencies > 0)
}

// VerificationResult is the immutable output of one check invocation. Score
// semantics are provider-specific; the detail fields are populated per check
// and left zero for the others.
type VerificationResult struct {
	Check       CheckName            `json:"check"`
	Provider    string               `json:"provider"`
	Score       int                  `json:"score"`
	Rating      string               `json:"rating,omitempty"`
	Factors     []string             `json:"factors,omitempty"`
	RiskLevel   string               `json:"risk_level,omitempty"`
	DeviceTrust string               `json:"device_trust,omitempty"`
	IPRiskScore int                  `json:"ip_risk_score,omitempty"`
	History     *CreditHistoryReport `json:"history,omitempty"`
	Sentinel    bool                 `json:"sentinel,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
}

// SentinelResult substitutes for a check that errored or timed out. The zero
// score is guaranteed to fail every approval threshold, so a degraded run
// still reaches a well-defined decision.
func SentinelResult(check CheckName, provider string, at time.Time) VerificationResult {
	return VerificationResult{
		Check:       check,
		Provider:    provider,
		Score:       0,
		Sentinel:    true,
		CompletedAt: at,
	}
}

// CheckError records a check that could not produce a real result.
type CheckError struct {
	Check    CheckName `json:"check"`
	Provider string    `json:"provider"`
	Message  string    `json:"message"`
	TimedOut bool      `json:"timed_out"`
}
