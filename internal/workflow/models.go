package workflow

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"onboard/internal/domain"
	dErrors "onboard/pkg/domain-errors"
)

// StartRequest is the payload that opens an onboarding execution.
type StartRequest struct {
	CustomerID    string         `json:"customer_id"`
	Profile       domain.Profile `json:"profile"`
	BankLinkToken string         `json:"bank_link_token,omitempty"`
}

// Validate normalizes and checks the request. Validation failures carry
// CodeValidation so they map to 400 at the edge.
func (r *StartRequest) Validate() error {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.Profile.FirstName = strings.TrimSpace(r.Profile.FirstName)
	r.Profile.LastName = strings.TrimSpace(r.Profile.LastName)
	r.Profile.Email = strings.TrimSpace(r.Profile.Email)
	r.Profile.Last4SSN = strings.TrimSpace(r.Profile.Last4SSN)

	switch {
	case r.CustomerID == "":
		return dErrors.New(dErrors.CodeValidation, "customer_id is required")
	case r.Profile.FirstName == "" || r.Profile.LastName == "":
		return dErrors.New(dErrors.CodeValidation, "first_name and last_name are required")
	case r.Profile.Email != "" && !govalidator.IsEmail(r.Profile.Email):
		return dErrors.New(dErrors.CodeValidation, "email is not a valid address")
	case len(r.Profile.Last4SSN) != 4 || !govalidator.IsNumeric(r.Profile.Last4SSN):
		return dErrors.New(dErrors.CodeValidation, "last4_ssn must be exactly four digits")
	case r.Profile.DateOfBirth != "" && !govalidator.IsTime(r.Profile.DateOfBirth, "2006-01-02"):
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	return nil
}

// StartResult identifies the execution that was launched.
type StartResult struct {
	ExecutionID   string                 `json:"execution_id"`
	ApplicationID string                 `json:"application_id"`
	Status        domain.ExecutionStatus `json:"status"`
	StartedAt     time.Time              `json:"started_at"`
}
