package domain

import "time"

// Address is the applicant's mailing address as submitted on the onboarding
// form.
type Address struct {
	Number  string `json:"number"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Profile holds the customer-submitted identity fields. Only the last four
// SSN digits are ever accepted; the full number never enters the system.
type Profile struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	DateOfBirth string  `json:"date_of_birth"`
	Last4SSN    string  `json:"last4_ssn"`
	Address     Address `json:"address"`
}

// Application identifies one onboarding attempt. Immutable once created;
// owned exclusively by the workflow execution that was started with it.
type Application struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Profile    Profile   `json:"profile"`
	CreatedAt  time.Time `json:"created_at"`
}
