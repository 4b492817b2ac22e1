package simulated

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"onboard/internal/capability"
)

// BankLinker simulates the link-token / public-token exchange of a bank
// aggregation provider's sandbox.
type BankLinker struct{}

func NewBankLinker() *BankLinker {
	return &BankLinker{}
}

func (b *BankLinker) CreateLinkToken(ctx context.Context, customerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "link-sandbox-" + uuid.NewString(), nil
}

func (b *BankLinker) LinkAccount(ctx context.Context, publicToken string) (capability.BankLinkResult, error) {
	if err := ctx.Err(); err != nil {
		return capability.BankLinkResult{}, err
	}
	if strings.TrimSpace(publicToken) == "" {
		return capability.BankLinkResult{}, errors.New("public token is required")
	}

	return capability.BankLinkResult{
		ItemID: "item_" + uuid.NewString(),
		Accounts: []capability.AccountInfo{
			{
				AccountID: "acc_" + uuid.NewString(),
				Name:      "Plaid Checking",
				Mask:      "0000",
				Type:      "depository",
				Subtype:   "checking",
			},
		},
	}, nil
}
