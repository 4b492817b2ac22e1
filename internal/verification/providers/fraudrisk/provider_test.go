package fraudrisk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/domain"
)

func TestProviderRun(t *testing.T) {
	ctx := context.Background()
	p := New()

	t.Run("score stays within the simulated 70-99 band", func(t *testing.T) {
		for _, customerID := range []string{"a", "b", "c", "cust-42", "another"} {
			result, err := p.Run(ctx, customerID, domain.Profile{})

			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.Score, 70)
			assert.LessOrEqual(t, result.Score, 99)
			assert.GreaterOrEqual(t, result.IPRiskScore, 90)
			assert.LessOrEqual(t, result.IPRiskScore, 99)
		}
	})

	t.Run("same customer always evaluates the same", func(t *testing.T) {
		first, err := p.Run(ctx, "cust-1", domain.Profile{})
		require.NoError(t, err)
		second, err := p.Run(ctx, "cust-1", domain.Profile{})
		require.NoError(t, err)

		assert.Equal(t, first.Score, second.Score)
		assert.Equal(t, first.RiskLevel, second.RiskLevel)
	})

	t.Run("risk level bands", func(t *testing.T) {
		assert.Equal(t, "Low", riskLevel(91))
		assert.Equal(t, "Medium", riskLevel(90))
		assert.Equal(t, "Medium", riskLevel(71))
		assert.Equal(t, "High", riskLevel(70))
	})
}
