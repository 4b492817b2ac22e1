package creditscore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/domain"
)

func TestProviderRun(t *testing.T) {
	ctx := context.Background()
	p := New()

	t.Run("derives score from last four SSN digits", func(t *testing.T) {
		result, err := p.Run(ctx, "cust-1", domain.Profile{Last4SSN: "0350"})

		require.NoError(t, err)
		assert.Equal(t, domain.CheckCreditScore, result.Check)
		assert.Equal(t, "FICO", result.Provider)
		assert.Equal(t, 650, result.Score) // (350 % 600) + 300
		assert.NotEmpty(t, result.Factors)
		assert.False(t, result.CompletedAt.IsZero())
	})

	t.Run("caps score at 850", func(t *testing.T) {
		result, err := p.Run(ctx, "cust-1", domain.Profile{Last4SSN: "0599"})

		require.NoError(t, err)
		assert.Equal(t, 850, result.Score) // 599 + 300 = 899, capped
		assert.Equal(t, "Excellent", result.Rating)
	})

	t.Run("is deterministic per input", func(t *testing.T) {
		first, err := p.Run(ctx, "cust-1", domain.Profile{Last4SSN: "4321"})
		require.NoError(t, err)
		second, err := p.Run(ctx, "cust-1", domain.Profile{Last4SSN: "4321"})
		require.NoError(t, err)

		assert.Equal(t, first.Score, second.Score)
	})

	t.Run("honors cancellation during simulated latency", func(t *testing.T) {
		slow := New(WithLatency(time.Second))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := slow.Run(cancelled, "cust-1", domain.Profile{Last4SSN: "1234"})
		assert.Error(t, err)
	})
}

func TestRating(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{850, "Excellent"},
		{751, "Excellent"},
		{750, "Good"},
		{701, "Good"},
		{700, "Fair"},
		{651, "Fair"},
		{650, "Poor"},
		{601, "Poor"},
		{600, "Very Poor"},
		{300, "Very Poor"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rating(tc.score), "score %d", tc.score)
	}
}
