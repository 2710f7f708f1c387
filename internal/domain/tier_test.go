package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	for _, raw := range []string{"free", "tier1", "tier2"} {
		tier, err := ParseTier(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, string(tier))
	}

	_, err := ParseTier("platinum")
	assert.Error(t, err)
	_, err = ParseTier("")
	assert.Error(t, err)
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, Tier2.AtLeast(TierFree))
	assert.True(t, Tier2.AtLeast(Tier1))
	assert.True(t, Tier1.AtLeast(Tier1))
	assert.False(t, TierFree.AtLeast(Tier1))
	assert.False(t, Tier1.AtLeast(Tier2))
}
