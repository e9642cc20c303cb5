package referral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aayamfest/ambassador/backend/internal/models"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		count int
		want  models.Tier
	}{
		{0, models.TierNone},
		{9, models.TierNone},
		{10, models.TierBronze},
		{24, models.TierBronze},
		{25, models.TierSilver},
		{49, models.TierSilver},
		{50, models.TierGold},
		{99, models.TierGold},
		{100, models.TierPlatinum},
		{1000, models.TierPlatinum},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TierFor(c.count), "TierFor(%d)", c.count)
	}
}

func TestTierFor_Monotone(t *testing.T) {
	rank := map[models.Tier]int{
		models.TierNone: 0, models.TierBronze: 1, models.TierSilver: 2, models.TierGold: 3, models.TierPlatinum: 4,
	}
	prev := rank[TierFor(0)]
	for n := 1; n <= 200; n++ {
		cur := rank[TierFor(n)]
		require.GreaterOrEqual(t, cur, prev, "tier decreased at %d", n)
		prev = cur
	}
}

func TestNewReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := newReferralCode()
		require.NoError(t, err)
		assert.Regexp(t, `^AAYAM[A-Z0-9]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AAYAMAB12CD", NormalizeCode("  aayamab12cd "))
}
