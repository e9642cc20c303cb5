package referral

import "github.com/aayamfest/ambassador/backend/internal/models"

// tierLadder lists thresholds from highest to lowest.
var tierLadder = []struct {
	min  int
	tier models.Tier
}{
	{100, models.TierPlatinum},
	{50, models.TierGold},
	{25, models.TierSilver},
	{10, models.TierBronze},
}

// TierFor derives the reward tier for a signup count.
func TierFor(signupCount int) models.Tier {
	for _, step := range tierLadder {
		if signupCount >= step.min {
			return step.tier
		}
	}
	return models.TierNone
}
