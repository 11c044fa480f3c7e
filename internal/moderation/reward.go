package moderation

import (
	"modboard/backend/internal/config"
)

// ComputeReward returns the coin payout for a reporter whose report was
// upheld, by approval rank (1 = first reporter by creation time) and
// credibility score. Pure lookup, no side effects.
//
//	rank 1-3: 5 / 4 / 3 coins for high / mid / low credibility
//	rank 4-5: 3 / 2 / 1
//	rank 6+ or a score outside [0.3, 0.8]: nothing
func ComputeReward(rank int, reporterScore float64) int {
	if rank < 1 || rank > config.RewardMidRank {
		return 0
	}

	var band int
	switch {
	case reporterScore >= 0.7 && reporterScore <= config.CredibilityCeiling:
		band = 0
	case reporterScore >= 0.5 && reporterScore < 0.7:
		band = 1
	case reporterScore >= config.CredibilityFloor && reporterScore < 0.5:
		band = 2
	default:
		return 0
	}

	if rank <= config.RewardTopRank {
		return []int{5, 4, 3}[band]
	}
	return []int{3, 2, 1}[band]
}
