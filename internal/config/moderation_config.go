package config

import (
	"time"

	"modboard/backend/internal/models"
)

const (
	// Credibility
	CredibilityFloor    = 0.3
	CredibilityCeiling  = 0.8
	NeutralRatio        = 0.5
	CredibilityCacheTTL = 10 * time.Minute

	// Restriction
	ActiveWindowMonths  = 6
	RestrictionCacheTTL = 5 * time.Minute

	// Penalty
	OutCountDecayMonths = 12
	WarnThreshold       = 1.0
	FreezeThreshold     = 2.0
	BanThreshold        = 4.0
	WarningCooldown     = 7 * 24 * time.Hour
	FreezeLevel1        = 3 * 24 * time.Hour
	FreezeLevel2        = 7 * 24 * time.Hour
	FreezeLevel3        = 30 * 24 * time.Hour

	// Out-count band an upheld report may carry.
	MinOutCount = 0.5
	MaxOutCount = 3.0

	// Reward ranks
	RewardTopRank = 3
	RewardMidRank = 5

	MaxDescriptionLen = 300
)

// RestrictionThresholds is the fixed per-bucket credibility-sum at which a
// content item becomes restricted. Never tunable per item.
var RestrictionThresholds = map[models.ReasonCategory]float64{
	models.CategoryGeneralViolation:   1.0,
	models.CategoryIdeologyImposition: 3.0,
	models.CategoryAdultContent:       2.0,
}

// DefaultOutCounts is the out-count assigned at resolution time to upheld
// reports that were not given one manually, keyed by reason category.
var DefaultOutCounts = map[models.ReasonCategory]float64{
	models.CategoryGeneralViolation:   1.0,
	models.CategoryIdeologyImposition: 0.5,
	models.CategoryAdultContent:       2.0,
}
