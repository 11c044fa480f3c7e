package moderation

import (
	"context"
	"strconv"

	"modboard/backend/internal/config"
	"modboard/backend/internal/storage"
)

// CredibilityScorer rates a reporter's historical reliability inside
// [CredibilityFloor, CredibilityCeiling]. Pure read; results are cached in
// Redis and invalidated whenever a resolution touches the reporter.
type CredibilityScorer struct {
	storage storage.Storage
}

// NewCredibilityScorer creates a scorer over the given storage.
func NewCredibilityScorer(s storage.Storage) *CredibilityScorer {
	return &CredibilityScorer{storage: s}
}

// NeutralCredibility is the score of a reporter with no resolved history,
// and of reports whose reporter account was deleted.
func NeutralCredibility() float64 {
	return scoreFromRatio(config.NeutralRatio)
}

// scoreFromRatio maps an upheld ratio to a bounded score. Linear and
// monotonically non-decreasing; out-of-range ratios are clamped.
func scoreFromRatio(ratio float64) float64 {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return config.CredibilityFloor + (config.CredibilityCeiling-config.CredibilityFloor)*ratio
}

func credibilityCacheKey(reporterID string) string {
	return "credibility:" + reporterID
}

// Score computes the reporter's credibility. A nil reporter (deleted
// account) gets the neutral default rather than zero.
func (c *CredibilityScorer) Score(ctx context.Context, reporterID *string) (float64, error) {
	if reporterID == nil {
		return NeutralCredibility(), nil
	}

	key := credibilityCacheKey(*reporterID)
	if cached, ok, _ := c.storage.CacheGet(ctx, key); ok {
		if score, err := strconv.ParseFloat(cached, 64); err == nil {
			return score, nil
		}
	}

	upheld, rejected, err := c.storage.ResolvedCounts(*reporterID)
	if err != nil {
		return 0, err
	}

	ratio := config.NeutralRatio
	if total := upheld + rejected; total > 0 {
		ratio = float64(upheld) / float64(total)
	}
	score := scoreFromRatio(ratio)

	_ = c.storage.CachePut(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), config.CredibilityCacheTTL)
	return score, nil
}

// Invalidate drops the cached score after a resolution touched the reporter.
func (c *CredibilityScorer) Invalidate(ctx context.Context, reporterID string) {
	_ = c.storage.CacheDelete(ctx, credibilityCacheKey(reporterID))
}
