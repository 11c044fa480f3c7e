package moderation

import (
	"context"
	"encoding/json"
	"time"

	"modboard/backend/internal/config"
	"modboard/backend/internal/models"
	"modboard/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// RestrictionDecision says whether a content item is hidden from normal
// listing and why. It is derived, never persisted: the cache entry is an
// optimization and the decision can be recomputed from the report table at
// any time.
type RestrictionDecision struct {
	IsRestricted bool                    `json:"is_restricted"`
	Reasons      []models.ReasonCategory `json:"reasons"`
}

// RestrictionEvaluator aggregates weighted report scores per content item.
type RestrictionEvaluator struct {
	storage storage.Storage
	scorer  *CredibilityScorer
	log     *logrus.Logger
}

// NewRestrictionEvaluator creates an evaluator over the given storage.
func NewRestrictionEvaluator(s storage.Storage, scorer *CredibilityScorer, log *logrus.Logger) *RestrictionEvaluator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RestrictionEvaluator{storage: s, scorer: scorer, log: log}
}

func restrictionCacheKey(target models.Target) string {
	return "restriction:" + target.String()
}

// Evaluate returns the restriction decision for the target, read-through
// cached for a few minutes.
func (e *RestrictionEvaluator) Evaluate(ctx context.Context, target models.Target) (RestrictionDecision, error) {
	key := restrictionCacheKey(target)
	if cached, ok, _ := e.storage.CacheGet(ctx, key); ok {
		var decision RestrictionDecision
		if err := json.Unmarshal([]byte(cached), &decision); err == nil {
			return decision, nil
		}
	}

	decision, err := e.EvaluateFresh(ctx, target)
	if err != nil {
		return RestrictionDecision{}, err
	}

	if payload, err := json.Marshal(decision); err == nil {
		_ = e.storage.CachePut(ctx, key, string(payload), config.RestrictionCacheTTL)
	}
	return decision, nil
}

// EvaluateFresh recomputes the decision from the report store, bypassing
// the cache. Rejected reports never contribute; pending and upheld ones
// contribute their reporter's credibility to their reason bucket.
func (e *RestrictionEvaluator) EvaluateFresh(ctx context.Context, target models.Target) (RestrictionDecision, error) {
	since := time.Now().AddDate(0, -config.ActiveWindowMonths, 0)
	reports, err := e.storage.ReportsForTarget(target, since)
	if err != nil {
		return RestrictionDecision{}, err
	}

	scores := make(map[models.ReasonCategory]float64)
	for i := range reports {
		r := &reports[i]
		if r.Rejected() {
			continue
		}
		category := r.Reason.Category()
		if category == "" {
			continue
		}
		weight, err := e.scorer.Score(ctx, r.ReporterID)
		if err != nil {
			return RestrictionDecision{}, err
		}
		scores[category] += weight
	}

	decision := DecisionForScores(scores)

	if decision.IsRestricted {
		e.log.WithFields(logrus.Fields{
			"target":  target.String(),
			"reasons": decision.Reasons,
		}).Info("content restricted")
	}
	return decision, nil
}

// DecisionForScores applies the fixed per-bucket thresholds to a set of
// bucket scores. Pure; the reason list follows the fixed category order.
func DecisionForScores(scores map[models.ReasonCategory]float64) RestrictionDecision {
	decision := RestrictionDecision{}
	for _, category := range models.ReasonCategories {
		if scores[category] >= config.RestrictionThresholds[category] {
			decision.IsRestricted = true
			decision.Reasons = append(decision.Reasons, category)
		}
	}
	return decision
}

// Invalidate drops the cached decision after a report against the target
// changed state.
func (e *RestrictionEvaluator) Invalidate(ctx context.Context, target models.Target) {
	_ = e.storage.CacheDelete(ctx, restrictionCacheKey(target))
}
