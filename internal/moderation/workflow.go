// Package moderation is the trust and moderation scoring core: reporter
// credibility, content restriction, penalty escalation and reporter rewards,
// driven by the group resolution workflow.
package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"modboard/backend/internal/config"
	"modboard/backend/internal/models"
	"modboard/backend/internal/notify"
	"modboard/backend/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Decision is the terminal outcome of a moderation review.
type Decision string

const (
	DecisionUpheld   Decision = "upheld"
	DecisionRejected Decision = "rejected"
)

// ParseDecision reads a decision from CLI/API input.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionUpheld, DecisionRejected:
		return Decision(s), nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// Engine is the moderation core's facade for the surrounding application.
type Engine struct {
	storage   storage.Storage
	notifier  notify.Notifier
	scorer    *CredibilityScorer
	evaluator *RestrictionEvaluator
	penalties *PenaltyEngine
	log       *logrus.Logger
}

// NewEngine wires the scoring components over one storage and notifier.
func NewEngine(s storage.Storage, n notify.Notifier, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	scorer := NewCredibilityScorer(s)
	return &Engine{
		storage:   s,
		notifier:  n,
		scorer:    scorer,
		evaluator: NewRestrictionEvaluator(s, scorer, log),
		penalties: NewPenaltyEngine(s, log),
		log:       log,
	}
}

// EvaluateRestriction returns the (cached) restriction decision for display
// and posting gates.
func (e *Engine) EvaluateRestriction(ctx context.Context, target models.Target) (RestrictionDecision, error) {
	return e.evaluator.Evaluate(ctx, target)
}

// ReporterCredibility exposes the reporter's reliability score.
func (e *Engine) ReporterCredibility(ctx context.Context, reporterID string) (float64, error) {
	return e.scorer.Score(ctx, &reporterID)
}

// ReevaluatePenalty recomputes one user's penalty state from the report
// store, bypassing every cache, and dispatches whatever the transition
// produced.
func (e *Engine) ReevaluatePenalty(ctx context.Context, userID string) (PenaltyTransition, error) {
	var transition PenaltyTransition
	err := e.storage.Transaction(func(tx *gorm.DB) error {
		var err error
		transition, err = e.penalties.Reevaluate(ctx, tx, userID)
		return err
	})
	if err != nil {
		return PenaltyTransition{}, err
	}
	e.dispatch(ctx, transition.Notifications)
	return transition, nil
}

// SubmitReport validates and stores a new report. A reporter re-reporting a
// target they already have a pending report against updates that report in
// place; re-reporting after resolution is a conflict. ownerID is the account
// owning the reported content; ignored for profile targets.
func (e *Engine) SubmitReport(ctx context.Context, reporterID string, target models.Target, ownerID string, reason models.ReportReason, description string) (*models.Report, error) {
	if target.IsZero() {
		return nil, &ValidationError{Field: "target", Reason: "exactly one target must be set"}
	}
	if !reason.Valid() {
		return nil, &ValidationError{Field: "reason", Reason: fmt.Sprintf("unknown reason %q", reason)}
	}
	if target.Kind == models.TargetProfile && reason == models.ReasonUndisclosedAdult {
		return nil, &ValidationError{Field: "reason", Reason: "adult-content reason applies to content, not profiles"}
	}
	description = strings.TrimSpace(description)
	if len(description) > config.MaxDescriptionLen {
		return nil, &ValidationError{Field: "description", Reason: fmt.Sprintf("longer than %d characters", config.MaxDescriptionLen)}
	}
	if target.Kind == models.TargetProfile {
		ownerID = target.ID
	}
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner", Reason: "content owner must be known"}
	}

	existing, err := e.storage.FindReportByReporterAndTarget(reporterID, target)
	if err != nil {
		return nil, err
	}

	var report *models.Report
	if existing != nil {
		if !existing.Pending() {
			return nil, fmt.Errorf("report against %s: %w", target.String(), ErrConflict)
		}
		existing.Reason = reason
		existing.Description = description
		report = existing
	} else {
		report = &models.Report{
			ReporterID:    &reporterID,
			TargetOwnerID: &ownerID,
			Reason:        reason,
			Description:   description,
		}
		report.SetTarget(target)
	}

	if err := e.storage.SaveReport(nil, report); err != nil {
		return nil, err
	}
	e.evaluator.Invalidate(ctx, target)
	return report, nil
}

// ResolveReportGroup resolves every pending report against the target with
// one decision, atomically with the penalty and reward effects. Resolving a
// target with no pending reports is a conflict when reports exist (the group
// was already resolved) and not-found otherwise.
func (e *Engine) ResolveReportGroup(ctx context.Context, target models.Target, decision Decision) error {
	if target.IsZero() {
		return &ValidationError{Field: "target", Reason: "exactly one target must be set"}
	}

	var pending []models.Report
	var notifications []*models.Notification

	err := e.storage.Transaction(func(tx *gorm.DB) error {
		var err error
		pending, err = e.storage.PendingReportsForUpdate(tx, target)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			total, err := e.storage.CountReportsForTarget(tx, target)
			if err != nil {
				return err
			}
			if total > 0 {
				return fmt.Errorf("report group %s: %w", target.String(), ErrConflict)
			}
			return fmt.Errorf("report group %s: %w", target.String(), ErrNotFound)
		}

		now := time.Now()
		approved := decision == DecisionUpheld

		for i := range pending {
			if pending[i].OutCount == nil {
				value := config.DefaultOutCounts[pending[i].Reason.Category()]
				pending[i].OutCount = &value
			}
		}
		if err := e.storage.ResolveReports(tx, pending, approved, now); err != nil {
			return err
		}

		if approved {
			notifications, err = e.applyUpheld(ctx, tx, target, pending, now)
			if err != nil {
				return err
			}
		} else {
			notifications, err = e.applyRejected(tx, pending)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.evaluator.Invalidate(ctx, target)
	for i := range pending {
		if pending[i].ReporterID != nil {
			e.scorer.Invalidate(ctx, *pending[i].ReporterID)
		}
	}
	e.dispatch(ctx, notifications)

	e.log.WithFields(logrus.Fields{
		"target":   target.String(),
		"decision": decision,
		"reports":  len(pending),
	}).Info("report group resolved")
	return nil
}

// applyUpheld runs the penalty engine for the content owner, allocates
// rewards by approval rank and records the content removal. A penalty
// failure aborts the whole transaction: an upheld report must never exist
// without its penalty effect having been attempted.
func (e *Engine) applyUpheld(ctx context.Context, tx *gorm.DB, target models.Target, pending []models.Report, now time.Time) ([]*models.Notification, error) {
	owner := groupOwner(target, pending)
	if owner == "" {
		return nil, fmt.Errorf("content owner for %s: %w", target.String(), ErrNotFound)
	}

	transition, err := e.penalties.Reevaluate(ctx, tx, owner)
	if err != nil {
		return nil, fmt.Errorf("penalty reevaluation for %s: %w", owner, err)
	}
	notifications := transition.Notifications

	// Reports come back oldest first; rank 1 is the first reporter.
	rank := 0
	for i := range pending {
		r := &pending[i]
		if r.ReporterID == nil {
			continue
		}
		rank++
		score, err := e.scorer.Score(ctx, r.ReporterID)
		if err != nil {
			return nil, err
		}
		coins := ComputeReward(rank, score)
		if coins == 0 {
			continue
		}
		n := &models.Notification{
			UserID:   *r.ReporterID,
			Template: models.NotifReward,
			Vars:     []string{strconv.Itoa(coins)},
		}
		if err := e.storage.SaveNotification(tx, n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if target.Kind == models.TargetThread || target.Kind == models.TargetResponse {
		if err := e.storage.MarkContentRemoved(tx, target, now); err != nil {
			return nil, err
		}
	}
	if target.Kind == models.TargetThread {
		n := &models.Notification{
			UserID:   owner,
			Template: models.NotifThreadRemoved,
			Vars:     []string{strings.Join(groupReasons(pending), ", ")},
		}
		if err := e.storage.SaveNotification(tx, n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// applyRejected records one "not a violation" notification per reporter.
func (e *Engine) applyRejected(tx *gorm.DB, pending []models.Report) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for i := range pending {
		r := &pending[i]
		if r.ReporterID == nil {
			continue
		}
		n := &models.Notification{
			UserID:   *r.ReporterID,
			Template: models.NotifRejected,
		}
		if err := e.storage.SaveNotification(tx, n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// OverrideOutCount manually adjusts the out-count of an upheld report and
// recomputes the owner's penalty state.
func (e *Engine) OverrideOutCount(ctx context.Context, reportID string, value float64) (PenaltyTransition, error) {
	if value < config.MinOutCount || value > config.MaxOutCount {
		return PenaltyTransition{}, &ValidationError{
			Field:  "out_count",
			Reason: fmt.Sprintf("must be within [%.1f, %.1f]", config.MinOutCount, config.MaxOutCount),
		}
	}

	report, err := e.storage.GetReportByID(reportID)
	if err != nil {
		return PenaltyTransition{}, err
	}
	if report == nil {
		return PenaltyTransition{}, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	if !report.Upheld() {
		return PenaltyTransition{}, fmt.Errorf("report %s is not upheld: %w", reportID, ErrConflict)
	}

	var transition PenaltyTransition
	err = e.storage.Transaction(func(tx *gorm.DB) error {
		report.OutCount = &value
		if err := e.storage.SaveReport(tx, report); err != nil {
			return err
		}
		if report.TargetOwnerID == nil {
			return fmt.Errorf("content owner for report %s: %w", reportID, ErrNotFound)
		}
		var err error
		transition, err = e.penalties.Reevaluate(ctx, tx, *report.TargetOwnerID)
		return err
	})
	if err != nil {
		return PenaltyTransition{}, err
	}
	e.dispatch(ctx, transition.Notifications)
	return transition, nil
}

// dispatch delivers recorded notifications after the decision committed.
// Failures are transient: logged, left undelivered for retry, never able to
// roll the decision back.
func (e *Engine) dispatch(ctx context.Context, notifications []*models.Notification) {
	for _, n := range notifications {
		if err := e.notifier.Send(ctx, n.UserID, n.Template, []string(n.Vars)); err != nil {
			e.log.WithError(&TransientError{Err: err}).WithFields(logrus.Fields{
				"notification_id": n.ID,
				"template":        n.Template,
			}).Warn("notification delivery failed, left for retry")
			continue
		}
		if err := e.storage.MarkNotificationDelivered(n.ID); err != nil {
			e.log.WithError(err).WithField("notification_id", n.ID).
				Warn("failed to mark notification delivered")
		}
	}
}

// groupOwner resolves the penalized account for a report group.
func groupOwner(target models.Target, pending []models.Report) string {
	if target.Kind == models.TargetProfile {
		return target.ID
	}
	for i := range pending {
		if pending[i].TargetOwnerID != nil {
			return *pending[i].TargetOwnerID
		}
	}
	return ""
}

// groupReasons collects the distinct reason categories of a group, in the
// fixed category order.
func groupReasons(pending []models.Report) []string {
	seen := make(map[models.ReasonCategory]bool)
	for i := range pending {
		category := pending[i].Reason.Category()
		if category != "" {
			seen[category] = true
		}
	}
	var reasons []string
	for _, category := range models.ReasonCategories {
		if seen[category] {
			reasons = append(reasons, string(category))
		}
	}
	return reasons
}
