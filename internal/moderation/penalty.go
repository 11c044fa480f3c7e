package moderation

import (
	"context"
	"fmt"
	"time"

	"modboard/backend/internal/config"
	"modboard/backend/internal/models"
	"modboard/backend/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PenaltyState is the account-level standing derived from upheld reports.
type PenaltyState string

const (
	StateClear  PenaltyState = "clear"
	StateWarned PenaltyState = "warned"
	StateFrozen PenaltyState = "frozen"
	StateBanned PenaltyState = "banned" // terminal, no transition out
)

// PenaltyTransition describes what a reevaluation changed, for the caller
// to dispatch notifications and report status.
type PenaltyTransition struct {
	UserID      string
	From        PenaltyState
	To          PenaltyState
	OutCount    float64
	FrozenUntil *time.Time
	IsBanned    bool
	// Notifications written during the reevaluation; the rows are already
	// persisted, delivery is the caller's job after commit.
	Notifications []*models.Notification
}

// PenaltyEngine turns a user's accumulated out-count into account-state
// transitions. All writes go through the supplied transaction and the user
// row is locked first, so concurrent reevaluations of one account serialize.
type PenaltyEngine struct {
	storage storage.Storage
	log     *logrus.Logger
}

// NewPenaltyEngine creates the engine over the given storage.
func NewPenaltyEngine(s storage.Storage, log *logrus.Logger) *PenaltyEngine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PenaltyEngine{storage: s, log: log}
}

// StateForOutCount is the pure threshold mapping. Banned is sticky.
func StateForOutCount(outCount float64, alreadyBanned bool) PenaltyState {
	switch {
	case alreadyBanned || outCount >= config.BanThreshold:
		return StateBanned
	case outCount >= config.FreezeThreshold:
		return StateFrozen
	case outCount >= config.WarnThreshold:
		return StateWarned
	default:
		return StateClear
	}
}

// freezeDuration escalates with the episode counter.
func freezeDuration(episode int) time.Duration {
	switch episode {
	case 1:
		return config.FreezeLevel1
	case 2:
		return config.FreezeLevel2
	default:
		return config.FreezeLevel3
	}
}

// currentState reads the user's standing before this reevaluation.
func currentState(user *models.User, now time.Time) PenaltyState {
	switch {
	case user.IsPermanentlyBanned:
		return StateBanned
	case user.FrozenAt(now):
		return StateFrozen
	case user.PreviousOutCount >= config.WarnThreshold:
		return StateWarned
	default:
		return StateClear
	}
}

// activeOutCount sums the out-counts of upheld reports whose resolution is
// still inside the decay window. Lazy expiry: stale rows are skipped here
// on every call instead of being swept in the background.
func activeOutCount(reports []models.Report, now time.Time) float64 {
	cutoff := now.AddDate(0, -config.OutCountDecayMonths, 0)
	var total float64
	for i := range reports {
		r := &reports[i]
		if r.ApprovedAt == nil || r.OutCount == nil {
			continue
		}
		if r.ApprovedAt.Before(cutoff) {
			continue
		}
		total += *r.OutCount
	}
	return total
}

// Reevaluate recomputes the user's out-count and applies the state machine.
// Idempotent: a second run with no new report data changes nothing and
// writes no notification. The penalty fields are mutated nowhere else.
func (p *PenaltyEngine) Reevaluate(ctx context.Context, tx *gorm.DB, userID string) (PenaltyTransition, error) {
	user, err := p.storage.GetUserForUpdate(tx, userID)
	if err != nil {
		return PenaltyTransition{}, err
	}
	if user == nil {
		return PenaltyTransition{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	reports, err := p.storage.UpheldReportsAgainstUser(tx, userID)
	if err != nil {
		return PenaltyTransition{}, err
	}

	now := time.Now()
	outCount := activeOutCount(reports, now)

	transition := PenaltyTransition{
		UserID:   userID,
		From:     currentState(user, now),
		OutCount: outCount,
	}

	switch {
	case user.IsPermanentlyBanned:
		// Terminal: nothing to apply, nothing to notify.

	case outCount >= config.BanThreshold:
		user.IsPermanentlyBanned = true
		user.FrozenUntil = nil
		p.log.WithFields(logrus.Fields{
			"user_id":   userID,
			"out_count": outCount,
		}).Warn("user permanently banned")
		if err := p.notify(tx, &transition, models.NotifBan, nil); err != nil {
			return PenaltyTransition{}, err
		}

	case outCount >= config.FreezeThreshold:
		if !user.FrozenAt(now) {
			// A freeze with frozen_until in the past counts as a new episode.
			user.FreezeCount++
			until := now.Add(freezeDuration(user.FreezeCount))
			user.FrozenUntil = &until
			p.log.WithFields(logrus.Fields{
				"user_id":      userID,
				"out_count":    outCount,
				"freeze_count": user.FreezeCount,
				"frozen_until": until,
			}).Info("user frozen")
			if err := p.notify(tx, &transition, models.NotifFreeze, []string{until.Format(time.RFC3339)}); err != nil {
				return PenaltyTransition{}, err
			}
		}

	case outCount >= config.WarnThreshold:
		recent, err := p.storage.RecentNotificationExists(tx, userID, models.NotifWarning, now.Add(-config.WarningCooldown))
		if err != nil {
			return PenaltyTransition{}, err
		}
		if !recent {
			if err := p.notify(tx, &transition, models.NotifWarning, nil); err != nil {
				return PenaltyTransition{}, err
			}
		}

	default:
		if user.FrozenUntil != nil || user.FreezeCount > 0 {
			user.FrozenUntil = nil
			user.FreezeCount = 0
			p.log.WithField("user_id", userID).Info("user unfrozen, out-count decayed below warning threshold")
		}
	}

	user.PreviousOutCount = outCount
	if err := p.storage.UpdateUser(tx, user); err != nil {
		return PenaltyTransition{}, err
	}

	transition.To = StateForOutCount(outCount, user.IsPermanentlyBanned)
	transition.FrozenUntil = user.FrozenUntil
	transition.IsBanned = user.IsPermanentlyBanned
	return transition, nil
}

// notify persists a notification row and records it on the transition.
func (p *PenaltyEngine) notify(tx *gorm.DB, transition *PenaltyTransition, template string, vars []string) error {
	n := &models.Notification{
		UserID:   transition.UserID,
		Template: template,
		Vars:     vars,
	}
	if err := p.storage.SaveNotification(tx, n); err != nil {
		return err
	}
	transition.Notifications = append(transition.Notifications, n)
	return nil
}
