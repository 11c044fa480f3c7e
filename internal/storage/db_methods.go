package storage

import (
	"errors"
	"time"

	"modboard/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// targetScope narrows a report query to one target.
func targetScope(target models.Target) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch target.Kind {
		case models.TargetThread:
			return db.Where("thread_id = ?", target.ID)
		case models.TargetResponse:
			return db.Where("response_id = ?", target.ID)
		case models.TargetProfile:
			return db.Where("reported_user_id = ?", target.ID)
		default:
			// Matches nothing rather than everything.
			return db.Where("1 = 0")
		}
	}
}

// GetUserByID loads a user, nil when the row does not exist.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate loads the user row with a FOR UPDATE lock.
func (s *Service) GetUserForUpdate(tx *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := s.conn(tx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser persists the user's penalty fields.
func (s *Service) UpdateUser(tx *gorm.DB, user *models.User) error {
	return s.conn(tx).Save(user).Error
}

// GetReportByID loads a report, nil when the row does not exist.
func (s *Service) GetReportByID(id string) (*models.Report, error) {
	var report models.Report
	err := s.DB.Where("id = ?", id).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveReport inserts or updates a report row.
func (s *Service) SaveReport(tx *gorm.DB, report *models.Report) error {
	if err := s.conn(tx).Save(report).Error; err != nil {
		s.Log.WithError(err).WithField("target", report.Target().String()).
			Error("failed to save report")
		return err
	}
	return nil
}

// FindReportByReporterAndTarget returns the reporter's existing report
// against the target, nil when there is none. One row per (reporter, target)
// pair is an invariant enforced through this lookup at intake.
func (s *Service) FindReportByReporterAndTarget(reporterID string, target models.Target) (*models.Report, error) {
	var report models.Report
	err := s.DB.Scopes(targetScope(target)).
		Where("reporter_id = ?", reporterID).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ReportsForTarget returns all reports against the target created at or
// after since, oldest first.
func (s *Service) ReportsForTarget(target models.Target, since time.Time) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.Scopes(targetScope(target)).
		Where("created_at >= ?", since).
		Order("created_at asc").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// CountReportsForTarget counts every report ever filed against the target.
func (s *Service) CountReportsForTarget(tx *gorm.DB, target models.Target) (int64, error) {
	var total int64
	err := s.conn(tx).Model(&models.Report{}).Scopes(targetScope(target)).Count(&total).Error
	return total, err
}

// PendingReportsForUpdate locks and returns the pending reports against the
// target, oldest first. Two resolvers of the same target serialize on these
// row locks; the second one gets an empty slice once the first commits.
func (s *Service) PendingReportsForUpdate(tx *gorm.DB, target models.Target) ([]models.Report, error) {
	var reports []models.Report
	err := s.conn(tx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(targetScope(target)).
		Where("is_approved IS NULL").
		Order("created_at asc").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// ResolveReports writes the terminal decision onto each report in one batch.
// The rows carry their (possibly freshly defaulted) out-counts already.
func (s *Service) ResolveReports(tx *gorm.DB, reports []models.Report, approved bool, at time.Time) error {
	db := s.conn(tx)
	for i := range reports {
		r := &reports[i]
		r.IsApproved = &approved
		r.ApprovedAt = &at
		err := db.Model(&models.Report{}).Where("id = ?", r.ID).
			Updates(map[string]interface{}{
				"is_approved": approved,
				"approved_at": at,
				"out_count":   r.OutCount,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// UpheldReportsAgainstUser returns every upheld report attributed to the
// user's content or profile. Decay is not applied here; the penalty engine
// expires stale contributions itself.
func (s *Service) UpheldReportsAgainstUser(tx *gorm.DB, userID string) ([]models.Report, error) {
	var reports []models.Report
	err := s.conn(tx).
		Where("target_owner_id = ?", userID).
		Where("is_approved = ?", true).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// ResolvedCounts returns how many of the reporter's reports were upheld and
// how many rejected. Pending reports are not counted.
func (s *Service) ResolvedCounts(reporterID string) (upheld, rejected int64, err error) {
	err = s.DB.Model(&models.Report{}).
		Where("reporter_id = ? AND is_approved = ?", reporterID, true).
		Count(&upheld).Error
	if err != nil {
		return 0, 0, err
	}
	err = s.DB.Model(&models.Report{}).
		Where("reporter_id = ? AND is_approved = ?", reporterID, false).
		Count(&rejected).Error
	if err != nil {
		return 0, 0, err
	}
	return upheld, rejected, nil
}

// SaveNotification appends a notification row.
func (s *Service) SaveNotification(tx *gorm.DB, n *models.Notification) error {
	return s.conn(tx).Create(n).Error
}

// RecentNotificationExists reports whether the user already got a
// notification of this template since the given time.
func (s *Service) RecentNotificationExists(tx *gorm.DB, userID, template string, since time.Time) (bool, error) {
	var total int64
	err := s.conn(tx).Model(&models.Notification{}).
		Where("user_id = ? AND template = ?", userID, template).
		Where("created_at >= ?", since).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// MarkNotificationDelivered flags a notification as delivered.
func (s *Service) MarkNotificationDelivered(id string) error {
	return s.DB.Model(&models.Notification{}).Where("id = ?", id).
		Update("delivered", true).Error
}

// UndeliveredNotifications returns notifications whose delivery failed,
// oldest first, for the redelivery sweep.
func (s *Service) UndeliveredNotifications(limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.Where("delivered = ?", false).
		Order("created_at asc").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkContentRemoved records the removal of a content item. Idempotent:
// re-recording the same target is a no-op.
func (s *Service) MarkContentRemoved(tx *gorm.DB, target models.Target, at time.Time) error {
	removal := models.ContentRemoval{
		TargetKind: target.Kind,
		TargetID:   target.ID,
		RemovedAt:  at,
	}
	return s.conn(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(&removal).Error
}
