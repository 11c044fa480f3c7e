// Package storage is the persistence boundary of the moderation core:
// reports and penalty fields in PostgreSQL, the disposable decision cache
// in Redis.
package storage

import (
	"context"
	"time"

	"modboard/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Storage is everything the moderation engine needs from the stores.
// Methods taking a *gorm.DB run against that transaction; callers outside a
// transaction pass nil and the method falls back to the base connection.
type Storage interface {
	// Users
	GetUserByID(id string) (*models.User, error)
	// GetUserForUpdate locks the user row for the rest of the transaction,
	// serializing concurrent penalty reevaluations of the same account.
	GetUserForUpdate(tx *gorm.DB, id string) (*models.User, error)
	UpdateUser(tx *gorm.DB, user *models.User) error

	// Reports
	GetReportByID(id string) (*models.Report, error)
	SaveReport(tx *gorm.DB, report *models.Report) error
	FindReportByReporterAndTarget(reporterID string, target models.Target) (*models.Report, error)
	ReportsForTarget(target models.Target, since time.Time) ([]models.Report, error)
	CountReportsForTarget(tx *gorm.DB, target models.Target) (int64, error)
	// PendingReportsForUpdate locks the pending group; a concurrent resolver
	// of the same target blocks here and then sees an empty group.
	PendingReportsForUpdate(tx *gorm.DB, target models.Target) ([]models.Report, error)
	ResolveReports(tx *gorm.DB, reports []models.Report, approved bool, at time.Time) error
	UpheldReportsAgainstUser(tx *gorm.DB, userID string) ([]models.Report, error)
	ResolvedCounts(reporterID string) (upheld, rejected int64, err error)

	// Notifications
	SaveNotification(tx *gorm.DB, n *models.Notification) error
	RecentNotificationExists(tx *gorm.DB, userID, template string, since time.Time) (bool, error)
	MarkNotificationDelivered(id string) error
	UndeliveredNotifications(limit int) ([]models.Notification, error)

	// Content removals
	MarkContentRemoved(tx *gorm.DB, target models.Target, at time.Time) error

	// Transaction runs fn atomically; any error rolls everything back.
	Transaction(fn func(tx *gorm.DB) error) error

	// Cache. Never authoritative: errors and misses look the same to
	// callers, values expire on their own.
	CacheGet(ctx context.Context, key string) (string, bool, error)
	CachePut(ctx context.Context, key, value string, ttl time.Duration) error
	CacheDelete(ctx context.Context, keys ...string) error
}

// Service implements Storage over GORM and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *logrus.Logger
}

// NewStorageService builds the storage service. A nil redis client is
// allowed; every cache call then behaves as a miss.
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{DB: db, Redis: rdb, Log: log}
}

// conn returns the transaction when one is given, the base DB otherwise.
func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.DB
}

// Transaction runs fn inside a single database transaction.
func (s *Service) Transaction(fn func(tx *gorm.DB) error) error {
	return s.DB.Transaction(fn)
}
