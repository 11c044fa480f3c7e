package moderation_test

import (
	"context"
	"time"

	"modboard/backend/internal/models"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockStorage is a testify mock of the storage.Storage interface, used to
// drive the scoring components without a database.
type MockStorage struct {
	mock.Mock
}

// User operations
func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserForUpdate(tx *gorm.DB, id string) (*models.User, error) {
	args := m.Called(tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUser(tx *gorm.DB, user *models.User) error {
	args := m.Called(tx, user)
	return args.Error(0)
}

// Report operations
func (m *MockStorage) GetReportByID(id string) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) SaveReport(tx *gorm.DB, report *models.Report) error {
	args := m.Called(tx, report)
	return args.Error(0)
}

func (m *MockStorage) FindReportByReporterAndTarget(reporterID string, target models.Target) (*models.Report, error) {
	args := m.Called(reporterID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) ReportsForTarget(target models.Target, since time.Time) ([]models.Report, error) {
	args := m.Called(target, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) CountReportsForTarget(tx *gorm.DB, target models.Target) (int64, error) {
	args := m.Called(tx, target)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) PendingReportsForUpdate(tx *gorm.DB, target models.Target) ([]models.Report, error) {
	args := m.Called(tx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) ResolveReports(tx *gorm.DB, reports []models.Report, approved bool, at time.Time) error {
	args := m.Called(tx, reports, approved, at)
	return args.Error(0)
}

func (m *MockStorage) UpheldReportsAgainstUser(tx *gorm.DB, userID string) ([]models.Report, error) {
	args := m.Called(tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) ResolvedCounts(reporterID string) (int64, int64, error) {
	args := m.Called(reporterID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// Notification operations
func (m *MockStorage) SaveNotification(tx *gorm.DB, n *models.Notification) error {
	args := m.Called(tx, n)
	return args.Error(0)
}

func (m *MockStorage) RecentNotificationExists(tx *gorm.DB, userID, template string, since time.Time) (bool, error) {
	args := m.Called(tx, userID, template, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) MarkNotificationDelivered(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) UndeliveredNotifications(limit int) ([]models.Notification, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockStorage) MarkContentRemoved(tx *gorm.DB, target models.Target, at time.Time) error {
	args := m.Called(tx, target, at)
	return args.Error(0)
}

// Transaction executes fn immediately against a nil tx. The real service
// opens a database transaction here; the mocks only care about the calls
// made inside.
func (m *MockStorage) Transaction(fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// Cache operations
func (m *MockStorage) CacheGet(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) CachePut(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockStorage) CacheDelete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// allowCaching makes every cache call a silent miss, which is how most
// tests want the cache to behave.
func allowCaching(m *MockStorage) {
	m.On("CacheGet", mock.Anything, mock.Anything).Return("", false, nil).Maybe()
	m.On("CachePut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("CacheDelete", mock.Anything, mock.Anything).Return(nil).Maybe()
}

// MockNotifier records dispatched notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, userID, template string, vars []string) error {
	args := m.Called(ctx, userID, template, vars)
	return args.Error(0)
}

// Shared test helpers

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

// upheldReport builds an upheld report against ownerID resolved at the
// given time with the given out-count.
func upheldReport(ownerID string, outCount float64, approvedAt time.Time) models.Report {
	r := models.Report{
		TargetOwnerID: strPtr(ownerID),
		Reason:        models.ReasonSpam,
		OutCount:      floatPtr(outCount),
		IsApproved:    boolPtr(true),
		ApprovedAt:    timePtr(approvedAt),
	}
	r.SetTarget(models.ThreadTarget("thread-of-" + ownerID))
	return r
}
