package moderation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"modboard/backend/internal/models"
	"modboard/backend/internal/moderation"
	"modboard/backend/internal/notify"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newEngine(ms *MockStorage, mn *MockNotifier) *moderation.Engine {
	var notifier notify.Notifier = mn
	if mn == nil {
		notifier = &notify.LogNotifier{Log: logrus.New()}
	}
	return moderation.NewEngine(ms, notifier, logrus.New())
}

// groupReport builds a pending report against target by reporterID, owned
// by ownerID, created at the given time.
func groupReport(target models.Target, reporterID, ownerID string, reason models.ReportReason, createdAt time.Time) models.Report {
	r := models.Report{
		ID:            "report-" + reporterID,
		ReporterID:    strPtr(reporterID),
		TargetOwnerID: strPtr(ownerID),
		Reason:        reason,
		CreatedAt:     createdAt,
	}
	r.SetTarget(target)
	return r
}

// TestResolveGroup_Upheld covers the full upheld path: defaults assigned,
// reports resolved in one batch, the owner penalized, rewards allocated by
// rank and the thread removal recorded.
func TestResolveGroup_Upheld(t *testing.T) {
	// Arrange
	ms := new(MockStorage)
	mn := new(MockNotifier)
	allowCaching(ms)
	target := models.ThreadTarget("t1")
	now := time.Now()
	pending := []models.Report{
		groupReport(target, "rep1", "owner1", models.ReasonSpam, now.Add(-2*time.Hour)),
		groupReport(target, "rep2", "owner1", models.ReasonSpam, now.Add(-time.Hour)),
	}

	ms.On("PendingReportsForUpdate", mock.Anything, target).Return(pending, nil)
	var resolved []models.Report
	ms.On("ResolveReports", mock.Anything, mock.Anything, true, mock.Anything).
		Run(func(args mock.Arguments) {
			resolved = args.Get(1).([]models.Report)
		}).Return(nil)

	// Penalty path: the two upheld reports push the owner to a freeze.
	owner := &models.User{ID: "owner1"}
	upheld := []models.Report{
		upheldReport("owner1", 1.0, now),
		upheldReport("owner1", 1.0, now),
	}
	ms.On("GetUserForUpdate", mock.Anything, "owner1").Return(owner, nil)
	ms.On("UpheldReportsAgainstUser", mock.Anything, "owner1").Return(upheld, nil)
	ms.On("UpdateUser", mock.Anything, owner).Return(nil)

	// Reward path: rep1 has a perfect history, rep2 a poor one.
	ms.On("ResolvedCounts", "rep1").Return(int64(3), int64(0), nil)
	ms.On("ResolvedCounts", "rep2").Return(int64(0), int64(3), nil)

	ms.On("SaveNotification", mock.Anything, mock.Anything).Return(nil)
	ms.On("MarkContentRemoved", mock.Anything, target, mock.Anything).Return(nil)
	ms.On("MarkNotificationDelivered", mock.Anything).Return(nil)

	mn.On("Send", mock.Anything, "owner1", models.NotifFreeze, mock.Anything).Return(nil).Once()
	mn.On("Send", mock.Anything, "rep1", models.NotifReward, []string{"5"}).Return(nil).Once()
	mn.On("Send", mock.Anything, "rep2", models.NotifReward, []string{"3"}).Return(nil).Once()
	mn.On("Send", mock.Anything, "owner1", models.NotifThreadRemoved,
		[]string{string(models.CategoryGeneralViolation)}).Return(nil).Once()

	engine := newEngine(ms, mn)

	// Act
	err := engine.ResolveReportGroup(context.Background(), target, moderation.DecisionUpheld)

	// Assert
	assert.NoError(t, err)
	if assert.Len(t, resolved, 2) {
		for _, r := range resolved {
			if assert.NotNil(t, r.OutCount, "default out-count assigned at resolution") {
				assert.Equal(t, 1.0, *r.OutCount, "general-violation default")
			}
		}
	}
	assert.Equal(t, 1, owner.FreezeCount)
	mn.AssertExpectations(t)
	ms.AssertExpectations(t)
}

// TestResolveGroup_SecondResolutionConflicts: re-resolving the same group
// is a conflict no-op that double-applies nothing.
func TestResolveGroup_SecondResolutionConflicts(t *testing.T) {
	ms := new(MockStorage)
	mn := new(MockNotifier)
	target := models.ThreadTarget("t1")
	ms.On("PendingReportsForUpdate", mock.Anything, target).Return([]models.Report{}, nil)
	ms.On("CountReportsForTarget", mock.Anything, target).Return(int64(2), nil)
	engine := newEngine(ms, mn)

	err := engine.ResolveReportGroup(context.Background(), target, moderation.DecisionUpheld)

	assert.True(t, errors.Is(err, moderation.ErrConflict))
	ms.AssertNotCalled(t, "ResolveReports", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mn.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestResolveGroup_UnknownTarget distinguishes not-found from conflict.
func TestResolveGroup_UnknownTarget(t *testing.T) {
	ms := new(MockStorage)
	target := models.ResponseTarget("ghost")
	ms.On("PendingReportsForUpdate", mock.Anything, target).Return([]models.Report{}, nil)
	ms.On("CountReportsForTarget", mock.Anything, target).Return(int64(0), nil)
	engine := newEngine(ms, nil)

	err := engine.ResolveReportGroup(context.Background(), target, moderation.DecisionRejected)

	assert.True(t, errors.Is(err, moderation.ErrNotFound))
}

// TestResolveGroup_Rejected: every reporter is told once, no penalty and no
// rewards are touched.
func TestResolveGroup_Rejected(t *testing.T) {
	ms := new(MockStorage)
	mn := new(MockNotifier)
	allowCaching(ms)
	target := models.ProfileTarget("suspect")
	now := time.Now()
	pending := []models.Report{
		groupReport(target, "rep1", "suspect", models.ReasonPushingViews, now.Add(-time.Hour)),
		groupReport(target, "rep2", "suspect", models.ReasonPushingViews, now),
	}
	ms.On("PendingReportsForUpdate", mock.Anything, target).Return(pending, nil)
	ms.On("ResolveReports", mock.Anything, mock.Anything, false, mock.Anything).Return(nil)
	ms.On("SaveNotification", mock.Anything, mock.Anything).Return(nil)
	ms.On("MarkNotificationDelivered", mock.Anything).Return(nil)
	mn.On("Send", mock.Anything, "rep1", models.NotifRejected, mock.Anything).Return(nil).Once()
	mn.On("Send", mock.Anything, "rep2", models.NotifRejected, mock.Anything).Return(nil).Once()
	engine := newEngine(ms, mn)

	err := engine.ResolveReportGroup(context.Background(), target, moderation.DecisionRejected)

	assert.NoError(t, err)
	mn.AssertExpectations(t)
	ms.AssertNotCalled(t, "GetUserForUpdate", mock.Anything, mock.Anything)
}

// TestResolveGroup_DeliveryFailureDoesNotFail: a failing notifier never
// bubbles into the resolution result.
func TestResolveGroup_DeliveryFailureDoesNotFail(t *testing.T) {
	ms := new(MockStorage)
	mn := new(MockNotifier)
	allowCaching(ms)
	target := models.ProfileTarget("suspect")
	pending := []models.Report{
		groupReport(target, "rep1", "suspect", models.ReasonOther, time.Now()),
	}
	ms.On("PendingReportsForUpdate", mock.Anything, target).Return(pending, nil)
	ms.On("ResolveReports", mock.Anything, mock.Anything, false, mock.Anything).Return(nil)
	ms.On("SaveNotification", mock.Anything, mock.Anything).Return(nil)
	mn.On("Send", mock.Anything, "rep1", models.NotifRejected, mock.Anything).
		Return(errors.New("bot unreachable"))
	engine := newEngine(ms, mn)

	err := engine.ResolveReportGroup(context.Background(), target, moderation.DecisionRejected)

	assert.NoError(t, err, "delivery failures are transient, the decision stands")
	ms.AssertNotCalled(t, "MarkNotificationDelivered", mock.Anything)
}

// TestSubmitReport_Validation covers the malformed-report taxonomy.
func TestSubmitReport_Validation(t *testing.T) {
	engine := newEngine(new(MockStorage), nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		target      models.Target
		owner       string
		reason      models.ReportReason
		description string
	}{
		{"zero target", models.Target{}, "o", models.ReasonSpam, ""},
		{"unknown reason", models.ThreadTarget("t1"), "o", "shouting", ""},
		{"adult reason on a profile", models.ProfileTarget("u1"), "", models.ReasonUndisclosedAdult, ""},
		{"description too long", models.ThreadTarget("t1"), "o", models.ReasonSpam, strings.Repeat("x", 301)},
		{"unknown content owner", models.ThreadTarget("t1"), "", models.ReasonSpam, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.SubmitReport(ctx, "rep1", tt.target, tt.owner, tt.reason, tt.description)
			var verr *moderation.ValidationError
			assert.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
		})
	}
}

// TestSubmitReport_ReReporting: re-reporting before resolution updates the
// existing row, re-reporting after resolution conflicts.
func TestSubmitReport_ReReporting(t *testing.T) {
	ctx := context.Background()
	target := models.ThreadTarget("t1")

	t.Run("pending report is updated in place", func(t *testing.T) {
		ms := new(MockStorage)
		allowCaching(ms)
		existing := groupReport(target, "rep1", "owner1", models.ReasonSpam, time.Now())
		ms.On("FindReportByReporterAndTarget", "rep1", target).Return(&existing, nil)
		var saved *models.Report
		ms.On("SaveReport", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Report) }).Return(nil)
		engine := newEngine(ms, nil)

		report, err := engine.SubmitReport(ctx, "rep1", target, "owner1", models.ReasonOffensive, "updated details")

		assert.NoError(t, err)
		assert.Equal(t, existing.ID, report.ID, "same row, not a new one")
		assert.Equal(t, models.ReasonOffensive, saved.Reason)
		assert.Equal(t, "updated details", saved.Description)
	})

	t.Run("resolved report conflicts", func(t *testing.T) {
		ms := new(MockStorage)
		resolved := groupReport(target, "rep1", "owner1", models.ReasonSpam, time.Now())
		resolved.IsApproved = boolPtr(false)
		ms.On("FindReportByReporterAndTarget", "rep1", target).Return(&resolved, nil)
		engine := newEngine(ms, nil)

		_, err := engine.SubmitReport(ctx, "rep1", target, "owner1", models.ReasonSpam, "")

		assert.True(t, errors.Is(err, moderation.ErrConflict))
		ms.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything)
	})

	t.Run("first report creates the row", func(t *testing.T) {
		ms := new(MockStorage)
		allowCaching(ms)
		ms.On("FindReportByReporterAndTarget", "rep1", target).Return(nil, nil)
		var saved *models.Report
		ms.On("SaveReport", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Report) }).Return(nil)
		engine := newEngine(ms, nil)

		_, err := engine.SubmitReport(ctx, "rep1", target, "owner1", models.ReasonSpam, "spam thread")

		assert.NoError(t, err)
		assert.Equal(t, target, saved.Target())
		assert.Equal(t, "owner1", *saved.TargetOwnerID)
		assert.Nil(t, saved.IsApproved, "new reports start pending")
	})
}

// TestOverrideOutCount covers the manual adjustment path.
func TestOverrideOutCount(t *testing.T) {
	ctx := context.Background()

	t.Run("value out of band", func(t *testing.T) {
		engine := newEngine(new(MockStorage), nil)
		_, err := engine.OverrideOutCount(ctx, "r1", 0.4)
		var verr *moderation.ValidationError
		assert.True(t, errors.As(err, &verr))

		_, err = engine.OverrideOutCount(ctx, "r1", 3.5)
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("unknown report", func(t *testing.T) {
		ms := new(MockStorage)
		ms.On("GetReportByID", "ghost").Return(nil, nil)
		engine := newEngine(ms, nil)

		_, err := engine.OverrideOutCount(ctx, "ghost", 1.0)

		assert.True(t, errors.Is(err, moderation.ErrNotFound))
	})

	t.Run("pending report conflicts", func(t *testing.T) {
		ms := new(MockStorage)
		pending := groupReport(models.ThreadTarget("t1"), "rep1", "owner1", models.ReasonSpam, time.Now())
		ms.On("GetReportByID", pending.ID).Return(&pending, nil)
		engine := newEngine(ms, nil)

		_, err := engine.OverrideOutCount(ctx, pending.ID, 1.0)

		assert.True(t, errors.Is(err, moderation.ErrConflict))
	})

	t.Run("override triggers penalty recomputation", func(t *testing.T) {
		ms := new(MockStorage)
		allowCaching(ms)
		report := upheldReport("owner1", 1.0, time.Now().AddDate(0, -1, 0))
		report.ID = "r1"
		ms.On("GetReportByID", "r1").Return(&report, nil)
		ms.On("SaveReport", mock.Anything, &report).Return(nil)
		owner := &models.User{ID: "owner1", PreviousOutCount: 1.0}
		ms.On("GetUserForUpdate", mock.Anything, "owner1").Return(owner, nil)
		// The reevaluation reads the report back after the save took effect.
		ms.On("UpheldReportsAgainstUser", mock.Anything, "owner1").
			Return([]models.Report{upheldReport("owner1", 3.0, time.Now().AddDate(0, -1, 0))}, nil)
		ms.On("SaveNotification", mock.Anything, mock.Anything).Return(nil)
		ms.On("MarkNotificationDelivered", mock.Anything).Return(nil)
		ms.On("UpdateUser", mock.Anything, owner).Return(nil)
		engine := newEngine(ms, nil)

		transition, err := engine.OverrideOutCount(ctx, "r1", 3.0)

		assert.NoError(t, err)
		assert.Equal(t, 3.0, *report.OutCount)
		assert.Equal(t, 3.0, transition.OutCount)
		assert.Equal(t, moderation.StateFrozen, transition.To, "raised out-count escalates the owner")
	})
}
