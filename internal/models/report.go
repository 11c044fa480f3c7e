package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportReason is the reporter-selected violation reason.
type ReportReason string

const (
	ReasonSpam             ReportReason = "spam"
	ReasonOffensive        ReportReason = "offensive"
	ReasonBadLink          ReportReason = "bad_link"
	ReasonUnrelated        ReportReason = "unrelated"
	ReasonOther            ReportReason = "other"
	ReasonPushingViews     ReportReason = "pushing_views"
	ReasonObstructingViews ReportReason = "obstructing_views"
	ReasonUndisclosedAdult ReportReason = "undisclosed_adult"
)

// ReasonCategory is the scoring bucket a reason belongs to. Restriction
// thresholds and default out-counts are keyed by category, not by reason.
type ReasonCategory string

const (
	CategoryGeneralViolation   ReasonCategory = "general_violation"
	CategoryIdeologyImposition ReasonCategory = "ideology_imposition"
	CategoryAdultContent       ReasonCategory = "adult_content"
)

// Categories in a fixed order, so derived reason sets are deterministic.
var ReasonCategories = []ReasonCategory{
	CategoryGeneralViolation,
	CategoryIdeologyImposition,
	CategoryAdultContent,
}

var reasonCategories = map[ReportReason]ReasonCategory{
	ReasonSpam:             CategoryGeneralViolation,
	ReasonOffensive:        CategoryGeneralViolation,
	ReasonBadLink:          CategoryGeneralViolation,
	ReasonUnrelated:        CategoryGeneralViolation,
	ReasonOther:            CategoryGeneralViolation,
	ReasonPushingViews:     CategoryIdeologyImposition,
	ReasonObstructingViews: CategoryIdeologyImposition,
	ReasonUndisclosedAdult: CategoryAdultContent,
}

// Category returns the scoring bucket for the reason, or "" if the reason
// is not recognized.
func (r ReportReason) Category() ReasonCategory {
	return reasonCategories[r]
}

// Valid reports whether the reason is a known enum value.
func (r ReportReason) Valid() bool {
	_, ok := reasonCategories[r]
	return ok
}

// Report is a user report against a thread, a response or a profile.
// Exactly one of ThreadID/ResponseID/ReportedUserID is set; use Target()
// and SetTarget() instead of touching the columns directly.
type Report struct {
	ID             string  `gorm:"primaryKey" json:"id"`
	ReporterID     *string `gorm:"index" json:"reporter_id"` // nil once the reporter account is deleted
	ThreadID       *string `gorm:"index" json:"thread_id"`
	ResponseID     *string `gorm:"index" json:"response_id"`
	ReportedUserID *string `gorm:"index" json:"reported_user_id"`
	// TargetOwnerID is the account that owns the reported content, recorded
	// at intake. For profile targets it equals the reported user. Penalty
	// recomputation sums upheld reports by this column.
	TargetOwnerID *string      `gorm:"index" json:"target_owner_id"`
	Reason        ReportReason `gorm:"size:50;not null" json:"reason"`
	Description   string       `gorm:"size:300" json:"description"`
	OutCount      *float64     `json:"out_count"` // assigned at resolution, manually overridable afterwards
	Flagged       bool         `json:"flagged"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	ApprovedAt    *time.Time   `json:"approved_at"`
	IsApproved    *bool        `json:"is_approved"` // nil = pending, true = upheld, false = rejected
}

// BeforeCreate generates the report ID when it was not supplied.
func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// Target returns the report's subject as a value type. A row with zero or
// multiple target columns set (rejected at intake, but possible on a
// corrupted row) yields a zero Target.
func (r *Report) Target() Target {
	set := 0
	var t Target
	if r.ThreadID != nil {
		set++
		t = ThreadTarget(*r.ThreadID)
	}
	if r.ResponseID != nil {
		set++
		t = ResponseTarget(*r.ResponseID)
	}
	if r.ReportedUserID != nil {
		set++
		t = ProfileTarget(*r.ReportedUserID)
	}
	if set != 1 {
		return Target{}
	}
	return t
}

// SetTarget writes the target into the matching column and clears the
// other two, keeping the exactly-one-target invariant on the row.
func (r *Report) SetTarget(t Target) {
	r.ThreadID = nil
	r.ResponseID = nil
	r.ReportedUserID = nil
	id := t.ID
	switch t.Kind {
	case TargetThread:
		r.ThreadID = &id
	case TargetResponse:
		r.ResponseID = &id
	case TargetProfile:
		r.ReportedUserID = &id
	}
}

// Pending reports whether the report has not been resolved yet.
func (r *Report) Pending() bool { return r.IsApproved == nil }

// Upheld reports whether the report was resolved as a real violation.
func (r *Report) Upheld() bool { return r.IsApproved != nil && *r.IsApproved }

// Rejected reports whether the report was resolved as not a violation.
func (r *Report) Rejected() bool { return r.IsApproved != nil && !*r.IsApproved }
