package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Notification templates dispatched by the moderation core.
const (
	NotifWarning       = "moderation_warning"
	NotifFreeze        = "account_frozen"
	NotifBan           = "account_banned"
	NotifReward        = "report_reward"
	NotifThreadRemoved = "thread_removed"
	NotifRejected      = "report_rejected"
)

// Notification is the durable record of a moderation notification. Rows are
// written inside the resolve transaction; delivery happens after commit and
// a failed delivery leaves Delivered false so it can be retried. The warning
// rate limit is enforced by querying recent rows of the same template.
type Notification struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"not null;index:idx_user_template" json:"user_id"`
	Template  string         `gorm:"size:100;not null;index:idx_user_template" json:"template"`
	Vars      pq.StringArray `gorm:"type:text[]" json:"vars"`
	Delivered bool           `json:"delivered"`
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeCreate generates the notification ID when it was not supplied.
func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
