package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the subset of the account record the moderation core owns: the
// penalty fields. The out-count itself is never stored; it is recomputed
// from upheld reports on every reevaluation.
type User struct {
	ID string `gorm:"primaryKey" json:"id"`
	// TelegramID is the delivery channel for moderation notifications.
	// Empty for users who never linked one.
	TelegramID string `gorm:"uniqueIndex" json:"-"`
	// FreezeCount is the number of freeze episodes so far. It only grows,
	// except for the reset to zero when the out-count falls below the
	// warning threshold again.
	FreezeCount int `json:"freeze_count"`
	// FrozenUntil is the end of the current freeze, nil when not frozen.
	FrozenUntil *time.Time `json:"frozen_until"`
	// IsPermanentlyBanned is one-way; no transition clears it.
	IsPermanentlyBanned bool `json:"is_permanently_banned"`
	// PreviousOutCount is the out-count from the last reevaluation.
	PreviousOutCount float64   `json:"previous_out_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate generates the user ID when it was not supplied.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// FrozenAt reports whether the account has an active freeze at the given time.
func (u *User) FrozenAt(now time.Time) bool {
	return u.FrozenUntil != nil && u.FrozenUntil.After(now)
}
