package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderChannel selects how a reminder is delivered.
type ReminderChannel string

const (
	ChannelWeb   ReminderChannel = "web"
	ChannelEmail ReminderChannel = "email"
)

func ValidChannel(c ReminderChannel) bool {
	return c == ChannelWeb || c == ChannelEmail
}

// Reminder asks for a notification a fixed number of days before an item's
// due date.
type Reminder struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	ItemID     string          `gorm:"size:36;not null;index" json:"item_id"`
	Item       *Item           `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	OffsetDays int             `gorm:"not null" json:"offset_days"`
	Channel    ReminderChannel `gorm:"size:16;default:web" json:"channel"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (r *Reminder) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// NotificationStatus records the outcome of one delivery attempt.
type NotificationStatus string

const (
	NotificationSuccess NotificationStatus = "success"
	NotificationFailure NotificationStatus = "failure"
)

// NotificationLog is the audit row written for every reminder delivery
// attempt. There are no retries: one attempt, one row.
type NotificationLog struct {
	ID           string             `gorm:"primaryKey;size:36" json:"id"`
	ItemID       string             `gorm:"size:36;not null;index" json:"item_id"`
	UserID       string             `gorm:"size:36" json:"user_id"`
	Channel      string             `gorm:"size:16" json:"channel"`
	SentAt       time.Time          `gorm:"autoCreateTime" json:"sent_at"`
	Status       NotificationStatus `gorm:"size:16;not null" json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

func (n *NotificationLog) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
