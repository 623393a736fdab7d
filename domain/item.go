package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status is the lifecycle state of an item.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone, StatusCanceled:
		return true
	}
	return false
}

// RepeatUnit describes the recurrence period of an item. It is informational
// only: nothing in the server applies it automatically.
type RepeatUnit string

const (
	RepeatNone  RepeatUnit = "none"
	RepeatDay   RepeatUnit = "day"
	RepeatMonth RepeatUnit = "month"
	RepeatYear  RepeatUnit = "year"
)

func ValidRepeatUnit(u RepeatUnit) bool {
	switch u {
	case RepeatNone, RepeatDay, RepeatMonth, RepeatYear:
		return true
	}
	return false
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is an ISO calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Item is a tracked obligation: a contract, deposit, inspection or any other
// dated responsibility registered by staff.
type Item struct {
	ID             string            `gorm:"primaryKey;size:36" json:"id"`
	Title          string            `gorm:"not null" json:"title"`
	CategoryID     uint              `gorm:"not null;index" json:"category_id"`
	Category       *Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description    string            `json:"description,omitempty"`
	RepeatUnit     RepeatUnit        `gorm:"size:16;default:none" json:"repeat_unit"`
	RepeatInterval int               `json:"repeat_interval,omitempty"`
	StartDate      string            `gorm:"type:date" json:"start_date,omitempty"`
	DueDate        string            `gorm:"type:date;not null" json:"due_date"`
	Status         Status            `gorm:"size:16;default:planned" json:"status"`
	AssigneeID     *string           `gorm:"size:36;index" json:"assignee_id,omitempty"`
	Assignee       *User             `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Amount         *float64          `json:"amount,omitempty"`
	ExtraData      datatypes.JSONMap `json:"extra_data,omitempty"`
	CreatedByID    string            `gorm:"size:36;not null" json:"created_by_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Snapshot captures the item's mutable fields as an immutable history row
// attributed to the acting user. The reason is empty for plain updates.
func (i *Item) Snapshot(actorID, reason string) ItemHistory {
	return ItemHistory{
		ItemID:      i.ID,
		Amount:      i.Amount,
		Status:      i.Status,
		DueDate:     i.DueDate,
		ExtraData:   i.ExtraData,
		AssigneeID:  i.AssigneeID,
		Reason:      reason,
		ChangedByID: actorID,
	}
}

// ItemHistory is a point-in-time snapshot of an item. Rows are append-only:
// nothing in the system mutates or deletes them.
type ItemHistory struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	ItemID      string            `gorm:"size:36;not null;index" json:"item_id"`
	Amount      *float64          `json:"amount,omitempty"`
	Status      Status            `gorm:"size:16" json:"status"`
	DueDate     string            `gorm:"type:date" json:"due_date"`
	ExtraData   datatypes.JSONMap `json:"extra_data,omitempty"`
	AssigneeID  *string           `gorm:"size:36" json:"assignee_id,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	ChangedByID string            `gorm:"size:36" json:"changed_by_id"`
	SnapshotAt  time.Time         `gorm:"autoCreateTime;index" json:"snapshot_at"`
}

func (h *ItemHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// StatusHistory records a lifecycle transition separately from the full
// snapshot trail, so status timelines can be read without decoding snapshots.
type StatusHistory struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ItemID      string    `gorm:"size:36;not null;index" json:"item_id"`
	OldStatus   Status    `gorm:"size:16" json:"old_status,omitempty"`
	NewStatus   Status    `gorm:"size:16;not null" json:"new_status"`
	ChangedByID string    `gorm:"size:36" json:"changed_by_id"`
	ChangedAt   time.Time `gorm:"autoCreateTime" json:"changed_at"`
	Note        string    `json:"note,omitempty"`
}

func (h *StatusHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
