package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contrack/domain"
)

// CreateReminder registers a due-date reminder for an existing item.
func (s *Store) CreateReminder(ctx context.Context, r *domain.Reminder) error {
	if r.OffsetDays < 0 {
		return fmt.Errorf("%w: offset_days cannot be negative", ErrValidation)
	}
	if r.Channel == "" {
		r.Channel = domain.ChannelWeb
	} else if !domain.ValidChannel(r.Channel) {
		return fmt.Errorf("%w: unknown channel %q", ErrValidation, r.Channel)
	}
	if _, err := s.GetItem(ctx, r.ItemID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: item %s", ErrNotFound, r.ItemID)
		}
		return err
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

func (s *Store) ListReminders(ctx context.Context) ([]domain.Reminder, error) {
	var rs []domain.Reminder
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return rs, nil
}

// DueReminders returns active reminders whose item's due date falls within
// the reminder's offset window as of now. Reminders pointing at soft-deleted
// items or items already done/canceled are skipped.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	var rs []domain.Reminder
	err := s.db.WithContext(ctx).
		Preload("Item").
		Where("is_active = ?", true).
		Find(&rs).Error
	if err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}

	today := now.Format(domain.DateLayout)
	due := rs[:0]
	for _, r := range rs {
		// Item is nil when the preload found nothing, i.e. soft-deleted.
		if r.Item == nil {
			continue
		}
		if r.Item.Status == domain.StatusDone || r.Item.Status == domain.StatusCanceled {
			continue
		}
		dueDate, err := time.Parse(domain.DateLayout, r.Item.DueDate)
		if err != nil {
			continue
		}
		limit := dueDate.AddDate(0, 0, -r.OffsetDays).Format(domain.DateLayout)
		if today >= limit && today <= r.Item.DueDate {
			due = append(due, r)
		}
	}
	return due, nil
}

// AppendNotificationLog records one delivery attempt.
func (s *Store) AppendNotificationLog(ctx context.Context, n *domain.NotificationLog) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}

// ListNotifications returns an item's delivery log, newest first.
func (s *Store) ListNotifications(ctx context.Context, itemID string) ([]domain.NotificationLog, error) {
	var logs []domain.NotificationLog
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("sent_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return logs, nil
}

// HasNotificationSince reports whether a delivery for the item on the channel
// was already logged at or after since. The sweep uses it to avoid sending
// the same reminder more than once per day.
func (s *Store) HasNotificationSince(ctx context.Context, itemID, channel string, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.NotificationLog{}).
		Where("item_id = ? AND channel = ? AND sent_at >= ?", itemID, channel, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check notification log: %w", err)
	}
	return count > 0, nil
}
