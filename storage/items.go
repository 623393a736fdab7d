package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"contrack/domain"
)

// ItemFilter narrows ListItems. Zero-valued fields are ignored; the due-date
// range applies only when both bounds are present.
type ItemFilter struct {
	CategoryID uint
	Status     domain.Status
	AssigneeID string
	FromDate   string
	ToDate     string
}

// ItemPatch is a partial update. Nil pointers leave the field unchanged. An
// empty-string AssigneeID clears the assignee; a non-nil ExtraData replaces
// the stored extra data wholesale.
type ItemPatch struct {
	Title          *string
	CategoryID     *uint
	Description    *string
	RepeatUnit     *domain.RepeatUnit
	RepeatInterval *int
	StartDate      *string
	DueDate        *string
	Status         *domain.Status
	AssigneeID     *string
	Amount         *float64
	ExtraData      map[string]any
}

// Renewal advances an item's due date. AssigneeID is tri-state: nil leaves
// the assignee unchanged, empty string clears it, anything else sets it.
type Renewal struct {
	DueDate    string
	AssigneeID *string
	Reason     string
}

// CreateItem validates and persists a new item. Status defaults to planned
// when the caller leaves it empty.
func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if item.DueDate == "" {
		return fmt.Errorf("%w: due_date is required", ErrValidation)
	}
	if !domain.ValidDate(item.DueDate) {
		return fmt.Errorf("%w: due_date %q is not a date", ErrValidation, item.DueDate)
	}
	if item.StartDate != "" && !domain.ValidDate(item.StartDate) {
		return fmt.Errorf("%w: start_date %q is not a date", ErrValidation, item.StartDate)
	}
	if item.Status == "" {
		item.Status = domain.StatusPlanned
	} else if !domain.ValidStatus(item.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, item.Status)
	}
	if item.RepeatUnit == "" {
		item.RepeatUnit = domain.RepeatNone
	} else if !domain.ValidRepeatUnit(item.RepeatUnit) {
		return fmt.Errorf("%w: unknown repeat_unit %q", ErrValidation, item.RepeatUnit)
	}
	if ap := item.AssigneeID; ap != nil && *ap == "" {
		item.AssigneeID = nil
	}

	cat, err := s.GetCategory(ctx, item.CategoryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: category %d", ErrNotFound, item.CategoryID)
		}
		return err
	}
	if err := domain.ValidateExtraData(cat.Fields.Data(), item.ExtraData); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// ListItems returns non-deleted items matching the filter, ordered by due
// date ascending, with category and assignee joined for display.
func (s *Store) ListItems(ctx context.Context, f ItemFilter) ([]domain.Item, error) {
	q := s.db.WithContext(ctx).Model(&domain.Item{}).
		Preload("Category").
		Preload("Assignee")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssigneeID != "" {
		q = q.Where("assignee_id = ?", f.AssigneeID)
	}
	if f.FromDate != "" && f.ToDate != "" {
		q = q.Where("due_date BETWEEN ? AND ?", f.FromDate, f.ToDate)
	}
	var items []domain.Item
	if err := q.Order("due_date ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItem returns one item with category and assignee joined, or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Assignee").
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// UpdateItem applies a partial patch and appends a snapshot of the resulting
// state attributed to actorID. The patch and the snapshot commit in one
// transaction; a status change additionally records a status transition.
func (s *Store) UpdateItem(ctx context.Context, id string, patch ItemPatch, actorID string) (*domain.Item, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item domain.Item
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		prevStatus := item.Status

		if err := s.applyPatch(tx, &item, patch); err != nil {
			return err
		}
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		snap := item.Snapshot(actorID, "")
		if err := tx.Create(&snap).Error; err != nil {
			return fmt.Errorf("record snapshot: %w", err)
		}
		if item.Status != prevStatus {
			transition := domain.StatusHistory{
				ItemID:      item.ID,
				OldStatus:   prevStatus,
				NewStatus:   item.Status,
				ChangedByID: actorID,
			}
			if err := tx.Create(&transition).Error; err != nil {
				return fmt.Errorf("record status transition: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *Store) applyPatch(tx *gorm.DB, item *domain.Item, patch ItemPatch) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		item.Title = *patch.Title
	}
	if patch.CategoryID != nil {
		item.CategoryID = *patch.CategoryID
		item.Category = nil
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.RepeatUnit != nil {
		if !domain.ValidRepeatUnit(*patch.RepeatUnit) {
			return fmt.Errorf("%w: unknown repeat_unit %q", ErrValidation, *patch.RepeatUnit)
		}
		item.RepeatUnit = *patch.RepeatUnit
	}
	if patch.RepeatInterval != nil {
		item.RepeatInterval = *patch.RepeatInterval
	}
	if patch.StartDate != nil {
		if *patch.StartDate != "" && !domain.ValidDate(*patch.StartDate) {
			return fmt.Errorf("%w: start_date %q is not a date", ErrValidation, *patch.StartDate)
		}
		item.StartDate = *patch.StartDate
	}
	if patch.DueDate != nil {
		if !domain.ValidDate(*patch.DueDate) {
			return fmt.Errorf("%w: due_date %q is not a date", ErrValidation, *patch.DueDate)
		}
		item.DueDate = *patch.DueDate
	}
	if patch.Status != nil {
		if !domain.ValidStatus(*patch.Status) {
			return fmt.Errorf("%w: unknown status %q", ErrValidation, *patch.Status)
		}
		item.Status = *patch.Status
	}
	if patch.AssigneeID != nil {
		if *patch.AssigneeID == "" {
			item.AssigneeID = nil
		} else {
			item.AssigneeID = patch.AssigneeID
		}
		item.Assignee = nil
	}
	if patch.Amount != nil {
		item.Amount = patch.Amount
	}
	if patch.ExtraData != nil {
		item.ExtraData = patch.ExtraData
	}

	if patch.CategoryID != nil || patch.ExtraData != nil {
		var cat domain.Category
		if err := tx.First(&cat, "id = ?", item.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: category %d", ErrNotFound, item.CategoryID)
			}
			return err
		}
		if err := domain.ValidateExtraData(cat.Fields.Data(), item.ExtraData); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// SoftDeleteItem marks the item deleted. The row, its history, attachments
// and reminders all stay in storage; deleting an absent item is a no-op.
func (s *Store) SoftDeleteItem(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// RenewItem sets a new due date, optionally reassigns or clears the assignee,
// and always appends a snapshot carrying the renewal reason. Returns
// ErrNotFound when the item does not exist; no snapshot is written then.
func (s *Store) RenewItem(ctx context.Context, id string, r Renewal, actorID string) (*domain.Item, error) {
	if r.DueDate == "" {
		return nil, fmt.Errorf("%w: due_date is required", ErrValidation)
	}
	if !domain.ValidDate(r.DueDate) {
		return nil, fmt.Errorf("%w: due_date %q is not a date", ErrValidation, r.DueDate)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item domain.Item
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		item.DueDate = r.DueDate
		if r.AssigneeID != nil {
			// Empty string means "clear the assignee", distinct from the
			// field being absent which leaves it unchanged.
			if *r.AssigneeID == "" {
				item.AssigneeID = nil
			} else {
				item.AssigneeID = r.AssigneeID
			}
			item.Assignee = nil
		}
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("renew item: %w", err)
		}
		snap := item.Snapshot(actorID, r.Reason)
		if err := tx.Create(&snap).Error; err != nil {
			return fmt.Errorf("record snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

// ListItemHistory returns all snapshots for an item, newest first. Snapshots
// outlive the item's soft deletion.
func (s *Store) ListItemHistory(ctx context.Context, itemID string) ([]domain.ItemHistory, error) {
	var histories []domain.ItemHistory
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("snapshot_at DESC").
		Find(&histories).Error
	if err != nil {
		return nil, fmt.Errorf("list item history: %w", err)
	}
	return histories, nil
}

// ListStatusHistory returns an item's status transitions, newest first.
func (s *Store) ListStatusHistory(ctx context.Context, itemID string) ([]domain.StatusHistory, error) {
	var transitions []domain.StatusHistory
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("changed_at DESC").
		Find(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return transitions, nil
}
