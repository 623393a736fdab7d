package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"contrack/domain"
)

// CreateAttachment records an uploaded file for an item. The file itself is
// already on disk when this runs; a failure here leaves it orphaned, which is
// accepted (there is no cleanup path).
func (s *Store) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	if _, err := s.GetItem(ctx, att.ItemID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: item %s", ErrNotFound, att.ItemID)
		}
		return err
	}
	if err := s.db.WithContext(ctx).Create(att).Error; err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// ListAttachments returns an item's attachments, newest upload first.
func (s *Store) ListAttachments(ctx context.Context, itemID string) ([]domain.Attachment, error) {
	var atts []domain.Attachment
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("uploaded_at DESC").
		Find(&atts).Error
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return atts, nil
}

func (s *Store) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	var att domain.Attachment
	err := s.db.WithContext(ctx).First(&att, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &att, nil
}
