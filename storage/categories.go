package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"contrack/domain"
)

// CategoryPatch is a partial category update. A non-nil Fields replaces the
// whole field-definition list.
type CategoryPatch struct {
	Name        *string
	Description *string
	ColorCode   *string
	Fields      []domain.FieldDefinition
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*domain.Category, error) {
	var cat domain.Category
	err := s.db.WithContext(ctx).First(&cat, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &cat, nil
}

func (s *Store) CreateCategory(ctx context.Context, cat *domain.Category) error {
	if strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := domain.ValidateFieldDefinitions(cat.Fields.Data()); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Category{}).Where("name = ?", cat.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category %q", ErrDuplicate, cat.Name)
	}
	if err := s.db.WithContext(ctx).Create(cat).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uint, patch CategoryPatch) (*domain.Category, error) {
	var cat domain.Category
	if err := s.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		var count int64
		err := s.db.WithContext(ctx).Model(&domain.Category{}).
			Where("name = ? AND id <> ?", *patch.Name, id).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: category %q", ErrDuplicate, *patch.Name)
		}
		cat.Name = *patch.Name
	}
	if patch.Description != nil {
		cat.Description = *patch.Description
	}
	if patch.ColorCode != nil {
		cat.ColorCode = *patch.ColorCode
	}
	if patch.Fields != nil {
		if err := domain.ValidateFieldDefinitions(patch.Fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		cat.Fields = datatypes.NewJSONType(patch.Fields)
	}
	if err := s.db.WithContext(ctx).Save(&cat).Error; err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &cat, nil
}

// DeleteCategory removes a category. Deletion is refused while any item,
// including soft-deleted ones, still references it.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&domain.Item{}).
		Where("category_id = ?", id).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category %d is referenced by %d item(s)", ErrInUse, id, count)
	}
	res := s.db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
