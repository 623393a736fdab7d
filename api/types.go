package api

import (
	"context"

	"contrack/domain"
	"contrack/storage"
)

// Request bodies larger than this are rejected outright.
const maxBodySize = 256 * 1024 // 256 KiB

// ItemStore is the item service surface handlers depend on.
type ItemStore interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	ListItems(ctx context.Context, f storage.ItemFilter) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch storage.ItemPatch, actorID string) (*domain.Item, error)
	SoftDeleteItem(ctx context.Context, id string) error
	RenewItem(ctx context.Context, id string, r storage.Renewal, actorID string) (*domain.Item, error)
	ListItemHistory(ctx context.Context, itemID string) ([]domain.ItemHistory, error)
	ListStatusHistory(ctx context.Context, itemID string) ([]domain.StatusHistory, error)
}

// CategoryStore covers category administration.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id uint) (*domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) error
	UpdateCategory(ctx context.Context, id uint, patch storage.CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
}

// UserStore covers account administration.
type UserStore interface {
	CreateUser(ctx context.Context, nu storage.NewUser) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (*domain.User, error)
}

// AttachmentStore covers file-binding rows; the bytes live on disk.
type AttachmentStore interface {
	CreateAttachment(ctx context.Context, att *domain.Attachment) error
	ListAttachments(ctx context.Context, itemID string) ([]domain.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*domain.Attachment, error)
}

// ReminderStore covers reminder registration and the notification log.
type ReminderStore interface {
	CreateReminder(ctx context.Context, r *domain.Reminder) error
	ListReminders(ctx context.Context) ([]domain.Reminder, error)
	ListNotifications(ctx context.Context, itemID string) ([]domain.NotificationLog, error)
}

// Store is the full persistence surface the API wires against.
type Store interface {
	ItemStore
	CategoryStore
	UserStore
	AttachmentStore
	ReminderStore
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents reprocessing of requests carrying an Idempotency-Key.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when processing fails.
	Remove(ctx context.Context, userID, key string) error
}
