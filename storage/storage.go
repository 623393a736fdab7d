package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"contrack/domain"
)

// Sentinel errors surfaced to the API layer, which maps them to HTTP codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrInUse      = errors.New("in use")
	ErrValidation = errors.New("validation failed")
)

// Store provides access to the relational store. All methods are safe for
// concurrent use; the update and renew paths run their write pair inside one
// transaction so a persisted change is always paired with its snapshot.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Category{},
		&domain.Item{},
		&domain.ItemHistory{},
		&domain.StatusHistory{},
		&domain.Attachment{},
		&domain.Reminder{},
		&domain.NotificationLog{},
	); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	// SQLite allows a single writer; one pooled connection avoids busy
	// errors when writers interleave.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var defaultCategories = []string{"Insurance", "Lease", "Deposit", "Inspection"}

// Seed creates the admin account and the default categories when missing.
func (s *Store) Seed(ctx context.Context, adminPassword string) error {
	var admin domain.User
	err := s.db.WithContext(ctx).Where("username = ?", "admin").First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return fmt.Errorf("hash admin password: %w", hashErr)
		}
		admin = domain.User{
			Username:     "admin",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
			IsActive:     true,
		}
		if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Info("admin user seeded")
	} else if err != nil {
		return err
	}

	for _, name := range defaultCategories {
		var cat domain.Category
		err := s.db.WithContext(ctx).Where("name = ?", name).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.db.WithContext(ctx).Create(&domain.Category{Name: name}).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
