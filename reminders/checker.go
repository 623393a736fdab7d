package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"contrack/domain"
)

// Store is the persistence surface the sweep needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time) ([]domain.Reminder, error)
	HasNotificationSince(ctx context.Context, itemID, channel string, since time.Time) (bool, error)
	AppendNotificationLog(ctx context.Context, n *domain.NotificationLog) error
}

// Checker periodically finds reminders whose item is inside its notification
// window and records one delivery per item and day. Deliveries are not
// retried: every attempt writes exactly one log row.
type Checker struct {
	store  Store
	logger *log.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewChecker(store Store, logger *log.Logger) *Checker {
	return &Checker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the sweep at the given interval.
func (c *Checker) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	c.cron = cron.New()
	spec := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := c.cron.AddFunc(spec, func() {
		if err := c.Sweep(context.Background()); err != nil {
			c.logger.WithError(err).Error("reminder sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (c *Checker) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// Sweep runs one pass over the due reminders.
func (c *Checker) Sweep(ctx context.Context) error {
	now := c.now()
	due, err := c.store.DueReminders(ctx, now)
	if err != nil {
		return err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, r := range due {
		channel := string(r.Channel)
		sent, err := c.store.HasNotificationSince(ctx, r.ItemID, channel, startOfDay)
		if err != nil {
			return err
		}
		if sent {
			continue
		}

		entry := domain.NotificationLog{
			ItemID:  r.ItemID,
			UserID:  recipient(r.Item),
			Channel: channel,
			Status:  domain.NotificationSuccess,
		}
		if deliverErr := c.deliver(r); deliverErr != nil {
			entry.Status = domain.NotificationFailure
			entry.ErrorMessage = deliverErr.Error()
		}
		if err := c.store.AppendNotificationLog(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}

// deliver performs the actual notification. The web channel surfaces through
// the notification log itself (the dashboard polls it), so delivery is the
// structured event below. Email is not wired to a mailer.
func (c *Checker) deliver(r domain.Reminder) error {
	switch r.Channel {
	case domain.ChannelWeb:
		c.logger.WithFields(log.Fields{
			"item_id":  r.ItemID,
			"due_date": r.Item.DueDate,
			"title":    r.Item.Title,
		}).Info("reminder due")
		return nil
	case domain.ChannelEmail:
		return fmt.Errorf("email delivery not configured")
	default:
		return fmt.Errorf("unknown channel %q", r.Channel)
	}
}

func recipient(item *domain.Item) string {
	if item == nil {
		return ""
	}
	if item.AssigneeID != nil && *item.AssigneeID != "" {
		return *item.AssigneeID
	}
	return item.CreatedByID
}
