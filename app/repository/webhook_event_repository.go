package repository

import (
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the event keyed by its provider event ID. The
// unique index plus ON CONFLICT DO NOTHING makes redelivered events a no-op;
// RowsAffected tells the caller whether this delivery won the insert.
func (r *webhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, error) {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now()
	}
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExistsByEventID reports whether an event has already been recorded
func (r *webhookEventRepository) ExistsByEventID(eventID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}

// Count returns the total number of recorded webhook events
func (r *webhookEventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).Count(&count).Error
	return count, err
}
