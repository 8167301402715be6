package billing

import (
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetOrCreateProfile(userID uint) (*models.Profile, error)
	SaveProfile(profile *models.Profile) error
	IncrementCredits(userID uint, amount uint) error
	WebhookEventExists(eventID string) (bool, error)
	RecordWebhookEvent(event *models.WebhookEvent) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrCreateProfile(userID uint) (*models.Profile, error) {
	return models.GetOrCreateProfile(r.db, userID)
}

func (r *gormRepository) SaveProfile(profile *models.Profile) error {
	return r.db.Save(profile).Error
}

// IncrementCredits adds credits as a single SQL expression update. Reading
// the balance first and writing it back would lose grants under concurrent
// webhook deliveries.
func (r *gormRepository) IncrementCredits(userID uint, amount uint) error {
	if amount == 0 {
		return nil
	}
	return r.db.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error
}

func (r *gormRepository) WebhookEventExists(eventID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}

// RecordWebhookEvent persists the processed event, ignoring duplicate event
// IDs. The unique index is the backstop for deliveries racing past the
// existence check.
func (r *gormRepository) RecordWebhookEvent(event *models.WebhookEvent) (bool, error) {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now()
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
