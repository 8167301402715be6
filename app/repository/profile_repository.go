package repository

import (
	"github.com/HexGuardSec/HexGuard/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetOrCreateByUserID returns the user's profile, creating it with the
// default starting balance and the FREE plan on first access.
func (r *profileRepository) GetOrCreateByUserID(userID uint) (*models.Profile, error) {
	return models.GetOrCreateProfile(r.db, userID)
}

// GetByUserID retrieves a profile by user ID
func (r *profileRepository) GetByUserID(userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetBySubscriptionID retrieves the profile linked to a billing subscription
func (r *profileRepository) GetBySubscriptionID(subscriptionID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.Where("subscription_id = ?", subscriptionID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update persists the profile
func (r *profileRepository) Update(profile *models.Profile) error {
	return r.db.Save(profile).Error
}

// DecrementCreditIfAvailable charges one credit with a single conditional
// UPDATE. The credits > 0 predicate makes the charge atomic under concurrent
// submissions: of N racing requests against a balance of one, exactly one
// matches a row.
func (r *profileRepository) DecrementCreditIfAvailable(userID uint) error {
	result := r.db.Model(&models.Profile{}).
		Where("user_id = ? AND credits > 0", userID).
		UpdateColumn("credits", gorm.Expr("credits - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// IncrementCredits grants credits via an expression update so concurrent
// webhook deliveries never lose a grant to a stale read.
func (r *profileRepository) IncrementCredits(userID uint, amount uint) error {
	if amount == 0 {
		return nil
	}
	return r.db.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error
}
