package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Plan constants used across billing and entitlements.
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

// Subscription status values as delivered by the billing provider.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// DefaultStartingCredits is granted to every new profile.
const DefaultStartingCredits = 3

// Profile stores per-user credit balance, plan and subscription linkage.
// The credit balance is only ever mutated through the atomic repository
// operations (conditional decrement, expression increment) so it can never
// go negative.
type Profile struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"uniqueIndex" json:"user_id"`
	Credits            uint           `gorm:"not null;default:3" json:"credits"`
	Plan               string         `gorm:"type:varchar(20);not null;default:'FREE';index" json:"plan"`
	SubscriptionID     *string        `gorm:"type:varchar(191);default:null" json:"subscription_id,omitempty"`
	SubscriptionStatus string         `gorm:"type:varchar(32);default:''" json:"subscription_status"`
	LSCustomerID       *string        `gorm:"type:varchar(191);default:null" json:"-"`
	APIKeyHash         string         `gorm:"type:char(64);default:''" json:"-"`
	APIKeyPrefix       string         `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt    *time.Time     `json:"api_key_created_at"`
	APIKeyLastUsedAt   *time.Time     `json:"api_key_last_used_at"`
	APIKeyRevokedAt    *time.Time     `json:"api_key_revoked_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const apiKeyPrefix = "hxg_"

// GetOrCreateProfile returns existing profile or creates one with defaults.
func GetOrCreateProfile(db *gorm.DB, userID uint) (*Profile, error) {
	var p Profile
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			p = Profile{UserID: userID, Credits: DefaultStartingCredits, Plan: PlanFree}
			if err := db.Create(&p).Error; err != nil {
				return nil, err
			}
			return &p, nil
		}
		return nil, err
	}
	return &p, nil
}

// IsPro reports whether the profile currently carries the PRO plan. A
// cancelled subscription keeps PRO until the provider sends the expiry event.
func (p *Profile) IsPro() bool {
	return strings.EqualFold(p.Plan, PlanPro)
}

// HasActiveAPIKey reports whether the profile has an active API key configured.
func (p *Profile) HasActiveAPIKey() bool {
	return p != nil && p.APIKeyHash != "" && p.APIKeyRevokedAt == nil
}

// IssueAPIKey generates a new API key, persists metadata on the struct, and
// returns the raw secret. Callers must persist the struct afterwards.
func (p *Profile) IssueAPIKey() (string, error) {
	rawKey, prefix, hash, err := generateAPIKeyMaterial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	p.APIKeyHash = hash
	p.APIKeyPrefix = prefix
	p.APIKeyCreatedAt = &now
	p.APIKeyRevokedAt = nil
	p.APIKeyLastUsedAt = nil
	return rawKey, nil
}

// RevokeAPIKey clears the stored API key metadata without deleting the record.
func (p *Profile) RevokeAPIKey() {
	p.APIKeyHash = ""
	p.APIKeyPrefix = ""
	now := time.Now()
	p.APIKeyRevokedAt = &now
	p.APIKeyLastUsedAt = nil
}

func generateAPIKeyMaterial() (rawKey, prefix, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", err
	}
	secret := strings.ToLower(apiKeyEncoding.EncodeToString(buf))
	rawKey = apiKeyPrefix + secret
	if len(rawKey) > 12 {
		prefix = rawKey[:12]
	} else {
		prefix = rawKey
	}
	return rawKey, prefix, HashAPIKey(rawKey), nil
}

// HashAPIKey returns the hex SHA-256 digest used for API key lookups.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(rawKey)))
	return hex.EncodeToString(sum[:])
}
