package repository

import (
	"errors"
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"gorm.io/gorm"
)

// ErrInsufficientCredits is returned by DecrementCreditIfAvailable when the
// profile's balance is already zero. The balance can never go negative.
var ErrInsufficientCredits = errors.New("insufficient credits")

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.Profile, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// ProfileRepository defines the interface for credit and plan operations.
// Credit mutations go through the atomic methods only.
type ProfileRepository interface {
	GetOrCreateByUserID(userID uint) (*models.Profile, error)
	GetByUserID(userID uint) (*models.Profile, error)
	GetBySubscriptionID(subscriptionID string) (*models.Profile, error)
	Update(profile *models.Profile) error
	// DecrementCreditIfAvailable charges one credit if and only if the
	// balance is positive. Returns ErrInsufficientCredits otherwise.
	DecrementCreditIfAvailable(userID uint) error
	// IncrementCredits adds the given amount as a single SQL expression
	// update so concurrent grants never lose writes.
	IncrementCredits(userID uint, amount uint) error
}

// ScanRepository defines the interface for scan-related database operations
type ScanRepository interface {
	Create(scan *models.Scan) error
	GetByID(id uint) (*models.Scan, error)
	GetByUUID(uuid string) (*models.Scan, error)
	GetByShareLink(shareLink string) (*models.Scan, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Scan, error)
	Update(scan *models.Scan) error
	Delete(id uint) error
	Count() (int64, error)
	CountByUserID(userID uint) (int64, error)
	CountByStatus(status string) (int64, error)
	GetPublicScans(offset, limit int) ([]models.Scan, error)
	GetRecentScans(limit int) ([]models.Scan, error)
	SearchPublic(query string) ([]models.Scan, error)
	// UpdatePendingStatus moves a scan between non-terminal statuses. It is
	// a no-op once a terminal status has been written.
	UpdatePendingStatus(uuid string, status string) error
	// WriteTerminalResult writes the analysis outcome exactly once. The
	// returned bool reports whether this call performed the write; false
	// means another writer already finalized the scan.
	WriteTerminalResult(uuid string, result *models.Scan) (bool, error)
	UpdateViewCount(id uint) error
	AddLike(userID, scanID uint) (bool, error)
	RemoveLike(userID, scanID uint) (bool, error)
	HasLiked(userID, scanID uint) (bool, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// WebhookEventRepository defines the interface for billing event deduplication
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event record, ignoring duplicates. The
	// returned bool is true when this call inserted the row.
	CreateIfNotExists(event *models.WebhookEvent) (bool, error)
	ExistsByEventID(eventID string) (bool, error)
	Count() (int64, error)
}

// QueueRepository defines the interface for cache/queue operations
type QueueRepository interface {
	GetAllKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	DeleteKey(key string) (int64, error)
	GetListLength(key string) (int64, error)
	FindKeysByPatterns(patterns []string) ([]string, error)
	DeleteKeys(keys []string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Profile      ProfileRepository
	Scan         ScanRepository
	WebhookEvent WebhookEventRepository
	Queue        QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Profile:      NewProfileRepository(db),
		Scan:         NewScanRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Queue:        NewQueueRepository(),
	}
}
