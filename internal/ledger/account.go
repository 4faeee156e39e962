package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// Account is the credit and usage row of one identity
type Account struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	IdentityKey        string    `gorm:"size:96;uniqueIndex;not null" json:"-"`
	UserID             string    `gorm:"size:64;index" json:"user_id,omitempty"`
	AnonID             string    `gorm:"size:64;index" json:"anon_id,omitempty"`
	CreditsRemaining   int       `gorm:"not null;default:0" json:"credits_remaining"`
	TotalMessages      int       `gorm:"not null;default:0" json:"total_messages"`
	TotalAdsViewed     int       `gorm:"not null;default:0" json:"total_ads_viewed"`
	TotalRevenueCents  int       `gorm:"not null;default:0" json:"total_revenue_cents"`
	SignupBonusGranted bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the table name for Account model.
func (Account) TableName() string {
	return "usage_accounts"
}

// Identity returns the immutable identity the account belongs to
func (a *Account) Identity() domain.Identity {
	return domain.Identity{UserID: a.UserID, AnonID: a.AnonID}
}

// identityKey namespaces user and anonymous ids so they can share one unique column
func identityKey(id domain.Identity) string {
	if id.IsRegistered() {
		return "user:" + id.UserID
	}
	return "anon:" + id.AnonID
}

// NewAnonID mints a fresh anonymous token, e.g. "anon_1a2b3c4d5e6f"
func NewAnonID() string {
	return fmt.Sprintf("anon_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
