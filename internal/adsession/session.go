package adsession

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// Session is one rewarded-ad viewing attempt
type Session struct {
	ID             string          `gorm:"primaryKey;size:64"`
	AccountID      uint            `gorm:"index;not null"`
	Status         domain.AdStatus `gorm:"size:16;not null;default:started"`
	WatchedSeconds int             `gorm:"not null;default:0"`
	RevenueCents   int             `gorm:"not null;default:0"`
	UserAgent      string          `gorm:"size:255"`
	IP             string          `gorm:"size:64"`
	StartedAt      time.Time       `gorm:"not null"`
	CompletedAt    *time.Time
}

// TableName returns the table name for Session model.
func (Session) TableName() string {
	return "ad_sessions"
}

// Metadata describes the client that started a session
type Metadata struct {
	UserAgent string
	IP        string
}

// Outcome is the result reported for a completion, identical on replay
type Outcome struct {
	Awarded          bool
	CreditsRemaining int
	RevenueCents     int
}

// RevenueUSD converts the simulated revenue to dollars
func (o Outcome) RevenueUSD() float64 {
	return float64(o.RevenueCents) / 100.0
}

func newSessionID() string {
	return fmt.Sprintf("ad_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
