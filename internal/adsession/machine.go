package adsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
)

// Rules configures rewards for completed views
type Rules struct {
	MinWatchSeconds int
	BonusCredits    int
	RevenueMinCents int
	RevenueMaxCents int
}

// Machine drives ad sessions through started -> completed | canceled
type Machine struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	rules  Rules
	log    *slog.Logger

	// revenue draws the simulated revenue in cents, inclusive bounds
	revenue func(lo, hi int) int
	now     func() time.Time
}

// New creates an ad session machine
func New(db *gorm.DB, l *ledger.Ledger, rules Rules, log *slog.Logger) *Machine {
	return &Machine{
		db:     db,
		ledger: l,
		rules:  rules,
		log:    log,
		revenue: func(lo, hi int) int {
			if hi <= lo {
				return lo
			}
			return lo + rand.IntN(hi-lo+1)
		},
		now: time.Now,
	}
}

// Migrate creates the ad session table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Session{})
}

// Rules returns the configured reward rules
func (m *Machine) Rules() Rules {
	return m.rules
}

// Start opens a session bound to the identity's account
func (m *Machine) Start(ctx context.Context, id domain.Identity, meta Metadata) (*Session, error) {
	acc, _, err := m.ledger.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        newSessionID(),
		AccountID: acc.ID,
		Status:    domain.AdStarted,
		UserAgent: truncate(meta.UserAgent, 255),
		IP:        truncate(meta.IP, 64),
		StartedAt: m.now(),
	}
	if err := m.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, fmt.Errorf("failed to create ad session: %w", err)
	}
	m.log.Info("ad session started", "ad_session_id", s.ID, "account_id", acc.ID)
	return s, nil
}

// Complete settles a session.
// A terminal session is replayed: the stored outcome and current balance are
// returned and nothing is granted. The transition is a compare-and-set on
// status inside the same transaction as the grant.
func (m *Machine) Complete(ctx context.Context, sessionID string, watchedSeconds int) (Outcome, error) {
	var out Outcome
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s Session
		if err := tx.First(&s, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("ad session %s not found", sessionID)
			}
			return fmt.Errorf("failed to find ad session: %w", err)
		}
		l := m.ledger.InTx(tx)

		if s.Status.Terminal() {
			return m.replay(ctx, l, &s, &out)
		}

		awarded := watchedSeconds >= m.rules.MinWatchSeconds
		status := domain.AdCanceled
		if awarded {
			status = domain.AdCompleted
		}
		revenue := m.revenue(m.rules.RevenueMinCents, m.rules.RevenueMaxCents)
		completedAt := m.now()

		res := tx.Model(&Session{}).
			Where("id = ? AND status = ?", s.ID, domain.AdStarted).
			Updates(map[string]any{
				"status":          status,
				"watched_seconds": max(0, watchedSeconds),
				"revenue_cents":   revenue,
				"completed_at":    completedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete ad session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Another completion won the transition.
			if err := tx.First(&s, "id = ?", s.ID).Error; err != nil {
				return fmt.Errorf("failed to reload ad session: %w", err)
			}
			return m.replay(ctx, l, &s, &out)
		}

		var acc *ledger.Account
		var err error
		if awarded {
			acc, err = l.CreditAdView(ctx, s.AccountID, m.rules.BonusCredits, revenue)
		} else {
			acc, err = l.ByID(ctx, s.AccountID)
		}
		if err != nil {
			return err
		}

		out = Outcome{Awarded: awarded, CreditsRemaining: acc.CreditsRemaining, RevenueCents: revenue}
		m.log.Info("ad session settled", "ad_session_id", s.ID, "status", status, "watched_seconds", watchedSeconds)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (m *Machine) replay(ctx context.Context, l *ledger.Ledger, s *Session, out *Outcome) error {
	acc, err := l.ByID(ctx, s.AccountID)
	if err != nil {
		return err
	}
	*out = Outcome{
		Awarded:          s.Status == domain.AdCompleted,
		CreditsRemaining: acc.CreditsRemaining,
		RevenueCents:     s.RevenueCents,
	}
	m.log.Debug("ad session replayed", "ad_session_id", s.ID, "status", s.Status)
	return nil
}

// Get loads a session
func (m *Machine) Get(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := m.db.WithContext(ctx).First(&s, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("ad session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to find ad session: %w", err)
	}
	return &s, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
