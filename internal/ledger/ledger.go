package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// Credits holds the configured credit amounts
type Credits struct {
	InitialFree       int
	SignupBonus       int
	AdMinWatchSeconds int
}

// Ledger owns every mutation of usage accounts.
// Every balance change is a single conditional UPDATE.
type Ledger struct {
	db      *gorm.DB
	credits Credits
	log     *slog.Logger
}

// New creates a ledger on db
func New(db *gorm.DB, credits Credits, log *slog.Logger) *Ledger {
	return &Ledger{db: db, credits: credits, log: log}
}

// Migrate creates the ledger tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}

// InTx returns a ledger bound to an open transaction
func (l *Ledger) InTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, credits: l.credits, log: l.log}
}

// AdMinWatchSeconds is the threshold quoted in out-of-credit hints
func (l *Ledger) AdMinWatchSeconds() int {
	return l.credits.AdMinWatchSeconds
}

// GetOrCreate returns the account for id, creating it on first reference.
// Registered identities start at zero; anonymous ones receive the free grant.
// The bool result reports whether the account was created by this call.
func (l *Ledger) GetOrCreate(ctx context.Context, id domain.Identity) (*Account, bool, error) {
	if id.Empty() {
		return nil, false, domain.BadRequest("anon_id or authenticated user required")
	}

	initial := l.credits.InitialFree
	if id.IsRegistered() {
		initial = 0
	}

	acc := Account{
		IdentityKey:      identityKey(id),
		UserID:           id.UserID,
		CreditsRemaining: initial,
	}
	if !id.IsRegistered() {
		acc.AnonID = id.AnonID
	}

	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "identity_key"}}, DoNothing: true}).
		Create(&acc)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create account: %w", res.Error)
	}
	created := res.RowsAffected == 1

	stored, err := l.byKey(ctx, acc.IdentityKey)
	if err != nil {
		return nil, false, err
	}
	if created {
		l.log.Info("usage account created", "account_id", stored.ID, "registered", id.IsRegistered(), "credits", stored.CreditsRemaining)
	}
	return stored, created, nil
}

// ByID loads an account
func (l *Ledger) ByID(ctx context.Context, id uint) (*Account, error) {
	var acc Account
	if err := l.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("usage account %d not found", id)
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &acc, nil
}

func (l *Ledger) byKey(ctx context.Context, key string) (*Account, error) {
	var acc Account
	if err := l.db.WithContext(ctx).First(&acc, "identity_key = ?", key).Error; err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &acc, nil
}

// ConsumeOne charges one credit and counts one message.
// It fails with InsufficientCredits when the balance is not positive at the time of the update.
func (l *Ledger) ConsumeOne(ctx context.Context, accountID uint) (*Account, error) {
	res := l.db.WithContext(ctx).Model(&Account{}).
		Where("id = ? AND credits_remaining > 0", accountID).
		Updates(map[string]any{
			"credits_remaining": gorm.Expr("credits_remaining - 1"),
			"total_messages":    gorm.Expr("total_messages + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to consume credit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the account is gone or it is out of credit.
		if _, err := l.ByID(ctx, accountID); err != nil {
			return nil, err
		}
		return nil, domain.InsufficientCredits(l.credits.AdMinWatchSeconds)
	}
	return l.ByID(ctx, accountID)
}

// Grant adds max(0, amount) credits
func (l *Ledger) Grant(ctx context.Context, accountID uint, amount int) (*Account, error) {
	amount = max(0, amount)
	res := l.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", accountID).
		Update("credits_remaining", gorm.Expr("credits_remaining + ?", amount))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to grant credits: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("usage account %d not found", accountID)
	}
	return l.ByID(ctx, accountID)
}

// CreditAdView grants the ad bonus and bumps the ad counters in one statement
func (l *Ledger) CreditAdView(ctx context.Context, accountID uint, bonus, revenueCents int) (*Account, error) {
	res := l.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"credits_remaining":   gorm.Expr("credits_remaining + ?", max(0, bonus)),
			"total_ads_viewed":    gorm.Expr("total_ads_viewed + 1"),
			"total_revenue_cents": gorm.Expr("total_revenue_cents + ?", revenueCents),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to credit ad view: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("usage account %d not found", accountID)
	}
	return l.ByID(ctx, accountID)
}

// GrantSignupBonus creates the registered account if needed and grants the
// signup bonus exactly once. The bool result reports whether this call granted it.
func (l *Ledger) GrantSignupBonus(ctx context.Context, userID string) (*Account, bool, error) {
	if userID == "" {
		return nil, false, domain.BadRequest("user_id required")
	}
	acc, _, err := l.GetOrCreate(ctx, domain.Identity{UserID: userID})
	if err != nil {
		return nil, false, err
	}

	res := l.db.WithContext(ctx).Model(&Account{}).
		Where("id = ? AND signup_bonus_granted = ?", acc.ID, false).
		Updates(map[string]any{
			"credits_remaining":    gorm.Expr("credits_remaining + ?", max(0, l.credits.SignupBonus)),
			"signup_bonus_granted": true,
		})
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to grant signup bonus: %w", res.Error)
	}
	granted := res.RowsAffected == 1
	if granted {
		l.log.Info("signup bonus granted", "account_id", acc.ID, "amount", l.credits.SignupBonus)
	}

	acc, err = l.ByID(ctx, acc.ID)
	if err != nil {
		return nil, false, err
	}
	return acc, granted, nil
}
