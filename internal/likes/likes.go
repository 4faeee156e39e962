package likes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// Like is one account's preference for one character
type Like struct {
	AccountID   uint   `gorm:"primaryKey"`
	CharacterID string `gorm:"primaryKey;size:64"`
	Liked       bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for Like model.
func (Like) TableName() string {
	return "character_likes"
}

// Toggled is the state after a toggle
type Toggled struct {
	CharacterID string `json:"character_id"`
	LikedByMe   bool   `json:"liked_by_me"`
	LikesCount  int    `json:"likes_count"`
}

// Store keeps character likes
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// New creates a like store
func New(db *gorm.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Migrate creates the likes table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Like{})
}

// Counts returns the number of active likes per character
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CharacterID string
		Total       int
	}
	err := s.db.WithContext(ctx).Model(&Like{}).
		Select("character_id, COUNT(*) AS total").
		Where("liked = ?", true).
		Group("character_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.CharacterID] = r.Total
	}
	return counts, nil
}

// LikedBy returns the account's flag per character it has touched
func (s *Store) LikedBy(ctx context.Context, accountID uint) (map[string]bool, error) {
	var rows []Like
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	liked := make(map[string]bool, len(rows))
	for _, r := range rows {
		liked[r.CharacterID] = r.Liked
	}
	return liked, nil
}

// Toggle flips the account's like for a character; the first toggle likes it
func (s *Store) Toggle(ctx context.Context, accountID uint, characterID string) (Toggled, error) {
	if characterID == "" {
		return Toggled{}, domain.BadRequest("character_id required")
	}

	var out Toggled
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Like
		err := tx.First(&row, "account_id = ? AND character_id = ?", accountID, characterID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = Like{AccountID: accountID, CharacterID: characterID, Liked: true}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load like: %w", err)
		default:
			row.Liked = !row.Liked
			if err := tx.Model(&Like{}).
				Where("account_id = ? AND character_id = ?", accountID, characterID).
				Update("liked", row.Liked).Error; err != nil {
				return fmt.Errorf("failed to update like: %w", err)
			}
		}

		var count int64
		if err := tx.Model(&Like{}).Where("character_id = ? AND liked = ?", characterID, true).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count likes: %w", err)
		}
		out = Toggled{CharacterID: characterID, LikedByMe: row.Liked, LikesCount: int(count)}
		return nil
	})
	if err != nil {
		return Toggled{}, err
	}
	return out, nil
}
