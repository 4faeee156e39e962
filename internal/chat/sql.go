package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

type roomRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;not null"`
	Kind      string `gorm:"size:16;not null"`
	OwnerID   string `gorm:"size:64;index"`
	Archived  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (roomRecord) TableName() string { return "chat_rooms" }

type participantRecord struct {
	RoomID        string `gorm:"primaryKey;size:64"`
	ParticipantID string `gorm:"primaryKey;size:64"`
	Position      int    `gorm:"not null"`
	DisplayName   string `gorm:"size:255;not null"`
	Kind          string `gorm:"size:16;not null"`
	Alive         bool   `gorm:"not null"`
	Held          bool   `gorm:"not null;default:false"`
	PersonaNotes  string `gorm:"type:text"`
	CharacterID   string `gorm:"size:64"`
}

func (participantRecord) TableName() string { return "chat_participants" }

// messageRecord.Seq defines log order; timestamps may collide
type messageRecord struct {
	Seq        uint      `gorm:"primaryKey;autoIncrement"`
	ID         string    `gorm:"size:64;uniqueIndex;not null"`
	RoomID     string    `gorm:"size:64;index;not null"`
	SenderID   string    `gorm:"size:64;not null"`
	SenderName string    `gorm:"size:255;not null"`
	Content    string    `gorm:"type:text;not null"`
	Timestamp  time.Time `gorm:"not null"`
}

func (messageRecord) TableName() string { return "chat_messages" }

func (m messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		RoomID:     m.RoomID,
	}
}

func (p participantRecord) toDomain() domain.Participant {
	return domain.Participant{
		ID:           p.ParticipantID,
		DisplayName:  p.DisplayName,
		Kind:         domain.ParticipantKind(p.Kind),
		Alive:        p.Alive,
		PersonaNotes: p.PersonaNotes,
		CharacterID:  p.CharacterID,
	}
}

// Summary is one row of an owner's chat list
type Summary struct {
	ChatID      string     `json:"chat_id"`
	AgentName   string     `json:"ai_name"`
	Name        string     `json:"name"`
	Archived    bool       `json:"is_archived"`
	LastMessage *string    `json:"last_message"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// SQLStore is the durable store backed by gorm
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a durable store on db
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the chat tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&roomRecord{}, &participantRecord{}, &messageRecord{})
}

func (s *SQLStore) CreateRoom(ctx context.Context, spec RoomSpec) (*domain.Room, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	id := spec.ID
	if id == "" {
		id = domain.NewRoomID(spec.Kind)
	}

	rec := roomRecord{ID: id, Name: spec.Name, Kind: string(spec.Kind), OwnerID: spec.OwnerID}
	parts := lo.UniqBy(spec.Participants, func(p domain.Participant) string { return p.ID })

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		rows := lo.Map(parts, func(p domain.Participant, i int) participantRecord {
			return participantRecord{
				RoomID:        id,
				ParticipantID: p.ID,
				Position:      i,
				DisplayName:   p.DisplayName,
				Kind:          string(p.Kind),
				Alive:         p.Alive,
				PersonaNotes:  p.PersonaNotes,
				CharacterID:   p.CharacterID,
			}
		})
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to add participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Room(ctx, id)
}

func (s *SQLStore) Room(ctx context.Context, roomID string) (*domain.Room, error) {
	var rec roomRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("chat %s not found", roomID)
		}
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}

	parts, err := s.participantRows(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &domain.Room{
		ID:           rec.ID,
		Name:         rec.Name,
		Kind:         domain.RoomKind(rec.Kind),
		OwnerID:      rec.OwnerID,
		Archived:     rec.Archived,
		Participants: lo.Map(parts, func(p participantRecord, _ int) string { return p.ParticipantID }),
		Held: lo.FilterMap(parts, func(p participantRecord, _ int) (string, bool) {
			return p.ParticipantID, p.Held
		}),
	}, nil
}

func (s *SQLStore) participantRows(ctx context.Context, roomID string) ([]participantRecord, error) {
	var rows []participantRecord
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	return rows, nil
}

func (s *SQLStore) Participants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	if _, err := s.Room(ctx, roomID); err != nil {
		return nil, err
	}
	rows, err := s.participantRows(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p participantRecord, _ int) domain.Participant { return p.toDomain() }), nil
}

func (s *SQLStore) Append(ctx context.Context, msg domain.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&roomRecord{}).Where("id = ?", msg.RoomID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to find chat: %w", err)
		}
		if count == 0 {
			return domain.NotFound("chat %s not found", msg.RoomID)
		}

		if err := tx.Model(&participantRecord{}).
			Where("room_id = ? AND participant_id = ?", msg.RoomID, msg.SenderID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
		if count == 0 {
			return domain.Forbidden("%s is not in chat %s", msg.SenderID, msg.RoomID)
		}

		rec := messageRecord{
			ID:         msg.ID,
			RoomID:     msg.RoomID,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Content:    msg.Content,
			Timestamp:  msg.Timestamp,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Recent(ctx context.Context, roomID string, n int) ([]domain.Message, error) {
	if _, err := s.Room(ctx, roomID); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []domain.Message{}, nil
	}

	var rows []messageRecord
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq DESC").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	slices.Reverse(rows)
	return lo.Map(rows, func(m messageRecord, _ int) domain.Message { return m.toDomain() }), nil
}

func (s *SQLStore) Hold(ctx context.Context, roomID, agentID string) error {
	var p participantRecord
	err := s.db.WithContext(ctx).First(&p, "room_id = ? AND participant_id = ?", roomID, agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound("agent %s not in chat %s", agentID, roomID)
	}
	if err != nil {
		return fmt.Errorf("failed to find participant: %w", err)
	}
	if domain.ParticipantKind(p.Kind) != domain.ParticipantAgent {
		return domain.BadRequest("%s is not an agent", agentID)
	}
	if err := s.db.WithContext(ctx).Model(&participantRecord{}).
		Where("room_id = ? AND participant_id = ?", roomID, agentID).
		Update("held", true).Error; err != nil {
		return fmt.Errorf("failed to hold agent: %w", err)
	}
	return nil
}

// OwnedRoom returns a room owned by ownerID, or NotFound
func (s *SQLStore) OwnedRoom(ctx context.Context, roomID, ownerID string) (*domain.Room, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != ownerID {
		return nil, domain.NotFound("chat %s not found", roomID)
	}
	return room, nil
}

// All returns the whole log of a room in insertion order
func (s *SQLStore) All(ctx context.Context, roomID string) ([]domain.Message, error) {
	var rows []messageRecord
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return lo.Map(rows, func(m messageRecord, _ int) domain.Message { return m.toDomain() }), nil
}

// ListOwned summarises an owner's chats, newest first
func (s *SQLStore) ListOwned(ctx context.Context, ownerID string) ([]Summary, error) {
	var rooms []roomRecord
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		sum := Summary{ChatID: r.ID, Name: r.Name, Archived: r.Archived}

		var agent participantRecord
		err := s.db.WithContext(ctx).
			Where("room_id = ? AND kind = ?", r.ID, string(domain.ParticipantAgent)).
			Order("position ASC").
			Limit(1).
			Find(&agent).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load agent: %w", err)
		}
		sum.AgentName = agent.DisplayName

		var last []messageRecord
		if err := s.db.WithContext(ctx).
			Where("room_id = ?", r.ID).
			Order("seq DESC").
			Limit(1).
			Find(&last).Error; err != nil {
			return nil, fmt.Errorf("failed to load last message: %w", err)
		}
		if len(last) == 1 {
			sum.LastMessage = &last[0].Content
			sum.UpdatedAt = &last[0].Timestamp
		}
		out = append(out, sum)
	}
	return out, nil
}

// Archive marks an owned chat as left. The bool result reports whether it was already archived.
func (s *SQLStore) Archive(ctx context.Context, roomID, ownerID string) (bool, error) {
	room, err := s.OwnedRoom(ctx, roomID, ownerID)
	if err != nil {
		return false, err
	}
	if room.Archived {
		return true, nil
	}
	if err := s.db.WithContext(ctx).Model(&roomRecord{}).
		Where("id = ?", roomID).
		Update("archived", true).Error; err != nil {
		return false, fmt.Errorf("failed to archive chat: %w", err)
	}
	return false, nil
}
