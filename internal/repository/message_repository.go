package repository

import (
	"errors"
	"fmt"

	"ratingbot/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrDuplicateID is returned by Create when a row with the same
	// message id already exists. Callers treat it as an idempotent
	// no-op; the primary-key constraint backstops the cursor check
	// under concurrent deliveries.
	ErrDuplicateID = errors.New("message id already stored")
)

type MessageRepository interface {
	Create(message *models.Message) error
	GetByID(id int64) (*models.Message, error)
	IncrementRating(id int64) (bool, error)
	TopRated(chatID int64, minRating int64, since int64, limit int) ([]int64, error)
	MaxID() (int64, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(message *models.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %d", ErrDuplicateID, message.ID)
		}
		return fmt.Errorf("insert message %d: %w", message.ID, err)
	}
	return nil
}

// GetByID returns nil without error when no row matches, so callers can
// tell "reply target unknown" apart from a storage failure.
func (r *GormMessageRepository) GetByID(id int64) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &message, nil
}

// IncrementRating bumps the rating of the given message by one. The
// returned bool reports whether a row was actually updated.
func (r *GormMessageRepository) IncrementRating(id int64) (bool, error) {
	result := r.db.Model(&models.Message{}).
		Where("id = ?", id).
		UpdateColumn("rating", gorm.Expr("rating + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("increment rating for %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// TopRated returns up to limit message ids for the chat with
// rating >= minRating, ordered by rating descending. A since value of
// zero disables the timestamp filter. Ties keep insertion order via the
// id as a secondary sort key, which keeps results deterministic.
func (r *GormMessageRepository) TopRated(chatID int64, minRating int64, since int64, limit int) ([]int64, error) {
	var ids []int64
	query := r.db.Model(&models.Message{}).
		Where("chat_id = ? AND rating >= ?", chatID, minRating)
	if since > 0 {
		query = query.Where("timestamp >= ?", since)
	}
	err := query.Order("rating DESC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("top rated for chat %d: %w", chatID, err)
	}
	return ids, nil
}

// MaxID returns the highest stored message id, or 0 for an empty table.
// Used once at startup to seed the ingestion cursor.
func (r *GormMessageRepository) MaxID() (int64, error) {
	var maxID int64
	err := r.db.Model(&models.Message{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, fmt.Errorf("max message id: %w", err)
	}
	return maxID, nil
}
