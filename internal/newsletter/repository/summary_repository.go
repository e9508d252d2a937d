package repository

import (
	"errors"

	"gorm.io/gorm"

	"nigest-backend/internal/newsletter/domain"
)

// SummaryRepository persists generated digests. Summaries are append-only;
// the read flag is the only mutation.
type SummaryRepository interface {
	Create(summary *domain.Summary) error
	ListByUser(userID string) ([]*domain.Summary, error)
	FindByID(userID, id string) (*domain.Summary, error)
	MarkRead(userID, id string) error
}

type summaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{
		db: db,
	}
}

func (r *summaryRepository) Create(summary *domain.Summary) error {
	return r.db.Create(summary).Error
}

func (r *summaryRepository) ListByUser(userID string) ([]*domain.Summary, error) {
	var summaries []*domain.Summary
	err := r.db.
		Where("user_id = ?", userID).
		Order("date_generated DESC").
		Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *summaryRepository) FindByID(userID, id string) (*domain.Summary, error) {
	var summary domain.Summary
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (r *summaryRepository) MarkRead(userID, id string) error {
	result := r.db.Model(&domain.Summary{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
