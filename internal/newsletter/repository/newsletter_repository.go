package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nigest-backend/internal/newsletter/domain"
)

// NewsletterRepository persists recognized newsletters per user.
type NewsletterRepository interface {
	// Upsert creates the record or merges its fields into the existing row
	// keyed by (user_id, id). Re-scans are idempotent.
	Upsert(newsletter *domain.Newsletter) error
	ListByUser(userID string) ([]*domain.Newsletter, error)
	FindByID(userID, id string) (*domain.Newsletter, error)
}

type newsletterRepository struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{
		db: db,
	}
}

func (r *newsletterRepository) Upsert(newsletter *domain.Newsletter) error {
	now := time.Now()
	newsletter.UpdatedAt = now
	if newsletter.CreatedAt.IsZero() {
		newsletter.CreatedAt = now
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "sender_email", "last_received_date", "is_active", "topics", "confidence", "updated_at",
		}),
	}).Create(newsletter).Error
}

func (r *newsletterRepository) ListByUser(userID string) ([]*domain.Newsletter, error) {
	var newsletters []*domain.Newsletter
	err := r.db.
		Where("user_id = ?", userID).
		Order("last_received_date DESC").
		Find(&newsletters).Error
	if err != nil {
		return nil, err
	}
	return newsletters, nil
}

func (r *newsletterRepository) FindByID(userID, id string) (*domain.Newsletter, error) {
	var newsletter domain.Newsletter
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&newsletter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &newsletter, nil
}
