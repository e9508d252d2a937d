package domain

import "time"

// Summary is one AI-generated digest over a batch of newsletters. Summaries
// are immutable after creation except for the read flag; every generation
// produces a new record.
type Summary struct {
	ID                    string    `json:"id" gorm:"primaryKey"`
	UserID                string    `json:"user_id" gorm:"index;not null"`
	Title                 string    `json:"title"`
	SummaryContent        string    `json:"summary_content" gorm:"type:text"`
	Topics                []string  `json:"topics" gorm:"serializer:json"`
	OriginalNewsletterIDs []string  `json:"original_newsletter_ids" gorm:"serializer:json"`
	DateGenerated         time.Time `json:"date_generated" gorm:"index"`
	IsRead                bool      `json:"is_read"`
}

func (Summary) TableName() string {
	return "summaries"
}
