package domain

import "time"

// Newsletter is one recognized recurring publication. Its ID is always the
// originating Gmail message id, which makes re-scans idempotent: scanning the
// same mailbox twice upserts the same rows instead of creating duplicates.
type Newsletter struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"primaryKey;index"`
	Name             string    `json:"name"`
	SenderEmail      string    `json:"sender_email"`
	LastReceivedDate time.Time `json:"last_received_date" gorm:"index"`
	IsActive         bool      `json:"is_active"`
	Topics           []string  `json:"topics,omitempty" gorm:"serializer:json"`
	Confidence       float64   `json:"confidence,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Newsletter) TableName() string {
	return "newsletters"
}
