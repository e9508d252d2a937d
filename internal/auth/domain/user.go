package domain

import "time"

// Scan frequency preferences.
const (
	FrequencyDaily      = "daily"
	FrequencyTwiceDaily = "twice-daily"
	FrequencyWeekly     = "weekly"
	FrequencyManual     = "manual"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // Never return password in JSON
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider"` // "email" or "google"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Delegated mailbox credentials from the Google OAuth consent flow.
	// The access token is short-lived; the refresh token lets the token
	// source re-acquire it without user interaction.
	GoogleAccessToken  string `json:"-"`
	GoogleRefreshToken string `json:"-"`

	// Scan preferences from the settings screen.
	ScanFrequency string `json:"scan_frequency"`
	ScanTime      string `json:"scan_time"` // "morning", "noon" or "evening"
	ScanKeywords  string `json:"scan_keywords"`
	AutoDetect    bool   `json:"auto_detect"`
	UnreadOnly    bool   `json:"unread_only"`

	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
}

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FCMToken represents a Firebase Cloud Messaging device token for push notifications
type FCMToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"` // Don't expose token in JSON
	DeviceInfo string    `json:"device_info"`                   // Browser/device metadata
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
