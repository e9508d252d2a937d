package dto

import authdomain "nigest-backend/internal/auth/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type GoogleSignInRequest struct {
	Token string `json:"token" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *authdomain.User `json:"user"`
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

type ScanSettings struct {
	Frequency  string `json:"frequency" binding:"omitempty,oneof=daily twice-daily weekly manual"`
	Time       string `json:"time" binding:"omitempty,oneof=morning noon evening"`
	Keywords   string `json:"keywords"`
	AutoDetect bool   `json:"auto_detect"`
	UnreadOnly bool   `json:"unread_only"`
}
