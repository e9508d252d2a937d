package usecase

import (
	"context"

	authdomain "nigest-backend/internal/auth/domain"
	authdto "nigest-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for authentication and session use cases
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	GoogleSignIn(idToken string) (*authdto.TokenResponse, error)
	GoogleAuthURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(token string) (*authdomain.User, error)

	GetScanSettings(userID string) (*authdto.ScanSettings, error)
	UpdateScanSettings(userID string, settings *authdto.ScanSettings) error

	RegisterFCMToken(userID, token, deviceInfo string) error
	UnregisterFCMToken(token string) error
}
