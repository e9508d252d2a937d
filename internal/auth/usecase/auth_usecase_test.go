package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "nigest-backend/internal/auth/domain"
	authdto "nigest-backend/internal/auth/dto"
	"nigest-backend/pkg/config"
)

type fakeUserRepo struct {
	users         map[string]*authdomain.User
	refreshTokens map[string]*authdomain.RefreshToken
	nextID        int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:         make(map[string]*authdomain.User),
		refreshTokens: make(map[string]*authdomain.RefreshToken),
	}
}

func (r *fakeUserRepo) Create(user *authdomain.User) error {
	r.nextID++
	user.ID = "user-" + time.Now().Format("150405") + "-" + string(rune('a'+r.nextID))
	if user.ScanFrequency == "" {
		user.ScanFrequency = authdomain.FrequencyDaily
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindScannable() ([]*authdomain.User, error) { return nil, nil }

func (r *fakeUserRepo) SaveRefreshToken(token *authdomain.RefreshToken) error {
	r.refreshTokens[token.Token] = token
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return r.refreshTokens[token], nil
}

func (r *fakeUserRepo) DeleteRefreshToken(token string) error {
	delete(r.refreshTokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteRefreshTokensByUser(userID string) error {
	for k, v := range r.refreshTokens {
		if v.UserID == userID {
			delete(r.refreshTokens, k)
		}
	}
	return nil
}

type fakeFCMRepo struct {
	tokens map[string]string // token -> userID
}

func newFakeFCMRepo() *fakeFCMRepo {
	return &fakeFCMRepo{tokens: make(map[string]string)}
}

func (r *fakeFCMRepo) SaveToken(userID, token, deviceInfo string) error {
	r.tokens[token] = userID
	return nil
}

func (r *fakeFCMRepo) GetTokensByUserID(userID string) ([]authdomain.FCMToken, error) {
	var out []authdomain.FCMToken
	for token, uid := range r.tokens {
		if uid == userID {
			out = append(out, authdomain.FCMToken{Token: token, UserID: uid})
		}
	}
	return out, nil
}

func (r *fakeFCMRepo) DeleteToken(token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeFCMRepo) DeleteTokensByUserID(userID string) error {
	for token, uid := range r.tokens {
		if uid == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

func newTestAuthUsecase() (AuthUsecase, *fakeUserRepo, *fakeFCMRepo) {
	userRepo := newFakeUserRepo()
	fcmRepo := newFakeFCMRepo()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 7 * 24 * time.Hour,
	}
	return NewAuthUsecase(userRepo, fcmRepo, cfg), userRepo, fcmRepo
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _, _ := newTestAuthUsecase()

	resp, err := uc.Register(&authdto.RegisterRequest{
		Email:    "alice@example.com",
		Password: "hunter22",
		Name:     "Alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "email", resp.User.Provider)
	assert.Equal(t, authdomain.FrequencyDaily, resp.User.ScanFrequency)

	login, err := uc.Login(&authdto.LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc, _, _ := newTestAuthUsecase()

	_, err := uc.Register(&authdto.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = uc.Register(&authdto.RegisterRequest{Email: "alice@example.com", Password: "other"})
	assert.EqualError(t, err, "email already registered")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	uc, _, _ := newTestAuthUsecase()

	_, err := uc.Register(&authdto.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = uc.Login(&authdto.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.EqualError(t, err, "invalid email or password")

	_, err = uc.Login(&authdto.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.EqualError(t, err, "invalid email or password")
}

func TestLoginRejectsGoogleAccount(t *testing.T) {
	uc, userRepo, _ := newTestAuthUsecase()
	userRepo.Create(&authdomain.User{Email: "g@example.com", Provider: "google"})

	_, err := uc.Login(&authdto.LoginRequest{Email: "g@example.com", Password: "whatever"})
	assert.EqualError(t, err, "please use Google Sign-In for this account")
}

func TestValidateTokenRoundTrip(t *testing.T) {
	uc, _, _ := newTestAuthUsecase()

	resp, err := uc.Register(&authdto.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	user, err := uc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = uc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestRefreshTokenFlow(t *testing.T) {
	uc, userRepo, _ := newTestAuthUsecase()

	resp, err := uc.Register(&authdto.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	refreshed, err := uc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)
	assert.NotEmpty(t, refreshed.AccessToken)

	// A token the server no longer stores is rejected even if its
	// signature still verifies.
	require.NoError(t, uc.Logout(resp.RefreshToken))
	_, err = uc.RefreshToken(resp.RefreshToken)
	assert.EqualError(t, err, "refresh token expired")

	// An expired stored token is rejected too.
	stored := refreshed.RefreshToken
	userRepo.refreshTokens[stored].ExpiresAt = time.Now().Add(-time.Hour)
	_, err = uc.RefreshToken(stored)
	assert.EqualError(t, err, "refresh token expired")
}

func TestScanSettings(t *testing.T) {
	uc, userRepo, _ := newTestAuthUsecase()

	user := &authdomain.User{Email: "alice@example.com", Provider: "google", ScanTime: "morning"}
	require.NoError(t, userRepo.Create(user))

	err := uc.UpdateScanSettings(user.ID, &authdto.ScanSettings{
		Frequency:  authdomain.FrequencyWeekly,
		Time:       "evening",
		Keywords:   "newsletter,crypto",
		AutoDetect: true,
		UnreadOnly: true,
	})
	require.NoError(t, err)

	settings, err := uc.GetScanSettings(user.ID)
	require.NoError(t, err)
	assert.Equal(t, authdomain.FrequencyWeekly, settings.Frequency)
	assert.Equal(t, "evening", settings.Time)
	assert.Equal(t, "newsletter,crypto", settings.Keywords)
	assert.True(t, settings.AutoDetect)
	assert.True(t, settings.UnreadOnly)

	// Empty frequency and time leave the stored values alone.
	err = uc.UpdateScanSettings(user.ID, &authdto.ScanSettings{Keywords: ""})
	require.NoError(t, err)

	settings, err = uc.GetScanSettings(user.ID)
	require.NoError(t, err)
	assert.Equal(t, authdomain.FrequencyWeekly, settings.Frequency)
	assert.Equal(t, "evening", settings.Time)
	assert.Equal(t, "", settings.Keywords)
	assert.False(t, settings.AutoDetect)
}

func TestFCMTokenRegistration(t *testing.T) {
	uc, userRepo, fcmRepo := newTestAuthUsecase()

	user := &authdomain.User{Email: "alice@example.com", Provider: "email"}
	require.NoError(t, userRepo.Create(user))

	require.NoError(t, uc.RegisterFCMToken(user.ID, "device-token-1", "pixel"))
	tokens, err := fcmRepo.GetTokensByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	require.NoError(t, uc.UnregisterFCMToken("device-token-1"))
	tokens, err = fcmRepo.GetTokensByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
