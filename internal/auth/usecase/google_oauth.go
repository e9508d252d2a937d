package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	authdomain "nigest-backend/internal/auth/domain"
	authdto "nigest-backend/internal/auth/dto"
	gmailsvc "nigest-backend/pkg/gmail"
)

// GoogleTokenInfo represents the response from Google's tokeninfo endpoint
type GoogleTokenInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified string `json:"email_verified"` // Google returns this as string "true" or "false"
	Sub           string `json:"sub"`
}

func (u *authUsecase) oauthConfig() *oauth2.Config {
	scopes := append([]string{"openid", "email", "profile"}, gmailsvc.Scopes...)
	return &oauth2.Config{
		ClientID:     u.config.GoogleClientID,
		ClientSecret: u.config.GoogleClientSecret,
		RedirectURL:  u.config.GoogleRedirectURI,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}
}

// GoogleAuthURL returns the consent URL for the sign-in redirect.
// Offline access is requested so the callback yields a refresh token for
// background scans; ApprovalForce guarantees Google re-issues one.
func (u *authUsecase) GoogleAuthURL(state string) string {
	return u.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleGoogleCallback exchanges the authorization code for tokens, verifies
// the embedded ID token, finds or creates the user and stores the delegated
// mailbox credentials on it.
func (u *authUsecase) HandleGoogleCallback(ctx context.Context, code string) (*authdto.TokenResponse, error) {
	token, err := u.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %v", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("no ID token in Google response")
	}

	tokenInfo, err := verifyIDToken(idToken)
	if err != nil {
		return nil, err
	}

	user, err := u.findOrCreateGoogleUser(tokenInfo)
	if err != nil {
		return nil, err
	}

	user.GoogleAccessToken = token.AccessToken
	// Google omits the refresh token on repeat consents; keep the stored one.
	if token.RefreshToken != "" {
		user.GoogleRefreshToken = token.RefreshToken
	}
	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}

	return u.generateTokens(user)
}

// GoogleSignIn verifies a client-supplied ID token and signs the user in.
// This path carries no mailbox credentials; the user still needs the
// consent flow before scanning works.
func (u *authUsecase) GoogleSignIn(idToken string) (*authdto.TokenResponse, error) {
	tokenInfo, err := verifyIDToken(idToken)
	if err != nil {
		return nil, err
	}

	user, err := u.findOrCreateGoogleUser(tokenInfo)
	if err != nil {
		return nil, err
	}

	return u.generateTokens(user)
}

func verifyIDToken(idToken string) (*GoogleTokenInfo, error) {
	url := fmt.Sprintf("https://oauth2.googleapis.com/tokeninfo?id_token=%s", idToken)

	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.New("failed to verify Google token: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to verify Google token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenInfo GoogleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.New("failed to decode Google token info: " + err.Error())
	}

	// Verify that email is verified (Google returns "true" as string)
	if tokenInfo.EmailVerified != "true" {
		return nil, errors.New("google email is not verified")
	}

	return &tokenInfo, nil
}

func (u *authUsecase) findOrCreateGoogleUser(tokenInfo *GoogleTokenInfo) (*authdomain.User, error) {
	user, err := u.userRepo.FindByEmail(tokenInfo.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = &authdomain.User{
			Email:     tokenInfo.Email,
			Name:      tokenInfo.Name,
			AvatarURL: tokenInfo.Picture,
			Provider:  "google",
			// Auto-detect newly found newsletters until the user says otherwise.
			AutoDetect: true,
		}
		if err := u.userRepo.Create(user); err != nil {
			return nil, err
		}
		return user, nil
	}

	user.Name = tokenInfo.Name
	user.AvatarURL = tokenInfo.Picture
	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
