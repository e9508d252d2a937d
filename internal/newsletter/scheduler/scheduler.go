package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	authdomain "nigest-backend/internal/auth/domain"
	authrepo "nigest-backend/internal/auth/repository"
	"nigest-backend/internal/newsletter/usecase"
	"nigest-backend/pkg/fcm"
)

// ScanScheduler runs periodic mailbox scans for users with an automatic
// scan frequency and pushes an FCM notification when new newsletters
// turn up.
type ScanScheduler struct {
	userRepo  authrepo.UserRepository
	fcmRepo   authrepo.FCMTokenRepository
	fcmClient *fcm.Client
	usecase   usecase.NewsletterUsecase
	interval  time.Duration
	stopChan  chan struct{}
}

func NewScanScheduler(
	userRepo authrepo.UserRepository,
	fcmRepo authrepo.FCMTokenRepository,
	fcmClient *fcm.Client,
	uc usecase.NewsletterUsecase,
	interval time.Duration,
) *ScanScheduler {
	return &ScanScheduler{
		userRepo:  userRepo,
		fcmRepo:   fcmRepo,
		fcmClient: fcmClient,
		usecase:   uc,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduler loop.
func (s *ScanScheduler) Start() {
	log.Printf("[ScanScheduler] Starting newsletter scan scheduler (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runDueScans()
			case <-s.stopChan:
				log.Println("[ScanScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *ScanScheduler) Stop() {
	close(s.stopChan)
}

// runDueScans scans every user whose schedule has come due.
func (s *ScanScheduler) runDueScans() {
	users, err := s.userRepo.FindScannable()
	if err != nil {
		log.Printf("[ScanScheduler] Error finding scannable users: %v", err)
		return
	}

	now := time.Now()
	for _, user := range users {
		if !scanDue(user, now) {
			continue
		}
		s.scanUser(user)
	}
}

func (s *ScanScheduler) scanUser(user *authdomain.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	found, err := s.usecase.ScanNewsletters(ctx, user.ID)
	if err != nil {
		// A scan the user kicked off manually is already running; fine.
		if errors.Is(err, usecase.ErrActionInProgress) {
			return
		}
		log.Printf("[ScanScheduler] Scan failed for user %s: %v", user.ID, err)
		return
	}

	log.Printf("[ScanScheduler] Scanned user %s: %d newsletters", user.ID, len(found))
	if len(found) > 0 {
		s.notify(user.ID, len(found))
	}
}

func (s *ScanScheduler) notify(userID string, count int) {
	if s.fcmClient == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[ScanScheduler] Error getting FCM tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var tokenStrings []string
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	notification := fcm.Notification{
		Title: "New newsletters found",
		Body:  fmt.Sprintf("Your scheduled scan found %d newsletters", count),
		Data: map[string]string{
			"type":         "scan_complete",
			"count":        fmt.Sprintf("%d", count),
			"click_action": "/newsletters",
		},
	}

	failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, notification)
	if err != nil {
		log.Printf("[ScanScheduler] Error sending notification to user %s: %v", userID, err)
	}
	for _, token := range failedTokens {
		s.fcmRepo.DeleteToken(token)
	}
}

// scanDue decides whether a user's schedule has come due. The frequency
// sets the minimum gap since the last scan; the preferred time of day
// gates which hours a daily or weekly scan may start in.
func scanDue(user *authdomain.User, now time.Time) bool {
	var gap time.Duration
	switch user.ScanFrequency {
	case authdomain.FrequencyDaily:
		gap = 24 * time.Hour
	case authdomain.FrequencyTwiceDaily:
		gap = 12 * time.Hour
	case authdomain.FrequencyWeekly:
		gap = 7 * 24 * time.Hour
	default:
		return false
	}

	if user.LastScannedAt != nil && now.Sub(*user.LastScannedAt) < gap {
		return false
	}

	// Twice-daily ignores the preferred time; both runs matter.
	if user.ScanFrequency == authdomain.FrequencyTwiceDaily {
		return true
	}

	return now.Hour() >= preferredHour(user.ScanTime)
}

func preferredHour(scanTime string) int {
	switch scanTime {
	case "noon":
		return 12
	case "evening":
		return 18
	default: // morning
		return 7
	}
}
