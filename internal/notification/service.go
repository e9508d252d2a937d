package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	authrepo "nigest-backend/internal/auth/repository"
	"nigest-backend/internal/newsletter/usecase"
	"nigest-backend/pkg/fcm"
)

// GmailNotification is the payload Gmail publishes to the Pub/Sub topic
// registered through users.watch.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes Gmail push notifications and triggers a newsletter
// scan for users who opted into automatic detection.
type Service struct {
	pubsubClient      *pubsub.Client
	userRepo          authrepo.UserRepository
	fcmRepo           authrepo.FCMTokenRepository
	fcmClient         *fcm.Client
	newsletterUsecase usecase.NewsletterUsecase
	topicName         string
	subName           string

	// Gmail redelivers aggressively; track the last historyId per user
	// so one burst of mail causes one scan.
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, userRepo authrepo.UserRepository, fcmRepo authrepo.FCMTokenRepository, fcmClient *fcm.Client, newsletterUsecase usecase.NewsletterUsecase, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:      client,
		userRepo:          userRepo,
		fcmRepo:           fcmRepo,
		fcmClient:         fcmClient,
		newsletterUsecase: newsletterUsecase,
		topicName:         topicName,
		subName:           topicName + "-sub",
		lastHistoryID:     make(map[string]uint64),
	}, nil
}

// Start blocks receiving messages until ctx is cancelled. Run it in its
// own goroutine.
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		return
	}

	if !s.advanceHistory(user.ID, notification.HistoryID) {
		return
	}

	if !user.AutoDetect {
		return
	}

	go s.scanAndNotify(user.ID)
}

// advanceHistory reports whether the notification is new for this user
// and records it.
func (s *Service) advanceHistory(userID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastHistoryID[userID]; ok && historyID <= last {
		return false
	}
	s.lastHistoryID[userID] = historyID
	return true
}

func (s *Service) scanAndNotify(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	found, err := s.newsletterUsecase.ScanNewsletters(ctx, userID)
	if err != nil {
		if errors.Is(err, usecase.ErrActionInProgress) {
			return
		}
		log.Printf("[PubSub] Triggered scan failed for user %s: %v", userID, err)
		return
	}

	if len(found) == 0 || s.fcmClient == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var tokenStrings []string
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	title := "New newsletter detected"
	body := fmt.Sprintf("%d new newsletters arrived in your inbox", len(found))
	if len(found) == 1 {
		body = found[0].Name
	}

	failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, fcm.Notification{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":         "newsletter_update",
			"count":        fmt.Sprintf("%d", len(found)),
			"click_action": "/newsletters",
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
	}
	for _, token := range failedTokens {
		s.fcmRepo.DeleteToken(token)
	}
}
