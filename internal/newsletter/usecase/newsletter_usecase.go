package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	authdomain "nigest-backend/internal/auth/domain"
	authrepo "nigest-backend/internal/auth/repository"
	"nigest-backend/internal/newsletter/domain"
	"nigest-backend/internal/newsletter/repository"
	"nigest-backend/pkg/config"
	"nigest-backend/pkg/gemini"
	"nigest-backend/pkg/gmail"
)

const (
	// How many scanned messages are classified per action; everything past
	// the cap is ignored to bound AI spend.
	scanBatchLimit    = 20
	summaryBatchLimit = 10

	maxSummaryTopics = 5

	// A verdict is accepted only above this confidence, strictly.
	acceptThreshold = 0.5
)

var (
	// ErrNothingToSummarize means no scanned message passed classification,
	// so there is nothing to feed the summary generator.
	ErrNothingToSummarize = errors.New("no newsletters found to summarize")

	// ErrActionInProgress rejects a second scan or summarize while one is
	// already running for the same user.
	ErrActionInProgress = errors.New("a scan or summary is already in progress")

	// ErrNoMailboxAccess means the user has not completed the Google
	// consent flow and holds no delegated mailbox credentials.
	ErrNoMailboxAccess = errors.New("no mailbox access token available")
)

const (
	actionScan      = "scan"
	actionSummarize = "summarize"
)

type newsletterUsecase struct {
	newsletterRepo repository.NewsletterRepository
	summaryRepo    repository.SummaryRepository
	userRepo       authrepo.UserRepository
	scanner        MailScanner
	ai             AIService
	indexer        SummaryIndexer
	config         *config.Config

	// At-most-one-in-flight guard per (user, action).
	mu       sync.Mutex
	inflight map[string]bool
}

func NewNewsletterUsecase(
	newsletterRepo repository.NewsletterRepository,
	summaryRepo repository.SummaryRepository,
	userRepo authrepo.UserRepository,
	scanner MailScanner,
	ai AIService,
	cfg *config.Config,
) NewsletterUsecase {
	return &newsletterUsecase{
		newsletterRepo: newsletterRepo,
		summaryRepo:    summaryRepo,
		userRepo:       userRepo,
		scanner:        scanner,
		ai:             ai,
		config:         cfg,
		inflight:       make(map[string]bool),
	}
}

func (u *newsletterUsecase) SetSummaryIndexer(indexer SummaryIndexer) {
	u.indexer = indexer
}

func (u *newsletterUsecase) ListNewsletters(userID string) ([]*domain.Newsletter, error) {
	return u.newsletterRepo.ListByUser(userID)
}

func (u *newsletterUsecase) ListSummaries(userID string) ([]*domain.Summary, error) {
	return u.summaryRepo.ListByUser(userID)
}

func (u *newsletterUsecase) MarkSummaryRead(userID, summaryID string) error {
	return u.summaryRepo.MarkRead(userID, summaryID)
}

// ScanNewsletters discovers candidate messages, classifies each one and
// upserts every accepted verdict as a newsletter record. Per-message
// failures (classification, persistence) are logged and skipped; only a
// mailbox-level failure aborts the action.
func (u *newsletterUsecase) ScanNewsletters(ctx context.Context, userID string) ([]*domain.Newsletter, error) {
	if !u.tryAcquire(userID, actionScan) {
		return nil, ErrActionInProgress
	}
	defer u.release(userID, actionScan)

	user, onTokenRefresh, err := u.mailboxUser(userID)
	if err != nil {
		return nil, err
	}

	messages, err := u.scanner.ScanForNewsletters(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, u.keywordsFor(user), user.UnreadOnly, onTokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("scanning failed: %v", err)
	}
	if len(messages) > scanBatchLimit {
		messages = messages[:scanBatchLimit]
	}

	accepted := make([]*domain.Newsletter, 0, len(messages))
	for _, msg := range messages {
		analysis := u.ai.AnalyzeNewsletter(ctx, msg.Content, msg.Subject, msg.From)
		if !qualifies(analysis) {
			continue
		}

		newsletter := &domain.Newsletter{
			ID:               msg.ID,
			UserID:           userID,
			Name:             analysis.Title,
			SenderEmail:      msg.From,
			LastReceivedDate: msg.ReceivedAt,
			IsActive:         true,
			Topics:           analysis.Topics,
			Confidence:       analysis.Confidence,
		}

		if err := u.newsletterRepo.Upsert(newsletter); err != nil {
			log.Printf("[Newsletter] Failed to save newsletter %s: %v", msg.ID, err)
		}
		accepted = append(accepted, newsletter)
	}

	u.recordScan(user)
	return accepted, nil
}

// GenerateSummary classifies the most recent scan results, feeds the
// accepted ones to the summary generator and persists exactly one new
// summary record. The record's source ids and topics come only from
// messages that passed classification.
func (u *newsletterUsecase) GenerateSummary(ctx context.Context, userID string) (*domain.Summary, error) {
	if !u.tryAcquire(userID, actionSummarize) {
		return nil, ErrActionInProgress
	}
	defer u.release(userID, actionSummarize)

	user, onTokenRefresh, err := u.mailboxUser(userID)
	if err != nil {
		return nil, err
	}

	messages, err := u.scanner.ScanForNewsletters(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, u.keywordsFor(user), user.UnreadOnly, onTokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("scanning failed: %v", err)
	}
	if len(messages) > summaryBatchLimit {
		messages = messages[:summaryBatchLimit]
	}

	var (
		inputs    []gemini.NewsletterInput
		sourceIDs []string
		topics    []string
		seenTopic = make(map[string]bool)
	)
	for _, msg := range messages {
		analysis := u.ai.AnalyzeNewsletter(ctx, msg.Content, msg.Subject, msg.From)
		if !qualifies(analysis) {
			continue
		}

		inputs = append(inputs, gemini.NewsletterInput{
			Title:   analysis.Title,
			Content: msg.Content,
			Sender:  analysis.Sender,
			Date:    msg.ReceivedAt.Format("2006-01-02"),
		})
		sourceIDs = append(sourceIDs, msg.ID)

		for _, topic := range analysis.Topics {
			key := strings.ToLower(topic)
			if !seenTopic[key] {
				seenTopic[key] = true
				topics = append(topics, topic)
			}
		}
	}

	if len(inputs) == 0 {
		return nil, ErrNothingToSummarize
	}

	content := u.ai.GenerateSummary(ctx, inputs)

	if len(topics) > maxSummaryTopics {
		topics = topics[:maxSummaryTopics]
	}
	if topics == nil {
		topics = []string{}
	}

	now := time.Now()
	summary := &domain.Summary{
		ID:                    uuid.New().String(),
		UserID:                userID,
		Title:                 fmt.Sprintf("Newsletter Summary - %s", now.Format("January 2, 2006")),
		SummaryContent:        content,
		Topics:                topics,
		OriginalNewsletterIDs: sourceIDs,
		DateGenerated:         now,
		IsRead:                false,
	}

	if err := u.summaryRepo.Create(summary); err != nil {
		return nil, fmt.Errorf("failed to save summary: %v", err)
	}

	u.indexSummaryAsync(summary)
	return summary, nil
}

// WatchMailbox registers the user's inbox for push notifications on the
// configured Pub/Sub topic.
func (u *newsletterUsecase) WatchMailbox(ctx context.Context, userID string) error {
	user, onTokenRefresh, err := u.mailboxUser(userID)
	if err != nil {
		return err
	}

	topic := u.config.GooglePubSubTopic
	if !strings.HasPrefix(topic, "projects/") {
		topic = fmt.Sprintf("projects/%s/topics/%s", u.config.GoogleProjectID, topic)
	}

	return u.scanner.Watch(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, topic, onTokenRefresh)
}

// UnwatchMailbox tears down the push notification registration.
func (u *newsletterUsecase) UnwatchMailbox(ctx context.Context, userID string) error {
	user, onTokenRefresh, err := u.mailboxUser(userID)
	if err != nil {
		return err
	}

	return u.scanner.Stop(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, onTokenRefresh)
}

// qualifies applies the acceptance threshold. Strict: 0.5 itself is not
// enough.
func qualifies(analysis *gemini.Analysis) bool {
	return analysis.IsNewsletter && analysis.Confidence > acceptThreshold
}

// mailboxUser loads the user and builds the token-rotation callback that
// persists refreshed Gmail credentials.
func (u *newsletterUsecase) mailboxUser(userID string) (*authdomain.User, gmail.TokenUpdateFunc, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, errors.New("user not found")
	}
	if user.GoogleAccessToken == "" && user.GoogleRefreshToken == "" {
		return nil, nil, ErrNoMailboxAccess
	}

	onTokenRefresh := func(token *oauth2.Token) error {
		user.GoogleAccessToken = token.AccessToken
		if token.RefreshToken != "" {
			user.GoogleRefreshToken = token.RefreshToken
		}
		return u.userRepo.Update(user)
	}

	return user, onTokenRefresh, nil
}

func (u *newsletterUsecase) keywordsFor(user *authdomain.User) []string {
	if user.ScanKeywords == "" {
		return u.config.ScanKeywords
	}

	var keywords []string
	for _, k := range strings.Split(user.ScanKeywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return u.config.ScanKeywords
	}
	return keywords
}

func (u *newsletterUsecase) recordScan(user *authdomain.User) {
	now := time.Now()
	user.LastScannedAt = &now
	if err := u.userRepo.Update(user); err != nil {
		log.Printf("[Newsletter] Failed to record scan time for user %s: %v", user.ID, err)
	}
}

func (u *newsletterUsecase) tryAcquire(userID, action string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := userID + ":" + action
	if u.inflight[key] {
		return false
	}
	u.inflight[key] = true
	return true
}

func (u *newsletterUsecase) release(userID, action string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.inflight, userID+":"+action)
}
