package gmail

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"nigest-backend/internal/newsletter/domain"
)

// TokenUpdateFunc persists a rotated OAuth token.
type TokenUpdateFunc func(*oauth2.Token) error

const (
	// Result cap per search keyword.
	perKeywordCap = 20
	// Max concurrent message-detail fetches per search batch.
	fetchConcurrency = 10
)

// Scopes requested at sign-in time for delegated mailbox access.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
}

// Service creates Gmail API clients scoped to one user's credentials per
// call. Tokens are passed in explicitly rather than held as service state,
// so a rotated token can never race with an in-flight request on a stale
// client.
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// client builds a Gmail service around the user's tokens. A refresh-capable
// token source is used when a refresh token is available, and every rotation
// is reported through onTokenRefresh.
func (s *Service) client(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	cfg := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      cfg.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	httpClient := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// ScanForNewsletters searches the mailbox with each keyword, fetches full
// detail for every hit and returns the aggregate deduplicated by message id,
// first-seen order preserved. A failure on one keyword is logged and the
// keyword skipped; only failing to build the client at all is fatal.
func (s *Service) ScanForNewsletters(ctx context.Context, accessToken, refreshToken string, keywords []string, unreadOnly bool, onTokenRefresh TokenUpdateFunc) ([]*domain.MailMessage, error) {
	srv, err := s.client(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	var all []*domain.MailMessage
	for _, keyword := range keywords {
		q := keyword
		// Multi-word keywords must match as a phrase.
		if strings.Contains(q, " ") {
			q = `"` + q + `"`
		}
		if unreadOnly {
			q = "is:unread " + q
		}

		resp, err := srv.Users.Messages.List("me").Q(q).MaxResults(perKeywordCap).Do()
		if err != nil {
			log.Printf("[Gmail] Search for %q failed, skipping: %v", keyword, err)
			continue
		}

		all = append(all, s.fetchMessages(srv, resp.Messages)...)
	}

	return dedupMessages(all), nil
}

// fetchMessages loads full detail for each listed message id, bounded
// parallel, and returns the successfully fetched ones in listing order.
func (s *Service) fetchMessages(srv *gmail.Service, refs []*gmail.Message) []*domain.MailMessage {
	results := make([]*domain.MailMessage, len(refs))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, fetchConcurrency)

	for i, ref := range refs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			msg, err := srv.Users.Messages.Get("me", id).Format("full").Do()
			if err != nil {
				log.Printf("[Gmail] Failed to fetch message %s, skipping: %v", id, err)
				return
			}
			results[i] = convertMessage(msg)
		}(i, ref.Id)
	}
	wg.Wait()

	messages := make([]*domain.MailMessage, 0, len(refs))
	for _, m := range results {
		if m != nil {
			messages = append(messages, m)
		}
	}
	return messages
}

// Watch sets up push notifications for the user's inbox.
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.client(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	// Clear any existing watch first; Gmail allows only one push client per
	// user. The error is ignored since there may be none.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %v", err)
	}
	log.Printf("[Gmail] Watch started, expiration: %d, historyId: %d", resp.Expiration, resp.HistoryId)

	return nil
}

// Stop stops push notifications for the user's inbox.
func (s *Service) Stop(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.client(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %v", err)
	}

	return nil
}

func convertMessage(msg *gmail.Message) *domain.MailMessage {
	return &domain.MailMessage{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Subject:    Header(msg, "Subject"),
		From:       Header(msg, "From"),
		Snippet:    msg.Snippet,
		Content:    ExtractContent(msg),
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
	}
}

// dedupMessages keeps the first occurrence per message id. Content is
// immutable once fetched, so keep-first is sufficient.
func dedupMessages(messages []*domain.MailMessage) []*domain.MailMessage {
	seen := make(map[string]bool, len(messages))
	unique := make([]*domain.MailMessage, 0, len(messages))
	for _, m := range messages {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		unique = append(unique, m)
	}
	return unique
}
