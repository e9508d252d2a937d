package usecase

import (
	"context"

	"nigest-backend/internal/newsletter/domain"
	"nigest-backend/pkg/gemini"
	"nigest-backend/pkg/gmail"
)

// MailScanner is the mailbox side of the pipeline, normally pkg/gmail.
type MailScanner interface {
	ScanForNewsletters(ctx context.Context, accessToken, refreshToken string, keywords []string, unreadOnly bool, onTokenRefresh gmail.TokenUpdateFunc) ([]*domain.MailMessage, error)
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh gmail.TokenUpdateFunc) error
	Stop(ctx context.Context, accessToken, refreshToken string, onTokenRefresh gmail.TokenUpdateFunc) error
}

// AIService is the classifier/summarizer side, normally pkg/gemini.
type AIService interface {
	AnalyzeNewsletter(ctx context.Context, content, subject, sender string) *gemini.Analysis
	GenerateSummary(ctx context.Context, newsletters []gemini.NewsletterInput) string
}

// NewsletterUsecase wires scanning, classification, summarization and
// persistence together for the user-facing actions.
type NewsletterUsecase interface {
	ListNewsletters(userID string) ([]*domain.Newsletter, error)
	ScanNewsletters(ctx context.Context, userID string) ([]*domain.Newsletter, error)

	ListSummaries(userID string) ([]*domain.Summary, error)
	GenerateSummary(ctx context.Context, userID string) (*domain.Summary, error)
	MarkSummaryRead(userID, summaryID string) error
	SearchSummaries(ctx context.Context, userID, query string, limit int) ([]*domain.Summary, error)

	WatchMailbox(ctx context.Context, userID string) error
	UnwatchMailbox(ctx context.Context, userID string) error

	SetSummaryIndexer(indexer SummaryIndexer)
}
