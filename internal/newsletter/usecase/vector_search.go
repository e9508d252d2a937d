package usecase

import (
	"context"
	"log"
	"time"

	"nigest-backend/internal/newsletter/domain"
)

// SummaryIndexer is the vector store used for semantic search over
// summaries, normally pkg/chroma. It is optional: without one,
// SearchSummaries is unavailable but everything else works.
type SummaryIndexer interface {
	IndexSummary(ctx context.Context, summaryID, userID, title, content string) error
	SearchSummaries(ctx context.Context, userID, query string, limit int) ([]string, error)
}

// SearchSummaries resolves a semantic query to summary records, keeping
// the indexer's relevance order. Ids the indexer returns but the
// database no longer holds are skipped.
func (u *newsletterUsecase) SearchSummaries(ctx context.Context, userID, query string, limit int) ([]*domain.Summary, error) {
	if u.indexer == nil {
		return []*domain.Summary{}, nil
	}

	ids, err := u.indexer.SearchSummaries(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.Summary, 0, len(ids))
	for _, id := range ids {
		summary, err := u.summaryRepo.FindByID(userID, id)
		if err != nil {
			return nil, err
		}
		if summary == nil {
			// The index can lag behind deletions; skip stale hits.
			log.Printf("[Newsletter] Search hit %s no longer stored, skipping", id)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// indexSummaryAsync pushes a freshly created summary into the vector
// store without blocking the request. Indexing failure only costs
// searchability, so it is logged and dropped.
func (u *newsletterUsecase) indexSummaryAsync(summary *domain.Summary) {
	if u.indexer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := u.indexer.IndexSummary(ctx, summary.ID, summary.UserID, summary.Title, summary.SummaryContent); err != nil {
			log.Printf("[Newsletter] Failed to index summary %s: %v", summary.ID, err)
		}
	}()
}
