package dto

import "nigest-backend/internal/newsletter/domain"

type NewslettersResponse struct {
	Newsletters []*domain.Newsletter `json:"newsletters"`
	Total       int                  `json:"total"`
}

type ScanResponse struct {
	Found       int                  `json:"found"`
	Newsletters []*domain.Newsletter `json:"newsletters"`
}

type SummariesResponse struct {
	Summaries []*domain.Summary `json:"summaries"`
	Total     int               `json:"total"`
}
