package domain

import "time"

// MailMessage is one mail-provider message after content extraction.
// Messages are read-only: once fetched the content never changes, so the
// provider message id is a stable identity for deduplication.
type MailMessage struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Snippet    string    `json:"snippet"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"received_at"`
}
