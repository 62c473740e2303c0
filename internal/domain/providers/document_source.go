package providers

import "context"

// DocumentSource fetches the raw JSON documents published by the scraping
// jobs. Fetch returns a NOT_FOUND AppError for a document that does not
// exist.
type DocumentSource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Name identifies the source in logs
	Name() string
}
