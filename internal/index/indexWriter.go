package index

import (
	"context"

	"github.com/akolanti/GoIndexer/internal/domain/docModel"
)

// Writer is the searchable-index collaborator. Uploads are batched and must
// be idempotent on document id so redelivered messages overwrite cleanly.
type Writer interface {
	EnsureCollection(ctx context.Context) error
	UploadDocuments(ctx context.Context, docs []docModel.IndexDocument) error
}
