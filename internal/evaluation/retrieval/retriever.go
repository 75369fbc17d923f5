package retrieval

import (
	"context"
	"log/slog"

	"github.com/hireval/evaluator-be/shared/qdrant"
)

// Ground-truth collections queried during evaluation
const (
	CollectionJobDescription = "job_description_chunks"
	CollectionRubric         = "rubric_chunks"
	CollectionCaseStudy      = "case_study_chunks"
)

// DefaultLimit is the number of chunks retrieved per query
const DefaultLimit = 3

// SearchClient is the slice of the vector index the retriever reads from
type SearchClient interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]qdrant.Payload, error)
}

// Retriever fetches the most similar chunks of one collection for a query
// vector. An empty result is a valid outcome, not an error; prompts built
// from it simply carry no ground-truth context.
type Retriever struct {
	client     SearchClient
	collection string
	limit      int
	logger     *slog.Logger
}

// NewRetriever creates a Retriever bound to one collection
func NewRetriever(client SearchClient, collection string, limit int, logger *slog.Logger) *Retriever {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Retriever{
		client:     client,
		collection: collection,
		limit:      limit,
		logger:     logger,
	}
}

// Collection returns the collection this retriever queries
func (r *Retriever) Collection() string {
	return r.collection
}

// Search returns the contents of the closest chunks, best match first
func (r *Retriever) Search(ctx context.Context, vector []float32) ([]string, error) {
	payloads, err := r.client.Search(ctx, r.collection, vector, r.limit)
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		if payload.Content != "" {
			contents = append(contents, payload.Content)
		}
	}

	if len(contents) == 0 {
		r.logger.Warn("No context retrieved", slog.String("collection", r.collection))
	}

	return contents, nil
}
