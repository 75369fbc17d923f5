package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hireval/evaluator-be/internal/evaluation/embedding"
	"github.com/hireval/evaluator-be/internal/evaluation/extract"
	"github.com/hireval/evaluator-be/shared/qdrant"
)

// Collection names per document type
const (
	CollectionCVChunks      = "cv_chunks"
	CollectionProjectChunks = "project_chunks"
)

// DefaultChunkSize is the character length of each indexed chunk
const DefaultChunkSize = 500

// IndexClient is the slice of the vector index the indexer writes through
type IndexClient interface {
	EnsureCollection(ctx context.Context, collection string) error
	UpsertPoint(ctx context.Context, collection string, point qdrant.Point) error
}

// Indexer splits extracted document text into chunks and upserts one
// embedded point per chunk. Chunk indices are stable, so re-ingesting the
// same file overwrites prior points instead of duplicating them.
type Indexer struct {
	index     IndexClient
	embedder  embedding.Provider
	extractor extract.Extractor
	chunkSize int
	logger    *slog.Logger
}

// Config holds indexer dependencies
type Config struct {
	Index     IndexClient
	Embedder  embedding.Provider
	Extractor extract.Extractor
	ChunkSize int
	Logger    *slog.Logger
}

// NewIndexer creates a new Indexer
func NewIndexer(cfg *Config) *Indexer {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Indexer{
		index:     cfg.Index,
		embedder:  cfg.Embedder,
		extractor: cfg.Extractor,
		chunkSize: chunkSize,
		logger:    cfg.Logger,
	}
}

// CollectionFor maps a document type to its chunk collection
func CollectionFor(docType string) string {
	if docType == "project" {
		return CollectionProjectChunks
	}
	return CollectionCVChunks
}

// Ingest extracts the document at path, chunks it, and upserts one point per
// chunk keyed by chunk index. Extraction failures propagate without retry;
// the caller decides whether to repeat the whole ingest.
func (ix *Indexer) Ingest(ctx context.Context, path, fileID, docType string) error {
	text, err := ix.extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	collection := CollectionFor(docType)
	if err := ix.index.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	chunks := Chunks(text, ix.chunkSize)
	for i, chunk := range chunks {
		vector, err := ix.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		point := qdrant.Point{
			ID:     uint64(i),
			Vector: vector,
			Payload: qdrant.Payload{
				FileID:     fileID,
				ChunkIndex: i,
				Content:    chunk,
			},
		}

		if err := ix.index.UpsertPoint(ctx, collection, point); err != nil {
			return fmt.Errorf("failed to upsert chunk %d: %w", i, err)
		}
	}

	ix.logger.Info("Document ingested",
		slog.String("file_id", fileID),
		slog.String("collection", collection),
		slog.Int("chunks", len(chunks)),
	)

	return nil
}

// Chunks normalizes text to valid UTF-8 and splits it into sequential,
// overlap-free slices of at most size characters. The last chunk may be
// shorter.
func Chunks(text string, size int) []string {
	runes := []rune(strings.ToValidUTF8(text, ""))

	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
