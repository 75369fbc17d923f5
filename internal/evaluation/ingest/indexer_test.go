package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireval/evaluator-be/internal/evaluation/embedding"
	"github.com/hireval/evaluator-be/shared/logger"
	"github.com/hireval/evaluator-be/shared/qdrant"
)

type fakeIndex struct {
	ensured []string
	points  map[string]map[uint64]qdrant.Point
	failOn  string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]map[uint64]qdrant.Point)}
}

func (f *fakeIndex) EnsureCollection(_ context.Context, collection string) error {
	if f.failOn == "ensure" {
		return errors.New("ensure failed")
	}
	f.ensured = append(f.ensured, collection)
	return nil
}

func (f *fakeIndex) UpsertPoint(_ context.Context, collection string, point qdrant.Point) error {
	if f.failOn == "upsert" {
		return errors.New("upsert failed")
	}
	if f.points[collection] == nil {
		f.points[collection] = make(map[uint64]qdrant.Point)
	}
	f.points[collection][point.ID] = point
	return nil
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(_ string) (string, error) {
	return s.text, s.err
}

func newTestIndexer(index IndexClient, ext *stubExtractor, chunkSize int) *Indexer {
	return NewIndexer(&Config{
		Index:     index,
		Embedder:  embedding.NewMockProvider(),
		Extractor: ext,
		ChunkSize: chunkSize,
		Logger:    logger.NewDefault().Logger,
	})
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		size     int
		expected int
	}{
		{name: "empty text", text: "", size: 500, expected: 0},
		{name: "shorter than one chunk", text: "short", size: 500, expected: 1},
		{name: "exact multiple", text: strings.Repeat("a", 1000), size: 500, expected: 2},
		{name: "remainder chunk", text: strings.Repeat("a", 1001), size: 500, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunks(tt.text, tt.size)
			assert.Len(t, chunks, tt.expected)

			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), tt.size)
			}

			assert.Equal(t, tt.text, strings.Join(chunks, ""))
		})
	}
}

func TestChunks_DropsInvalidUTF8(t *testing.T) {
	chunks := Chunks("valid\xffmore", 500)

	require.Len(t, chunks, 1)
	assert.Equal(t, "validmore", chunks[0])
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, CollectionCVChunks, CollectionFor("cv"))
	assert.Equal(t, CollectionProjectChunks, CollectionFor("project"))
}

func TestIndexer_Ingest(t *testing.T) {
	index := newFakeIndex()
	text := strings.Repeat("x", 1200)
	ix := newTestIndexer(index, &stubExtractor{text: text}, 500)

	err := ix.Ingest(context.Background(), "/tmp/cv.pdf", "file-1", "cv")
	require.NoError(t, err)

	assert.Equal(t, []string{CollectionCVChunks}, index.ensured)

	points := index.points[CollectionCVChunks]
	require.Len(t, points, 3)

	for id, point := range points {
		assert.Equal(t, "file-1", point.Payload.FileID)
		assert.Equal(t, int(id), point.Payload.ChunkIndex)
		assert.Len(t, point.Vector, embedding.Dimensions)
	}
}

func TestIndexer_Ingest_Idempotent(t *testing.T) {
	index := newFakeIndex()
	ix := newTestIndexer(index, &stubExtractor{text: strings.Repeat("y", 900)}, 500)

	require.NoError(t, ix.Ingest(context.Background(), "/tmp/p.pdf", "file-2", "project"))
	require.NoError(t, ix.Ingest(context.Background(), "/tmp/p.pdf", "file-2", "project"))

	// Same chunk indices, so the second ingest overwrites instead of growing
	assert.Len(t, index.points[CollectionProjectChunks], 2)
}

func TestIndexer_Ingest_ExtractionError(t *testing.T) {
	index := newFakeIndex()
	ix := newTestIndexer(index, &stubExtractor{err: errors.New("corrupt pdf")}, 500)

	err := ix.Ingest(context.Background(), "/tmp/bad.pdf", "file-3", "cv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text extraction failed")
	assert.Empty(t, index.ensured)
}

func TestIndexer_Ingest_UpsertError(t *testing.T) {
	index := newFakeIndex()
	index.failOn = "upsert"
	ix := newTestIndexer(index, &stubExtractor{text: "some text"}, 500)

	err := ix.Ingest(context.Background(), "/tmp/cv.txt", "file-4", "cv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert chunk 0")
}
