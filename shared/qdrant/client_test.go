package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireval/evaluator-be/shared/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&Config{BaseURL: srv.URL}, logger.NewDefault().Logger)
	return client, srv
}

func TestEnsureCollection(t *testing.T) {
	t.Run("collection already present", func(t *testing.T) {
		var createCalled bool
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.WriteHeader(http.StatusOK)
			case http.MethodPut:
				createCalled = true
			}
		}))

		err := client.EnsureCollection(context.Background(), "cv_chunks")
		require.NoError(t, err)
		assert.False(t, createCalled)
	})

	t.Run("probe miss triggers create", func(t *testing.T) {
		var createBody map[string]any
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.WriteHeader(http.StatusNotFound)
			case http.MethodPut:
				require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))
				w.WriteHeader(http.StatusOK)
			}
		}))

		err := client.EnsureCollection(context.Background(), "cv_chunks")
		require.NoError(t, err)

		require.NotNil(t, createBody)
		vectors := createBody["vectors"].(map[string]any)
		assert.Equal(t, float64(1536), vectors["size"])
		assert.Equal(t, "Cosine", vectors["distance"])
	})

	t.Run("already exists error is success", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.WriteHeader(http.StatusNotFound)
			case http.MethodPut:
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"status":{"error":"Collection cv_chunks already exists"}}`))
			}
		}))

		err := client.EnsureCollection(context.Background(), "cv_chunks")
		require.NoError(t, err)
	})

	t.Run("other create failure is fatal", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.WriteHeader(http.StatusNotFound)
			case http.MethodPut:
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"status":{"error":"disk full"}}`))
			}
		}))

		err := client.EnsureCollection(context.Background(), "cv_chunks")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestUpsertPoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UpsertPoint(context.Background(), "cv_chunks", Point{
		ID:     3,
		Vector: []float32{0.1, 0.2},
		Payload: Payload{
			FileID:     "file-1",
			ChunkIndex: 3,
			Content:    "chunk text",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/collections/cv_chunks/points", gotPath)

	points := gotBody["points"].([]any)
	require.Len(t, points, 1)
	point := points[0].(map[string]any)
	assert.Equal(t, float64(3), point["id"])

	payload := point["payload"].(map[string]any)
	assert.Equal(t, "file-1", payload["file_id"])
	assert.Equal(t, float64(3), payload["chunk_index"])
	assert.Equal(t, "chunk text", payload["content"])
}

func TestUpsertPoint_Failure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"wrong vector size"}}`))
	}))

	err := client.UpsertPoint(context.Background(), "cv_chunks", Point{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong vector size")
}

func TestSearch(t *testing.T) {
	t.Run("ordered payloads returned", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/collections/rubric_chunks/points/search", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(3), body["limit"])

			_, _ = w.Write([]byte(`{"result":[
				{"payload":{"file_id":"f1","chunk_index":0,"content":"first"}},
				{"payload":{"file_id":"f1","chunk_index":1,"content":"second"}}
			]}`))
		}))

		payloads, err := client.Search(context.Background(), "rubric_chunks", []float32{0.5}, 3)
		require.NoError(t, err)

		require.Len(t, payloads, 2)
		assert.Equal(t, "first", payloads[0].Content)
		assert.Equal(t, "second", payloads[1].Content)
	})

	t.Run("empty result is valid", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":[]}`))
		}))

		payloads, err := client.Search(context.Background(), "rubric_chunks", []float32{0.5}, 3)
		require.NoError(t, err)
		assert.Empty(t, payloads)
	})

	t.Run("non-success status is an error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, err := client.Search(context.Background(), "rubric_chunks", []float32{0.5}, 3)
		require.Error(t, err)
	})
}
