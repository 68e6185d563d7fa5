package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestEmbedSuccess(t *testing.T) {
	var gotAuth string
	var gotReq embedRequest
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
			"model": "test-model",
		})
	})

	client, err := NewClient(Config{
		Endpoint: srv.URL,
		APIKey:   "secret",
		Model:    "test-model",
	})
	require.NoError(t, err)

	vec, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, []string{"hello world"}, gotReq.Input)
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedHTTPErrorIsProviderError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})

	client, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "429")
}

func TestEmbedConnectionFailureIsProviderError(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestEmbedEmptyResponseIsProviderError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	})

	client, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestEmbedRejectsUnexpectedDimension(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2}, "index": 0},
			},
		})
	})

	client, err := NewClient(Config{Endpoint: srv.URL, ExpectedDim: 3})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
