package webcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/etnz/fundtrack/date"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	client := NewClient(Options{Dir: t.TempDir(), Period: date.Daily, Logger: zerolog.Nop()})

	for i := 0; i < 3; i++ {
		var got struct{ Value int }
		require.NoError(t, GetJSON(context.Background(), client, srv.URL+"/x", nil, &got))
		assert.Equal(t, 42, got.Value)
	}
	assert.Equal(t, 1, hits, "only the first request should reach the server")
}

func TestDiskCacheSkipsErrors(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Options{Dir: t.TempDir(), Logger: zerolog.Nop()})
	for i := 0; i < 2; i++ {
		_, err := Get(context.Background(), client, srv.URL, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	}
	assert.Equal(t, 2, hits, "error responses must not be cached")
}

func TestGetHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("Domain-Id")))
	}))
	defer srv.Close()

	client := NewClient(Options{Disabled: true})
	body, err := Get(context.Background(), client, srv.URL, http.Header{"Domain-Id": {"www"}})
	require.NoError(t, err)
	assert.Equal(t, "www", string(body))
}
