// internal/common/auth/session_test.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"campaign-engine/internal/common/cache"
	"campaign-engine/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionClient_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"sub": "user-1", "email": "jane@example.com"})
	}))
	defer server.Close()

	client := NewSessionClient(server.URL, 5*time.Second, cache.NopCache{}, time.Minute)
	session, err := client.Lookup(context.Background(), "token-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "jane@example.com", session.Email)
}

func TestSessionClient_Lookup_RejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewSessionClient(server.URL, 5*time.Second, cache.NopCache{}, time.Minute)
	_, err := client.Lookup(context.Background(), "bad-token")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthRequired))
}

func TestSessionClient_Lookup_CachesHotTokens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"sub": "user-1"})
	}))
	defer server.Close()

	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	client := NewSessionClient(server.URL, 5*time.Second, redisCache, time.Minute)
	for i := 0; i < 3; i++ {
		session, err := client.Lookup(context.Background(), "token-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", session.UserID)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "repeat lookups must come from cache")
}

func TestMiddleware(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"sub": "user-1"})
	}))
	defer server.Close()

	client := NewSessionClient(server.URL, 5*time.Second, cache.NopCache{}, time.Minute)

	var gotUserID string
	handler := Middleware(client)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFrom(r.Context())
		require.True(t, ok)
		gotUserID = session.UserID
	}))

	// Missing header is rejected before the handler.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, gotUserID)

	// A valid token reaches the handler with the session attached.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)
}
