package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestAdmin_CreatePostsItemAndRefreshes(t *testing.T) {
	var got domain.FeedItem
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/parking", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ref := &countingRefresher{}
	a := NewAdminClient(srv.URL+"/api/parking/", time.Second, ref, testLogger())

	avail := 3
	err := a.Create(context.Background(), domain.FeedItem{Address: "Bulevardul Revolutiei 12", NumberOfSpots: 20, AvailablePlaces: &avail})
	require.NoError(t, err)

	assert.Equal(t, "Bulevardul Revolutiei 12", got.Address)
	assert.Equal(t, 20, got.NumberOfSpots)
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestAdmin_UpdateEscapesAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/parking/Strada%20Mihai%20Viteazu%20nr%203", r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ref := &countingRefresher{}
	a := NewAdminClient(srv.URL+"/api/parking", time.Second, ref, testLogger())
	require.NoError(t, a.Update(context.Background(), "Strada Mihai Viteazu nr 3", domain.FeedItem{Address: "Strada Mihai Viteazu nr 3", NumberOfSpots: 8}))
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestAdmin_DeleteSendsNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/parking/Piata Unirii", r.URL.Path)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAdminClient(srv.URL+"/api/parking", time.Second, nil, testLogger())
	require.NoError(t, a.Delete(context.Background(), "Piata Unirii"))
}

func TestAdmin_RejectedDoesNotRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "zone not found", http.StatusNotFound)
	}))
	defer srv.Close()

	ref := &countingRefresher{}
	a := NewAdminClient(srv.URL, time.Second, ref, testLogger())
	err := a.Delete(context.Background(), "nowhere")
	require.ErrorIs(t, err, ErrAdminRejected)
	assert.Contains(t, err.Error(), "zone not found")
	assert.Zero(t, ref.calls.Load())
}

func TestAdmin_RefreshFailureIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ref := &countingRefresher{err: domain.ErrFeedUnavailable}
	a := NewAdminClient(srv.URL, time.Second, ref, testLogger())
	err := a.Create(context.Background(), domain.FeedItem{Address: "X 1", NumberOfSpots: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshAfterMutation))
	assert.True(t, errors.Is(err, domain.ErrFeedUnavailable))
	assert.False(t, errors.Is(err, ErrAdminRejected))
}

func TestAdmin_UnreachableFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	ref := &countingRefresher{}
	a := NewAdminClient(url, time.Second, ref, testLogger())
	err := a.Create(context.Background(), domain.FeedItem{Address: "X 1", NumberOfSpots: 1})
	require.ErrorIs(t, err, domain.ErrFeedUnavailable)
	assert.False(t, errors.Is(err, ErrRefreshAfterMutation))
	assert.Zero(t, ref.calls.Load())
}
