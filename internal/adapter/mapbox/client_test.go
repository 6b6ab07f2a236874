package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/parking-zone-sync/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Strada Alba Iulia 5, Timișoara.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "address,poi", r.URL.Query().Get("types"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{21.2272, 45.7537},
					PlaceName: "Strada Alba Iulia 5, Timișoara, Timiș, Romania",
					Relevance: 0.92,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c := testClient(srv.URL, m)
	result, err := c.ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	require.NoError(t, err)

	assert.InDelta(t, 45.7537, result.Lat, 1e-9)
	assert.InDelta(t, 21.2272, result.Lon, 1e-9)
	assert.Equal(t, "Strada Alba Iulia 5, Timișoara, Timiș, Romania", result.FormattedAddress)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("success")))
}

func TestClient_ForwardGeocode_NoCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Piata Unirii 1.json", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(response{}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, observability.NewMetricsForTesting()).ForwardGeocode(context.Background(), " Piata Unirii 1 ", "")
	require.NoError(t, err)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	result, err := testClient(srv.URL, m).ForwardGeocode(context.Background(), "Nowhere 1", "Timișoara")
	require.NoError(t, err)
	assert.Zero(t, result.Lat)
	assert.Empty(t, result.FormattedAddress)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("empty")))
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	_, err := testClient(srv.URL, m).ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("error")))
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	require.Error(t, err)
}
