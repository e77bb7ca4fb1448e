package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/fleetbill/internal/config"
	"github.com/smallbiznis/fleetbill/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(baseURL string, timeout time.Duration) *Client {
	return New(config.Config{
		Gateway: config.GatewayConfig{
			BaseURL:     baseURL,
			APIKey:      "test-key",
			CallTimeout: timeout,
		},
	}, zap.NewNop())
}

func TestCreateInvoice_SendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"invoice_ref": "gwinv_1"})
	}))
	defer server.Close()

	client := newClient(server.URL, time.Second)
	ref, err := client.CreateInvoice(context.Background(), "cus_1", 5900, "USD", "March invoice")
	require.NoError(t, err)
	assert.Equal(t, "gwinv_1", ref)
	assert.NotEmpty(t, gotKey, "mutating calls must carry an idempotency key")
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, float64(5900), gotBody["amount_cents"])
}

func TestRetrieveSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers/cus_1/subscription", r.URL.Path)
		assert.Empty(t, r.Header.Get("Idempotency-Key"), "reads carry no idempotency key")
		_ = json.NewEncoder(w).Encode(map[string]string{"ref": "sub_1", "status": "past_due"})
	}))
	defer server.Close()

	client := newClient(server.URL, time.Second)
	sub, err := client.RetrieveSubscription(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionPastDue, sub.Status)
	assert.False(t, sub.Status.Active())
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newClient(server.URL, time.Second)
	_, err := client.FinalizeAndPayInvoice(context.Background(), "gwinv_1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestTimeoutMapsToUnavailable(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newClient(server.URL, 50*time.Millisecond)
	err := client.CancelSubscription(context.Background(), "sub_1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	<-started
}

func TestClientErrorIsNotUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown customer", http.StatusNotFound)
	}))
	defer server.Close()

	client := newClient(server.URL, time.Second)
	_, err := client.CreateInvoice(context.Background(), "cus_missing", 100, "USD", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnavailable, "4xx is a rejection, not an outage")
}
