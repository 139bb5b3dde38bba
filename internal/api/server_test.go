package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/congestion"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/events"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/fees"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/sequencer"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/wallet"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/config"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

const testJWTSecret = "test-secret"

type testServer struct {
	server *Server
	seq    *sequencer.Sequencer
	vault  *sequencer.MemoryVault
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		API: config.APIConfig{
			Port:               "0",
			CORSAllowedOrigins: []string{"*"},
			RateLimitPerMin:    10000,
		},
		Auth: config.AuthConfig{JWTSecret: testJWTSecret},
		Sequencer: config.SequencerConfig{
			MinFee:                 1000,
			PerByteFee:             16,
			MaxPayloadSize:         4096,
			Version:                "0.1.0",
			SupportedNetworks:      []string{"ethereum-mainnet"},
			MinConfirmationLatency: 12 * time.Second,
		},
		Log:     config.LogConfig{Level: "error", Environment: "production"},
		Metrics: config.MetricsConfig{Namespace: "sequencer"},
	}

	store := sequencer.NewMemoryStore()
	vault := sequencer.NewMemoryVault()
	emitter := events.NewLogEmitter(logging.New(logging.Config{
		Level:       logging.ErrorLevel,
		ServiceName: "test",
	}))

	seq, adminCap, err := sequencer.New(sequencer.Config{
		MinFee: cfg.Sequencer.MinFee,
		Metadata: sequencer.Metadata{
			Version:                cfg.Sequencer.Version,
			SupportedNetworks:      cfg.Sequencer.SupportedNetworks,
			MinConfirmationLatency: cfg.Sequencer.MinConfirmationLatency,
			MaxPayloadSize:         cfg.Sequencer.MaxPayloadSize,
		},
	}, store, vault, emitter, nil)
	require.NoError(t, err)

	estimator := fees.NewEstimator(cfg.Sequencer.MinFee, cfg.Sequencer.PerByteFee, congestion.Static(1))

	return &testServer{
		server: NewServer(cfg, seq, adminCap, estimator, nil),
		seq:    seq,
		vault:  vault,
	}
}

func mintToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	tokenAuth := jwtauth.New("HS256", []byte(testJWTSecret), nil)
	_, token, err := tokenAuth.Encode(claims)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, address string) string {
	return mintToken(t, map[string]interface{}{"address": address, "role": "user"})
}

func adminToken(t *testing.T) string {
	return mintToken(t, map[string]interface{}{"address": "admin", "role": "admin"})
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func (ts *testServer) submit(t *testing.T, payload []byte, fee uint64) string {
	t.Helper()

	w, resp := ts.do(t, http.MethodPost, "/v1/transactions", userToken(t, "alice"), map[string]interface{}{
		"payload": base64.StdEncoding.EncodeToString(payload),
		"fee":     fee,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := resp.Data.(map[string]interface{})
	id := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestSubmitAndGetReceipt(t *testing.T) {
	ts := newTestServer(t)

	id := ts.submit(t, []byte("payload"), 5000)

	w, resp := ts.do(t, http.MethodGet, "/v1/transactions/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, id, data["l2_tx_hash"])
	assert.Empty(t, data["l1_tx_hash"])
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/v1/transactions", "", map[string]interface{}{
		"payload": base64.StdEncoding.EncodeToString([]byte("payload")),
		"fee":     5000,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitUnderpaidReturns402(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/v1/transactions", userToken(t, "alice"), map[string]interface{}{
		"payload": base64.StdEncoding.EncodeToString([]byte("payload")),
		"fee":     1,
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "insufficient fee")
}

func TestSubmitRejectsInvalidBase64(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/v1/transactions", userToken(t, "alice"), map[string]interface{}{
		"payload": "not base64!!!",
		"fee":     5000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownReceiptReturns404(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/v1/transactions/deadbeef", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestConfirmAsAdmin(t *testing.T) {
	ts := newTestServer(t)

	id := ts.submit(t, []byte("payload"), 5000)

	w, resp := ts.do(t, http.MethodPost, "/v1/admin/transactions/"+id+"/confirm", adminToken(t), map[string]interface{}{
		"l1_tx_hash": "0xabc123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	_, got := ts.do(t, http.MethodGet, "/v1/transactions/"+id, "", nil)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, "CONFIRMED", data["status"])
	assert.Equal(t, "0xabc123", data["l1_tx_hash"])
}

func TestConfirmTwiceReturns409(t *testing.T) {
	ts := newTestServer(t)

	id := ts.submit(t, []byte("payload"), 5000)

	w, _ := ts.do(t, http.MethodPost, "/v1/admin/transactions/"+id+"/confirm", adminToken(t), map[string]interface{}{
		"l1_tx_hash": "0xabc",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/v1/admin/transactions/"+id+"/confirm", adminToken(t), map[string]interface{}{
		"l1_tx_hash": "0xdef",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFailAsAdmin(t *testing.T) {
	ts := newTestServer(t)

	id := ts.submit(t, []byte("payload"), 5000)

	w, _ := ts.do(t, http.MethodPost, "/v1/admin/transactions/"+id+"/fail", adminToken(t), map[string]interface{}{
		"reason": "nonce too low",
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, got := ts.do(t, http.MethodGet, "/v1/transactions/"+id, "", nil)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, "FAILED", data["status"])
	assert.Equal(t, "nonce too low", data["error_reason"])
}

func TestAdminEndpointsRejectNonAdmin(t *testing.T) {
	ts := newTestServer(t)

	id := ts.submit(t, []byte("payload"), 5000)
	token := userToken(t, "alice")

	w, _ := ts.do(t, http.MethodPost, "/v1/admin/transactions/"+id+"/confirm", token, map[string]interface{}{
		"l1_tx_hash": "0xabc",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodPut, "/v1/admin/paused", token, map[string]interface{}{"paused": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/v1/admin/withdraw", token, map[string]interface{}{"destination": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPauseBlocksSubmission(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPut, "/v1/admin/paused", adminToken(t), map[string]interface{}{"paused": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/v1/transactions", userToken(t, "alice"), map[string]interface{}{
		"payload": base64.StdEncoding.EncodeToString([]byte("payload")),
		"fee":     5000,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = ts.do(t, http.MethodPut, "/v1/admin/paused", adminToken(t), map[string]interface{}{"paused": false})
	require.Equal(t, http.StatusOK, w.Code)

	ts.submit(t, []byte("payload"), 5000)
}

func TestWithdraw(t *testing.T) {
	ts := newTestServer(t)

	ts.submit(t, []byte("payload"), 5000)
	ts.submit(t, []byte("payload"), 3000)

	dest, err := wallet.New()
	require.NoError(t, err)

	w, resp := ts.do(t, http.MethodPost, "/v1/admin/withdraw", adminToken(t), map[string]interface{}{
		"destination": dest.Address,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(8000), data["amount"])
	assert.Equal(t, uint64(8000), ts.vault.Credited(dest.Address))

	balance, err := ts.seq.Balance(context.Background())
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestWithdrawInvalidDestinationReturns400(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/v1/admin/withdraw", adminToken(t), map[string]interface{}{
		"destination": "not-an-address",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetadata(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/v1/metadata", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "0.1.0", data["version"])
	assert.Equal(t, float64(12000), data["min_confirmation_latency_ms"])
	assert.Equal(t, float64(4096), data["max_payload_size"])
}

func TestEstimate(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/v1/fees/estimate", "", map[string]interface{}{
		"payload_size": 100,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1000+100*16), data["cost"])
	assert.Equal(t, float64(1000), data["min_fee"])
	assert.Equal(t, float64(100), data["payload_size"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}
