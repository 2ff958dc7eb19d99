package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/manasa1349/payment-gateway-task/config"
	"github.com/manasa1349/payment-gateway-task/events"
	"github.com/manasa1349/payment-gateway-task/queue"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type webhookReceiver struct {
	mu     sync.Mutex
	events []string
	valid  bool
}

func (wr *webhookReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var env struct {
		Event string `json:"event"`
	}
	_ = json.Unmarshal(body, &env)

	wr.mu.Lock()
	wr.events = append(wr.events, env.Event)
	if !utils.VerifyWebhookSignature(body, r.Header.Get(utils.SignatureHeader), "whsec_test_abc123") {
		wr.valid = false
	}
	wr.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (wr *webhookReceiver) received() []string {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	return append([]string(nil), wr.events...)
}

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:             "sqlite",
		QueueDriver:          "memory",
		WorkerConcurrency:    2,
		TestMode:             true,
		TestPaymentSuccess:   true,
		WebhookRetryFast:     true,
		WebhookTimeout:       2 * time.Second,
		JWTSecret:            "test-secret",
		TestMerchantEmail:    "test@example.com",
		TestAPIKey:           "key_test_abc123",
		TestAPISecret:        "secret_test_xyz789",
		TestMerchantPassword: "password123",
		CORSAllowedOrigins:   []string{"*"},
		PublicRateLimit:      100,
		PublicRateBurst:      100,
	}
}

type testServer struct {
	t   *testing.T
	api *httptest.Server
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migrate(db, cfg))

	store := repository.NewStore(db)
	backend := queue.NewMemoryBackend()
	hub := events.NewHub()
	p := newPipeline(cfg, store, backend, hub)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, w := range p.workers(backend, cfg.WorkerConcurrency) {
		wg.Add(1)
		go func(w *queue.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	api := httptest.NewServer(p.router(cfg, store, hub))
	t.Cleanup(func() {
		api.Close()
		cancel()
		wg.Wait()
		backend.Close()
	})
	return &testServer{t: t, api: api}
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) (int, []byte) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.api.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, out
}

func (s *testServer) merchant(method, path string, body interface{}) (int, []byte) {
	return s.do(method, path, body, map[string]string{
		"X-Api-Key":    "key_test_abc123",
		"X-Api-Secret": "secret_test_xyz789",
	})
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestPaymentPipelineEndToEnd(t *testing.T) {
	s := startTestServer(t)
	receiver := &webhookReceiver{valid: true}
	hooks := httptest.NewServer(receiver)
	defer hooks.Close()

	code, body := s.merchant(http.MethodPut, "/api/v1/webhooks/config", map[string]interface{}{"webhook_url": hooks.URL})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = s.merchant(http.MethodPost, "/api/v1/orders", map[string]interface{}{"amount": 50000, "receipt": "rcpt_1"})
	require.Equal(t, http.StatusCreated, code, string(body))
	orderID := decode(t, body)["id"].(string)

	paymentReq := map[string]interface{}{"order_id": orderID, "method": "upi", "vpa": "user@paytm"}
	headers := map[string]string{
		"X-Api-Key":       "key_test_abc123",
		"X-Api-Secret":    "secret_test_xyz789",
		"Idempotency-Key": "idem-e2e",
	}
	code, first := s.do(http.MethodPost, "/api/v1/payments", paymentReq, headers)
	require.Equal(t, http.StatusCreated, code, string(first))
	code, second := s.do(http.MethodPost, "/api/v1/payments", paymentReq, headers)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, string(first), string(second))

	payment := decode(t, first)
	paymentID := payment["id"].(string)
	assert.Equal(t, "pending", payment["status"])

	require.Eventually(t, func() bool {
		code, body := s.merchant(http.MethodGet, "/api/v1/payments/"+paymentID, nil)
		return code == http.StatusOK && decode(t, body)["status"] == "success"
	}, 10*time.Second, 50*time.Millisecond)

	code, body = s.merchant(http.MethodPost, "/api/v1/payments/"+paymentID+"/refunds", map[string]interface{}{"amount": 60000})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "Refund amount exceeds available amount")

	code, body = s.merchant(http.MethodPost, "/api/v1/payments/"+paymentID+"/refunds", map[string]interface{}{"amount": 20000, "reason": "partial"})
	require.Equal(t, http.StatusCreated, code, string(body))
	refundID := decode(t, body)["id"].(string)

	require.Eventually(t, func() bool {
		code, body := s.merchant(http.MethodGet, "/api/v1/refunds/"+refundID, nil)
		return code == http.StatusOK && decode(t, body)["status"] == "processed"
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(receiver.received()) >= 5
	}, 10*time.Second, 50*time.Millisecond)
	assert.ElementsMatch(t, []string{"payment.created", "payment.pending", "payment.success", "refund.created", "refund.processed"}, receiver.received())
	receiver.mu.Lock()
	assert.True(t, receiver.valid, "every delivery carries a valid signature")
	receiver.mu.Unlock()

	code, body = s.merchant(http.MethodGet, "/api/v1/webhooks?limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode(t, body)
	assert.Equal(t, float64(5), page["total"])
	assert.Len(t, page["data"], 2)
}

func TestPublicAndSandboxRoutes(t *testing.T) {
	s := startTestServer(t)

	code, body := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, code)
	health := decode(t, body)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "connected", health["database"])

	code, body = s.do(http.MethodGet, "/api/v1/test/merchant", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode(t, body)["seeded"])

	code, body = s.do(http.MethodGet, "/api/v1/test/jobs/status", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "running", decode(t, body)["worker_status"])

	code, body = s.do(http.MethodGet, "/api/v1/payments/list", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, string(body), "AUTHENTICATION_ERROR")

	code, body = s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "test@example.com", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, code, string(body))
	token := decode(t, body)["token"].(string)

	bearer := map[string]string{"Authorization": "Bearer " + token}
	code, body = s.do(http.MethodPost, "/api/v1/orders", map[string]interface{}{"amount": 1000}, bearer)
	require.Equal(t, http.StatusCreated, code, string(body))
	orderID := decode(t, body)["id"].(string)

	code, body = s.do(http.MethodGet, "/api/v1/orders/"+orderID+"/public", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1000), decode(t, body)["amount"])

	code, body = s.do(http.MethodPost, "/api/v1/payments/public", map[string]interface{}{
		"order_id": orderID,
		"method":   "card",
		"card": map[string]interface{}{
			"number":       "5555555555554444",
			"expiry_month": 12,
			"expiry_year":  "2099",
			"cvv":          "123",
			"holder_name":  "Jane",
		},
	}, nil)
	require.Equal(t, http.StatusCreated, code, string(body))
	payment := decode(t, body)
	assert.Equal(t, "mastercard", payment["card_network"])
	assert.Equal(t, "4444", payment["card_last4"])

	code, body = s.do(http.MethodGet, "/api/v1/payments/public/"+payment["id"].(string), nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, orderID, decode(t, body)["order_id"])

	code, body = s.do(http.MethodPost, "/api/v1/webhooks/test", nil, bearer)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode(t, body)["skipped"])

	code, body = s.do(http.MethodPut, "/api/v1/webhooks/config", map[string]interface{}{"webhook_url": 42}, bearer)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "webhook_url must be a string or null")

	code, body = s.do(http.MethodPost, "/api/v1/webhooks/regenerate-secret", nil, bearer)
	require.Equal(t, http.StatusOK, code)
	assert.Regexp(t, `^whsec_`, decode(t, body)["webhook_secret"])

	code, _ = s.do(http.MethodPost, "/api/v1/webhooks/"+uuid.NewString()+"/retry", nil, bearer)
	assert.Equal(t, http.StatusNotFound, code)
}
