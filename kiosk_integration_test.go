package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fnb-kiosk/cart"
	"github.com/yeremiapane/fnb-kiosk/config"
	"github.com/yeremiapane/fnb-kiosk/events"
	"github.com/yeremiapane/fnb-kiosk/storage"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger("warn", "text")
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StorageTimeout:    time.Second,
		ProbeInterval:     time.Minute,
		UploadDir:         t.TempDir(),
		ProofCleanupDelay: time.Hour,
		HeartbeatInterval: time.Minute,
		AdminUsername:     "admin",
		JWTTTL:            time.Hour,
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		CORSOrigin:        "*",
	}
}

func newTestApp(t *testing.T, cfg *config.Config, stores ...storage.OrderStore) *app {
	t.Helper()
	if len(stores) == 0 {
		stores = []storage.OrderStore{storage.NewMemoryStore()}
	}
	a := newApp(cfg, stores)
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func call(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// The kiosk cart checks out against the real server, then the admin walks the
// order through the kitchen.
func TestKioskCheckoutEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	client := cart.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	menu, err := client.Menu(ctx)
	require.NoError(t, err)
	prices := make(map[string]float64)
	for _, item := range menu {
		prices[item.Name] = item.Price
	}

	c := cart.New()
	c.AddItem("espresso", "Espresso", prices["Espresso"])
	c.AddItem("espresso", "Espresso", prices["Espresso"])
	c.AddItem("latte", "Latte", prices["Latte"])
	c.SetTipPercent(0.15)
	assert.Equal(t, "12.00", c.Subtotal().String())
	assert.Equal(t, "1.80", c.Tip().String())
	assert.Equal(t, "13.80", c.Total().String())

	resp, err := cart.PlaceOrder(ctx, c, client, "Alex")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.OrderID, "ORDER-"))
	assert.True(t, c.IsEmpty(), "cart resets after a successful checkout")

	w := call(t, a.handler, http.MethodGet, "/api/orders/"+resp.OrderID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	order := body(t, w)
	assert.Equal(t, "received", order["status"])
	assert.Equal(t, "pending", order["paymentStatus"])
	assert.Equal(t, 13.8, order["total"])

	for _, status := range []string{"preparing", "ready", "completed"} {
		w = call(t, a.handler, http.MethodPut, "/api/orders/"+resp.OrderID+"/status", `{"status":"`+status+`"}`, "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = call(t, a.handler, http.MethodPut, "/api/orders/"+resp.OrderID+"/payment",
		`{"paymentStatus":"paid","paymentMethod":"qr_verified"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	updated := body(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "paid", updated["paymentStatus"])
	assert.Equal(t, "qr_verified", updated["paymentMethod"])
	assert.Equal(t, "completed", updated["status"])

	w = call(t, a.handler, http.MethodGet, "/api/dashboard/stats", "", "")
	stats := body(t, w)["data"].(map[string]interface{})
	assert.Equal(t, 13.8, stats["totalRevenue"])
	assert.Equal(t, 13.8, stats["todayRevenue"])
}

func TestUnknownOrderPaymentIs404(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := call(t, a.handler, http.MethodPut, "/api/orders/ORDER-0-zzzzz/payment",
		`{"paymentStatus":"paid","paymentMethod":"qr_verified"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, body(t, w)["error"])
}

func TestClearThreeOrders(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	sub := `{"customer_name":"Sam","order_details":[{"item_id":"latte","name":"Latte","quantity":1,"price":5}]}`
	for i := 0; i < 3; i++ {
		w := call(t, a.handler, http.MethodPost, "/api/orders", sub, "")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := call(t, a.handler, http.MethodDelete, "/api/orders", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Cleared 3 orders"}`, w.Body.String())

	w = call(t, a.handler, http.MethodGet, "/api/orders", "", "")
	assert.Empty(t, body(t, w)["data"])
}

func TestFailedCheckoutKeepsCart(t *testing.T) {
	// no backend at all: every write is refused
	a := newApp(testConfig(t), nil)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	c := cart.New()
	c.AddItem("latte", "Latte", 5)
	_, err := cart.PlaceOrder(context.Background(), c, cart.NewClient(srv.URL, 5*time.Second), "Alex")

	var subErr *cart.SubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusServiceUnavailable, subErr.StatusCode)
	assert.Equal(t, 1, c.ItemCount())
}

func TestFallbackToFileThenMemory(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "orders.json")
	file := storage.NewFileStore(dataFile, time.Minute)
	a := newTestApp(t, testConfig(t), file, storage.NewMemoryStore())

	w := call(t, a.handler, http.MethodGet, "/health", "", "")
	health := body(t, w)
	assert.Equal(t, "file", health["db"])
	assert.Equal(t, false, health["volatile"])

	sub := `{"customer_name":"Alex","order_details":[{"name":"Latte","quantity":1,"price":5}]}`
	w = call(t, a.handler, http.MethodPost, "/api/orders", sub, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.FileExists(t, dataFile)

	file.MarkUnavailable(assert.AnError)
	w = call(t, a.handler, http.MethodGet, "/health", "", "")
	health = body(t, w)
	assert.Equal(t, "memory", health["db"])
	assert.Equal(t, true, health["volatile"])

	// the memory fallback starts empty; the file's orders are not copied over
	w = call(t, a.handler, http.MethodGet, "/api/orders", "", "")
	assert.Empty(t, body(t, w)["data"])
}

func TestAdminRoutesRequireLoginWhenPasswordSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPassword = "s3cret"
	cfg.JWTSecret = "integration-secret"
	a := newTestApp(t, cfg)

	w := call(t, a.handler, http.MethodDelete, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the kiosk side stays public
	w = call(t, a.handler, http.MethodGet, "/api/menu", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, a.handler, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"s3cret"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := body(t, w)["data"].(map[string]interface{})["token"].(string)

	w = call(t, a.handler, http.MethodDelete, "/api/orders", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardReceivesOrderEvents(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	sub := `{"customer_name":"Alex","order_details":[{"name":"Latte","quantity":1,"price":5}]}`
	w := call(t, a.handler, http.MethodPost, "/api/orders", sub, "")
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := body(t, w)["order_id"].(string)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, events.OrderCreated, e.Type)
	assert.Equal(t, orderID, e.OrderID)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	call(t, a.handler, http.MethodGet, "/health", "", "")

	w := call(t, a.handler, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `kiosk_storage_active_backend{backend="memory"} 1`)
}
