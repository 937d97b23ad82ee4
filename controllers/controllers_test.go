package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/fnb-kiosk/controllers"
	"github.com/yeremiapane/fnb-kiosk/middlewares"
	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/storage"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	router *gin.Engine
	orders *services.OrderService
	proofs *services.ProofService
	chain  *storage.Chain
}

func setupRouter(t *testing.T, stores ...storage.OrderStore) *env {
	t.Helper()
	chain := storage.NewChain(time.Second, stores...)
	orders := services.NewOrderService(chain, nil, nil)
	scheduler := services.NewScheduler()
	t.Cleanup(func() { scheduler.Shutdown(context.Background()) })
	proofs := services.NewProofService(orders, scheduler, services.ProofConfig{
		UploadDir:    t.TempDir(),
		CleanupDelay: time.Hour,
	}, nil, nil)

	orderCtrl := controllers.NewOrderController(orders)
	adminCtrl := controllers.NewAdminController(orders)
	payCtrl := controllers.NewPaymentController(proofs)
	healthCtrl := controllers.NewHealthController(chain)
	menuCtrl := controllers.NewMenuController(services.NewMenuService(""))

	r := gin.New()
	r.GET("/health", healthCtrl.Health)
	r.GET("/api/menu", menuCtrl.GetAllMenus)
	r.POST("/api/orders", orderCtrl.CreateOrder)
	r.GET("/api/orders", orderCtrl.GetAllOrders)
	r.GET("/api/orders/export", adminCtrl.ExportOrders)
	r.GET("/api/orders/:id", orderCtrl.GetOrderByID)
	r.PUT("/api/orders/:id/status", orderCtrl.UpdateStatus)
	r.PUT("/api/orders/:id/payment", orderCtrl.UpdatePayment)
	r.DELETE("/api/orders/:id", orderCtrl.DeleteOrder)
	r.DELETE("/api/orders", orderCtrl.ClearOrders)
	r.GET("/api/dashboard/stats", adminCtrl.GetDashboardStats)
	r.POST("/api/orders/:id/payment-proof", payCtrl.SubmitProof)
	r.GET("/api/payment-proofs", payCtrl.ListProofs)
	r.POST("/api/payment-proofs/:id/verify", payCtrl.VerifyProof)
	r.DELETE("/api/payment-proofs/:id/image", payCtrl.DeleteProofImage)

	return &env{router: r, orders: orders, proofs: proofs, chain: chain}
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const espressoLatte = `{
	"customer_name": "Alex",
	"sub_total": 12.00,
	"tip_amount": 1.80,
	"total_amount": 13.80,
	"order_details": [
		{"item_id": "espresso", "name": "Espresso", "quantity": 2, "price": 3.50},
		{"item_id": "latte", "name": "Latte", "quantity": 1, "price": 5.00}
	]
}`

func createOrder(t *testing.T, e *env) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/orders", espressoLatte)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.OrderID
}

func TestCreateOrder(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())

	w := e.do(t, http.MethodPost, "/api/orders", espressoLatte)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.OrderID, "ORDER-"))
	assert.NotEmpty(t, resp.Message)
	assert.Empty(t, resp.Warning)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 13.8, resp.Data.Total)

	w = e.do(t, http.MethodGet, "/api/orders/"+resp.OrderID, "")
	require.Equal(t, http.StatusOK, w.Code)
	order := decode(t, w)
	assert.Equal(t, "received", order["status"])
	assert.Equal(t, "pending", order["paymentStatus"])
	assert.Equal(t, "Alex", order["customerName"])
}

func TestCreateOrderWarnsOnTotalMismatch(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())

	body := strings.Replace(espressoLatte, `"total_amount": 13.80`, `"total_amount": 99`, 1)
	w := e.do(t, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.Contains(t, resp["warning"], "13.80")
	assert.Equal(t, 13.8, resp["data"].(map[string]interface{})["total"])
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())

	cases := map[string]string{
		"malformed json": `{"customer_name":`,
		"missing name":   `{"order_details":[{"name":"Latte","quantity":1,"price":5}]}`,
		"no lines":       `{"customer_name":"Alex","order_details":[]}`,
		"zero quantity":  `{"customer_name":"Alex","order_details":[{"name":"Latte","quantity":0,"price":5}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/orders", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode(t, w)
			assert.Equal(t, false, resp["success"])
			assert.NotEmpty(t, resp["error"])
		})
	}

	w := e.do(t, http.MethodGet, "/api/orders", "")
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestStorageOutageIs503(t *testing.T) {
	e := setupRouter(t)

	w := e.do(t, http.MethodPost, "/api/orders", espressoLatte)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = e.do(t, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	health := decode(t, w)
	assert.Equal(t, "unavailable", health["status"])
	assert.Equal(t, "none", health["db"])
}

func TestUpdatePayment(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())
	body := `{"paymentStatus":"paid","paymentMethod":"qr_verified"}`

	w := e.do(t, http.MethodPut, "/api/orders/ORDER-1-xxxxx/payment", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])

	id := createOrder(t, e)
	w = e.do(t, http.MethodPut, "/api/orders/"+id+"/payment", body)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "paid", data["paymentStatus"])
	assert.Equal(t, "qr_verified", data["paymentMethod"])

	w = e.do(t, http.MethodPut, "/api/orders/"+id+"/payment", `{"paymentStatus":"refunded"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusAndDelete(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())
	id := createOrder(t, e)

	w := e.do(t, http.MethodPut, "/api/orders/"+id+"/status", `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "preparing", decode(t, w)["data"].(map[string]interface{})["status"])

	w = e.do(t, http.MethodPut, "/api/orders/"+id+"/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/api/orders/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = e.do(t, http.MethodDelete, "/api/orders/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearOrdersAndStats(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())
	for i := 0; i < 3; i++ {
		createOrder(t, e)
	}

	w := e.do(t, http.MethodGet, "/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, 3.0, stats["totalOrders"])
	assert.Equal(t, 3.0, stats["pendingOrders"])
	assert.Equal(t, 0.0, stats["totalRevenue"])

	w = e.do(t, http.MethodDelete, "/api/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Cleared 3 orders"}`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/orders", "")
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestExportOrders(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())
	id := createOrder(t, e)

	w := e.do(t, http.MethodGet, "/api/orders/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=orders-export.json", w.Header().Get("Content-Disposition"))

	var export services.OrderExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, 1, export.TotalOrders)
	require.Len(t, export.Orders, 1)
	assert.Equal(t, id, export.Orders[0].OrderID)
}

func TestHealthReportsVolatileBackend(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())

	w := e.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode(t, w)
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "memory", health["db"])
	assert.Equal(t, true, health["volatile"])
	assert.NotEmpty(t, health["uptime"])
	assert.NotEmpty(t, health["timestamp"])
	assert.Len(t, health["backends"], 1)
}

func TestMenuServesDemoWithoutFile(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())

	w := e.do(t, http.MethodGet, "/api/menu", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.MenuSourceDemo, w.Header().Get("X-Menu-Source"))
	items := decode(t, w)["data"].([]interface{})
	assert.Len(t, items, 4)
}

func TestPaymentProofUploadAndVerify(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())
	id := createOrder(t, e)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("reference", "TRX-42"))
	part, err := mw.CreateFormFile("image", "proof.jpg")
	require.NoError(t, err)
	part.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+id+"/payment-proof", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	proof := decode(t, w)["data"].(map[string]interface{})
	proofID := proof["id"].(string)
	assert.Equal(t, "TRX-42", proof["reference"])
	assert.Equal(t, "pending", proof["status"])
	assert.FileExists(t, proof["imagePath"].(string))

	w = e.do(t, http.MethodGet, "/api/payment-proofs", "")
	assert.Len(t, decode(t, w)["data"], 1)

	w = e.do(t, http.MethodPost, "/api/payment-proofs/"+proofID+"/verify", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "verified", data["proof"].(map[string]interface{})["status"])
	assert.Equal(t, "paid", data["order"].(map[string]interface{})["paymentStatus"])
	assert.Equal(t, services.VerifiedMethod, data["order"].(map[string]interface{})["paymentMethod"])

	w = e.do(t, http.MethodDelete, "/api/payment-proofs/"+proofID+"/image", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, proof["imagePath"].(string))

	w = e.do(t, http.MethodPost, "/api/payment-proofs/nope/verify", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentProofRequiresKnownOrder(t *testing.T) {
	e := setupRouter(t, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/orders/ORDER-404/payment-proof",
		strings.NewReader("reference=TRX-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func authRouter(t *testing.T, creds controllers.AdminCredentials) (*gin.Engine, *utils.TokenBlacklist) {
	t.Helper()
	secret := []byte("test-secret")
	blacklist := utils.NewTokenBlacklist()
	userCtrl := controllers.NewUserController(creds, secret, time.Hour, blacklist)

	r := gin.New()
	r.POST("/api/admin/login", userCtrl.Login)
	guard := middlewares.AdminAuth(true, secret, blacklist)
	r.POST("/api/admin/logout", guard, userCtrl.Logout)
	r.GET("/api/dashboard/stats", guard, func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, blacklist
}

func login(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginAndLogout(t *testing.T) {
	r, blacklist := authRouter(t, controllers.AdminCredentials{Username: "admin", Password: "s3cret"})

	w := login(t, r, `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = login(t, r, `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = login(t, r, `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["data"].(map[string]interface{})["token"].(string)

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/dashboard/stats"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/admin/logout"))
	assert.True(t, blacklist.Contains(token))
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/api/dashboard/stats"))
}

func TestLoginWithBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	r, _ := authRouter(t, controllers.AdminCredentials{Username: "admin", PasswordHash: string(hash)})

	assert.Equal(t, http.StatusOK, login(t, r, `{"username":"admin","password":"hunter2"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(t, r, `{"username":"admin","password":"hunter3"}`).Code)
}
