package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"grocery-orders/models"
	"grocery-orders/ratelimit"
	"grocery-orders/utils"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func adminByEmail(id models.Identity) bool {
	return id.IsAdmin || id.Email == "admin@shop.lk"
}

func newRouter() *gin.Engine {
	r := gin.New()
	api := r.Group("/api", AuthMiddleware(secret, adminByEmail))
	api.GET("/me", func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "is_admin": id.IsAdmin, "legacy": c.GetString("userID")})
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func bearer(t *testing.T, id models.Identity) string {
	t.Helper()
	tok, err := utils.SignToken(secret, id, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/me", "Bearer nope").Code)

	w := do(r, "/api/me", bearer(t, models.Identity{UserID: "u1"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u1","is_admin":false,"legacy":"u1"}`, w.Body.String())

	w = do(r, "/api/me", bearer(t, models.Identity{UserID: "u2", Email: "admin@shop.lk"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":true`)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/api/admin", bearer(t, models.Identity{UserID: "u1"})).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/api/admin", bearer(t, models.Identity{UserID: "u1", IsAdmin: true})).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/api/admin", bearer(t, models.Identity{UserID: "u9", Email: "admin@shop.lk"})).Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/orders", RateLimit(ratelimit.New(2, time.Minute), "orders"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	before := testutil.ToFloat64(rateLimited)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Equal(t, before+1, testutil.ToFloat64(rateLimited))
}

func TestPrometheusMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	do(r, "/health", "")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")))
}

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(orderOperations.WithLabelValues("create", "error"))
	RecordOrderOperation("create", false)
	assert.Equal(t, before+1, testutil.ToFloat64(orderOperations.WithLabelValues("create", "error")))

	outside := testutil.ToFloat64(deliveryQuotes.WithLabelValues("outside"))
	RecordDeliveryQuote(false)
	assert.Equal(t, outside+1, testutil.ToFloat64(deliveryQuotes.WithLabelValues("outside")))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, "/ok", "")
	do(r, "/missing", "")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(404), entries[1].ContextMap()["status"])
}
