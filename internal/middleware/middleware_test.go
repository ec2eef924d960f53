package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/service"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

var tokens = stubValidator{"good": {UserID: "u-1", UserType: models.UserTypeStaff}}

func actorRouter(mw gin.HandlerFunc) (*gin.Engine, *policy.Actor) {
	gin.SetMode(gin.TestMode)
	var seen policy.Actor
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		seen = Actor(c)
		c.Status(http.StatusNoContent)
	})
	return r, &seen
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	r, seen := actorRouter(JWT(tokens))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer forged").Code)

	w := serve(r, "bearer good")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, policy.Actor{UserID: "u-1", Authenticated: true, StaffOrAdmin: true}, *seen)
}

func TestOptionalJWT(t *testing.T) {
	r, seen := actorRouter(OptionalJWT(tokens))

	w := serve(r, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, policy.Anonymous(), *seen)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer forged").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer good").Code)
	assert.True(t, seen.Authenticated)
}

func TestClientInfoAttachesPeer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	repo := &captureAudit{}
	audit := service.NewAuditService(repo, nil, nil, 1, 1)
	audit.Start(testContext(t))
	r.GET("/", ClientInfo(), func(c *gin.Context) {
		audit.Record(c.Request.Context(), service.AuditEntry{Action: models.AuditActionCreate, Resource: policy.ResourceBook})
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5000"
	req.Header.Set("User-Agent", "scanner/2")
	r.ServeHTTP(httptest.NewRecorder(), req)
	audit.Stop()

	require.Len(t, repo.logs, 1)
	assert.Equal(t, "192.0.2.7", repo.logs[0].IPAddress)
	assert.Equal(t, "scanner/2", repo.logs[0].UserAgent)
}

func TestRateLimitPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(1, 2)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{}"))
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("198.51.100.1"))
	assert.Equal(t, http.StatusOK, hit("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("198.51.100.1"))
	assert.Equal(t, http.StatusOK, hit("198.51.100.2"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, hit("198.51.100.1"))

	now = now.Add(limiterIdleTTL + time.Second)
	assert.Equal(t, 2, limiter.Sweep())
}

type captureAudit struct {
	logs []models.AuditLog
}

func (c *captureAudit) Create(_ context.Context, log *models.AuditLog) error {
	c.logs = append(c.logs, *log)
	return nil
}

// testContext mirrors testing.T.Context (Go 1.24+): a context cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
