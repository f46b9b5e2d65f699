package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"greendrake/realty/internal/captcha"
	"greendrake/realty/internal/config"
)

func setupRateLimitEngine(t *testing.T, cfg *config.Config, verifier captcha.ITurnstileVerifier) (*gin.Engine, *RateLimiterMiddleware) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	rateLimiter := NewRateLimiterMiddleware(ctx, cfg)
	r.Use(Captcha(verifier, time.Minute))
	r.Use(rateLimiter.Limit())
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/other", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	return r, rateLimiter
}

func doGet(r *gin.Engine, path, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_HardLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	router, _ := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doGet(router, "/test", "1.2.3.4:12345", nil).Code)
	w := doGet(router, "/test", "1.2.3.4:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")

	// buckets are per client and per route
	assert.Equal(t, http.StatusOK, doGet(router, "/test", "1.2.3.5:12345", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/other", "1.2.3.4:12345", nil).Code)
}

func TestRateLimiter_SoftLimitRequiresCaptcha(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	router, _ := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doGet(router, "/test", "5.6.7.8:12345", nil).Code)

	w := doGet(router, "/test", "5.6.7.8:12345", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Contains(t, respBody["error"], "Captcha validation required")
}

func TestRateLimiter_SoftLimitBypassedByPassToken(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockVerifier := new(MockTurnstileVerifier)
	mockVerifier.On("ValidateHumanToken", "valid-xct", "9.1.2.3", "", "").Return(true)
	router, _ := setupRateLimitEngine(t, cfg, mockVerifier)

	assert.Equal(t, http.StatusOK, doGet(router, "/test", "9.1.2.3:12345", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/test", "9.1.2.3:12345", map[string]string{"X-C-T": "valid-xct"}).Code)
	mockVerifier.AssertExpectations(t)
	mockVerifier.AssertNotCalled(t, "Verify")
}

func TestRateLimiter_HardLimitAppliesToHumans(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockVerifier := new(MockTurnstileVerifier)
	mockVerifier.On("ValidateHumanToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)
	router, _ := setupRateLimitEngine(t, cfg, mockVerifier)

	h := map[string]string{"X-C-T": "valid-xct"}
	assert.Equal(t, http.StatusOK, doGet(router, "/test", "9.9.9.9:1", h).Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "/test", "9.9.9.9:1", h).Code)
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	cfg := &config.Config{RateLimitHardRefillRate: 1, RateLimitHardBucketSize: 1, RateLimitSoftRefillRate: 1, RateLimitSoftBucketSize: 1}
	router, rl := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	doGet(router, "/test", "7.7.7.7:1", nil)
	doGet(router, "/other", "7.7.7.7:1", nil)

	assert.Equal(t, 0, rl.evictIdle(time.Now().Add(-time.Hour)))
	assert.Equal(t, 2, rl.evictIdle(time.Now().Add(time.Second)))

	// a fresh bucket after eviction
	assert.Equal(t, http.StatusOK, doGet(router, "/test", "7.7.7.7:1", nil).Code)
}
