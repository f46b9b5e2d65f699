package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greendrake/realty/internal/api"
	"greendrake/realty/internal/api/handlers"
	"greendrake/realty/internal/email"
)

func setupServiceRouter(h *handlers.ServiceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return api.SetupServiceRouter(h)
}

func TestServiceHandler_GetTestEmail(t *testing.T) {
	calls := 0
	reader := func(ctx context.Context, to, templateID string) (*email.MockEmail, error) {
		calls++
		if calls < 3 {
			return nil, email.ErrNoMockEmail
		}
		return &email.MockEmail{To: to, TemplateID: templateID, Subject: "Welcome"}, nil
	}
	h := handlers.NewServiceHandlerWith(reader, nil, make(chan struct{}, 1))
	h.SetPolling(5, time.Millisecond)
	router := setupServiceRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api", gin.H{"method": "getTestEmail", "arguments": []string{"welcome", "ana@example.com"}}))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "ana@example.com", data["to"])
	assert.Equal(t, "Welcome", data["subject"])
	assert.Equal(t, 3, calls)
}

func TestServiceHandler_GetTestEmail_Errors(t *testing.T) {
	notFound := func(ctx context.Context, to, templateID string) (*email.MockEmail, error) {
		return nil, email.ErrNoMockEmail
	}
	broken := func(ctx context.Context, to, templateID string) (*email.MockEmail, error) {
		return nil, errors.New("connection refused")
	}

	tests := []struct {
		name   string
		reader handlers.MockEmailReader
		args   interface{}
		status int
	}{
		{"not found", notFound, []string{"welcome", "x@example.com"}, http.StatusNotFound},
		{"redis error", broken, []string{"welcome", "x@example.com"}, http.StatusInternalServerError},
		{"bad arguments", notFound, []string{"welcome"}, http.StatusBadRequest},
		{"no store", nil, []string{"welcome", "x@example.com"}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewServiceHandlerWith(tt.reader, nil, make(chan struct{}, 1))
			h.SetPolling(2, time.Millisecond)

			w := httptest.NewRecorder()
			setupServiceRouter(h).ServeHTTP(w, jsonRequest("POST", "/api", gin.H{"method": "getTestEmail", "arguments": tt.args}))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, false, decodeBody(t, w)["success"])
		})
	}
}

func TestServiceHandler_Shutdown(t *testing.T) {
	shutdownChan := make(chan struct{}, 1)
	router := setupServiceRouter(handlers.NewServiceHandlerWith(nil, nil, shutdownChan))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api", gin.H{"method": "shutdown"}))
	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case <-shutdownChan:
	default:
		t.Fatal("shutdown was not signaled")
	}

	// A second request must not block when the channel is full.
	shutdownChan <- struct{}{}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api", gin.H{"method": "shutdown"}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceHandler_UnknownMethod(t *testing.T) {
	router := setupServiceRouter(handlers.NewServiceHandlerWith(nil, nil, make(chan struct{}, 1)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api", gin.H{"method": "reindex"}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api", gin.H{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceHandler_Health(t *testing.T) {
	healthy := map[string]handlers.HealthCheck{
		"mongo": func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error { return nil },
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	setupServiceRouter(handlers.NewServiceHandlerWith(nil, healthy, nil)).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"checks":{"mongo":"ok","redis":"ok"}}`, w.Body.String())

	healthy["redis"] = func(ctx context.Context) error { return errors.New("dial tcp: refused") }
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	setupServiceRouter(handlers.NewServiceHandlerWith(nil, healthy, nil)).ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "dial tcp: refused")
}

func TestServiceRouter_Metrics(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	setupServiceRouter(handlers.NewServiceHandlerWith(nil, nil, nil)).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
