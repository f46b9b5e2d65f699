package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"greendrake/realty/internal/email"
)

// MockEmailReader returns the last mock email stored for a recipient and template.
type MockEmailReader func(ctx context.Context, to, templateID string) (*email.MockEmail, error)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ServiceHandler serves the internal service API used by operators and integration tests.
type ServiceHandler struct {
	readMockEmail MockEmailReader
	checks        map[string]HealthCheck
	shutdownChan  chan<- struct{}
	pollAttempts  int
	pollInterval  time.Duration
}

// NewServiceHandler wires the service API to Redis and MongoDB. Either client may be nil.
func NewServiceHandler(rdb *redis.Client, mongoClient *mongo.Client, shutdownChan chan<- struct{}) *ServiceHandler {
	checks := map[string]HealthCheck{}
	var reader MockEmailReader
	if rdb != nil {
		reader = func(ctx context.Context, to, templateID string) (*email.MockEmail, error) {
			return email.GetMockEmail(ctx, rdb, to, templateID)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if mongoClient != nil {
		checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) }
	}
	return NewServiceHandlerWith(reader, checks, shutdownChan)
}

// NewServiceHandlerWith builds a ServiceHandler from explicit dependencies.
func NewServiceHandlerWith(reader MockEmailReader, checks map[string]HealthCheck, shutdownChan chan<- struct{}) *ServiceHandler {
	return &ServiceHandler{
		readMockEmail: reader,
		checks:        checks,
		shutdownChan:  shutdownChan,
		pollAttempts:  10,
		pollInterval:  200 * time.Millisecond,
	}
}

// SetPolling changes how long getTestEmail waits for a message to arrive.
func (h *ServiceHandler) SetPolling(attempts int, interval time.Duration) {
	h.pollAttempts = attempts
	h.pollInterval = interval
}

type serviceRequest struct {
	Method    string          `json:"method" binding:"required"`
	Arguments json.RawMessage `json:"arguments"`
}

// HandleRequest handles POST /api with {method, arguments}.
func (h *ServiceHandler) HandleRequest(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	switch req.Method {
	case "shutdown":
		h.shutdown(c)
	case "getTestEmail":
		h.getTestEmail(c, req.Arguments)
	default:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
	}
}

func (h *ServiceHandler) shutdown(c *gin.Context) {
	log.Println("Received shutdown command via Service API")
	c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
	select {
	case h.shutdownChan <- struct{}{}:
	default:
		log.Println("Shutdown channel already signaled or blocked.")
	}
}

// getTestEmail expects arguments [templateId, email] and waits briefly for the worker to deliver.
func (h *ServiceHandler) getTestEmail(c *gin.Context, raw json.RawMessage) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
		return
	}
	if h.readMockEmail == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Mock email store not configured"})
		return
	}
	templateID, to := args[0], args[1]

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	for i := 0; i < h.pollAttempts; i++ {
		msg, err := h.readMockEmail(ctx, to, templateID)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})
			return
		}
		if !errors.Is(err, email.ErrNoMockEmail) {
			log.Printf("Service API: error reading mock email %s for %s: %v", templateID, to, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		select {
		case <-ctx.Done():
			i = h.pollAttempts
		case <-time.After(h.pollInterval):
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email %s for %s not found", templateID, to)})
}

// Health handles GET /health
func (h *ServiceHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	c.JSON(status, gin.H{"success": status == http.StatusOK, "checks": result})
}
