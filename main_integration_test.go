//go:build integration

package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Run with: go test -tags integration . (needs MONGO_URI and a Redis at REDIS_ADDR)

const (
	testAppBinary         = "./realty_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/api/v1/ping"
	testEmailDomain       = "@integration.realty.test"
)

func TestMain(m *testing.M) {
	defer func() {
		log.Println("Integration Test Teardown: Cleaning up test binary...")
		_ = os.Remove(testAppBinary)
	}()

	_ = godotenv.Load()
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set, skipping integration tests")
		return
	}

	log.Println("Integration Test Setup: Building application...")
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}
	defer cleanupTestData()

	common := []string{
		"JWT_SECRET=integration-test-secret",
		"JWT_REFRESH_SECRET=integration-test-refresh-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"CLOUDFLARE_TURNSTILE_SECRET_KEY=",
		"SMTP_FROM_ADDRESS=test@example.com",
	}

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(append(os.Environ(), common...),
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=50",
		"RATE_LIMIT_SOFT_REFILL_RATE=50",
		"RATE_LIMIT_HARD_BUCKET_SIZE=100",
		"RATE_LIMIT_HARD_REFILL_RATE=100",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(append(os.Environ(), common...), "SERVICE_API_PORT="+testServiceApiPortBg)
	bgCmd.Stderr = os.Stderr
	bgCmd.Stdout = os.Stdout
	if err := bgCmd.Start(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("Failed to start Background Worker process: %v", err)
		os.Exit(1)
	}

	defer func() {
		log.Println("Integration Test Teardown: Shutting down application processes...")
		for _, cmd := range []*exec.Cmd{bgCmd, apiCmd} {
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				_ = cmd.Process.Kill()
				continue
			}
			_, _ = cmd.Process.Wait()
		}
	}()

	log.Printf("Integration Test Setup: Waiting for API at %s...", pingEndpoint)
	ready := false
	for start := time.Now(); time.Since(start) < startupTimeout; time.Sleep(200 * time.Millisecond) {
		resp, err := http.Get(pingEndpoint)
		if err != nil {
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK && string(body) == "pong" {
			ready = true
			break
		}
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}
	// Give the worker a moment to connect to Redis.
	time.Sleep(2 * time.Second)

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

type apiClient struct {
	t           *testing.T
	http        *http.Client
	accessToken string
}

func newAPIClient(t *testing.T) *apiClient {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (a *apiClient) do(method, path string, payload interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, testAppURL+path, body)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.accessToken)
	}
	resp, err := a.http.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		out = map[string]interface{}{"raw_body": string(raw)}
	}
	return resp.StatusCode, out
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d%s", prefix, time.Now().UnixNano(), testEmailDomain)
}

func (a *apiClient) register(name, email, password, role string) map[string]interface{} {
	a.t.Helper()
	status, body := a.do("POST", "/api/v1/auth/register", map[string]interface{}{
		"name": name, "email": email, "password": password, "role": role,
	})
	require.Equal(a.t, http.StatusCreated, status, "register: %v", body)
	a.accessToken, _ = body["accessToken"].(string)
	require.NotEmpty(a.t, a.accessToken)
	return body["user"].(map[string]interface{})
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_RegisterLoginRefresh(t *testing.T) {
	client := newAPIClient(t)
	email := uniqueEmail("client")
	user := client.register("Integration Client", email, "secret123", "client")
	assert.Equal(t, "client", user["role"])

	welcome := getEmailFromServiceAPI(t, "welcome", email)
	assert.Contains(t, welcome["body"], "Integration Client")

	status, me := client.do("GET", "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, email, me["email"])

	status, refreshed := client.do("POST", "/api/v1/auth/refresh", nil)
	require.Equal(t, http.StatusOK, status, "refresh: %v", refreshed)
	assert.NotEmpty(t, refreshed["accessToken"])

	other := newAPIClient(t)
	status, _ = other.do("POST", "/api/v1/auth/login", map[string]interface{}{"email": email, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = other.do("POST", "/api/v1/auth/login", map[string]interface{}{"email": email, "password": "secret123"})
	assert.Equal(t, http.StatusOK, status)
}

func TestIntegration_PasswordReset(t *testing.T) {
	client := newAPIClient(t)
	email := uniqueEmail("reset")
	client.register("Reset Me", email, "secret123", "client")

	status, _ := client.do("POST", "/api/v1/auth/forgot-password", map[string]interface{}{"email": email})
	require.Equal(t, http.StatusOK, status)

	msg := getEmailFromServiceAPI(t, "password_reset", email)
	match := regexp.MustCompile(`/reset-password/([0-9a-f]+)`).FindStringSubmatch(msg["body"].(string))
	require.Len(t, match, 2, "reset link not found in %q", msg["body"])

	status, body := client.do("POST", "/api/v1/auth/reset-password/"+match[1], map[string]interface{}{"password": "brandnew456"})
	require.Equal(t, http.StatusOK, status, "reset: %v", body)

	status, _ = client.do("POST", "/api/v1/auth/reset-password/"+match[1], map[string]interface{}{"password": "another789"})
	assert.Equal(t, http.StatusBadRequest, status, "reset tokens are single use")

	status, _ = newAPIClient(t).do("POST", "/api/v1/auth/login", map[string]interface{}{"email": email, "password": "brandnew456"})
	assert.Equal(t, http.StatusOK, status)
}

func TestIntegration_ListingInterestFlow(t *testing.T) {
	agent := newAPIClient(t)
	agentEmail := uniqueEmail("agent")
	agent.register("Integration Agent", agentEmail, "secret123", "agent")

	status, created := agent.do("POST", "/api/v1/properties", map[string]interface{}{
		"properties": map[string]interface{}{
			"address": "12 Integration Way", "city": "Testville", "price": 450000,
			"beds": 3, "baths": 2, "propertyType": "house", "transactionType": "sale",
		},
		"geometry": map[string]interface{}{"type": "Point", "coordinates": []float64{174.7633, -36.8485}},
	})
	require.Equal(t, http.StatusCreated, status, "create: %v", created)
	propertyID := created["id"].(string)

	status, page := newAPIClient(t).do("GET", "/api/v1/properties?city=Testville&near=174.76,-36.85&radiusKm=5", nil)
	require.Equal(t, http.StatusOK, status, "search: %v", page)
	assert.GreaterOrEqual(t, page["total"], float64(1))

	client := newAPIClient(t)
	client.register("Interested Client", uniqueEmail("buyer"), "secret123", "client")
	status, interest := client.do("POST", "/api/v1/properties/"+propertyID+"/interest", map[string]interface{}{"message": "Can I view it on Saturday?"})
	require.Equal(t, http.StatusCreated, status, "interest: %v", interest)

	status, _ = client.do("POST", "/api/v1/properties/"+propertyID+"/interest", map[string]interface{}{"message": "again"})
	assert.Equal(t, http.StatusBadRequest, status, "duplicate interest")

	lead := getEmailFromServiceAPI(t, "new_interest", agentEmail)
	assert.Contains(t, lead["body"], "12 Integration Way")

	status, _ = client.do("PUT", "/api/v1/properties/"+propertyID, map[string]interface{}{"properties": map[string]interface{}{"price": 1}})
	assert.Equal(t, http.StatusForbidden, status, "clients cannot edit listings")

	status, _ = agent.do("DELETE", "/api/v1/properties/"+propertyID, nil)
	assert.Equal(t, http.StatusOK, status)
}

func callServiceAPI(t *testing.T, method string, args []interface{}) (map[string]interface{}, int, error) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{"method": method, "arguments": args})
	require.NoError(t, err)
	resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func getEmailFromServiceAPI(t *testing.T, templateID, emailAddr string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		body, status, err := callServiceAPI(t, "getTestEmail", []interface{}{templateID, emailAddr})
		if err == nil && status == http.StatusOK {
			if data, ok := body["data"].(map[string]interface{}); ok {
				return data
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("Timeout waiting for %s email to %s", templateID, emailAddr)
	return nil
}

func cleanupTestData() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Printf("Failed to connect to MongoDB for cleanup: %v", err)
		return
	}
	defer func() { _ = client.Disconnect(ctx) }()

	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "realty"
	}
	db := client.Database(dbName)

	filter := bson.M{"email": bson.M{"$regex": regexp.QuoteMeta(testEmailDomain) + "$"}}
	cur, err := db.Collection("users").Find(ctx, filter)
	if err != nil {
		log.Printf("Cleanup: failed to list test users: %v", err)
		return
	}
	var users []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cur.All(ctx, &users); err != nil {
		log.Printf("Cleanup: failed to decode test users: %v", err)
		return
	}
	ids := make([]interface{}, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if len(ids) > 0 {
		_, _ = db.Collection("properties").DeleteMany(ctx, bson.M{"agent_id": bson.M{"$in": ids}})
		_, _ = db.Collection("interests").DeleteMany(ctx, bson.M{"client_id": bson.M{"$in": ids}})
	}
	res, err := db.Collection("users").DeleteMany(ctx, filter)
	if err != nil {
		log.Printf("Cleanup: failed to delete test users: %v", err)
		return
	}
	log.Printf("Cleanup: deleted %d test users.", res.DeletedCount)
}
