package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimit_AllowsNormalRequests(t *testing.T) {
	rl := NewRateLimiter(10, 10) // 10 rps, burst 10

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// First request should pass
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_BlocksExcessiveRequests(t *testing.T) {
	rl := NewRateLimiter(1, 2) // 1 rps, burst 2

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Send burst+1 requests rapidly, last one should be blocked
	var lastCode int
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		router.ServeHTTP(w, req)
		lastCode = w.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("expected status %d after burst exceeded, got %d", http.StatusTooManyRequests, lastCode)
	}
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1) // 1 rps, burst 1

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// First IP uses its burst
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/test", nil)
	req1.RemoteAddr = "10.0.0.1:12345"
	router.ServeHTTP(w1, req1)

	if w1.Code != http.StatusOK {
		t.Errorf("IP1 first request: expected %d, got %d", http.StatusOK, w1.Code)
	}

	// Second IP should still have its own burst
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/test", nil)
	req2.RemoteAddr = "10.0.0.2:12345"
	router.ServeHTTP(w2, req2)

	if w2.Code != http.StatusOK {
		t.Errorf("IP2 first request: expected %d, got %d", http.StatusOK, w2.Code)
	}
}

func TestRateLimit_ErrorEnvelope(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/waitlist", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	var w *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/waitlist", nil)
		req.RemoteAddr = "10.0.0.9:12345"
		router.ServeHTTP(w, req)
	}

	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error != response.CodeTooManyRequests {
		t.Errorf("error = %q, expected %q", body.Error, response.CodeTooManyRequests)
	}
}

func TestRateLimit_RetryAfter(t *testing.T) {
	rl := NewRateLimiter(0.5, 1)

	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/api/waitlist", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/waitlist", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		router.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusCreated {
		t.Fatalf("first request: expected %d, got %d", http.StatusCreated, w.Code)
	}
	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, expected %q", got, "2")
	}
}

func TestRateLimit_RefusedRequestsDoNotDrainBucket(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	if ok, _ := rl.reserve("10.0.0.1"); !ok {
		t.Fatal("first request should pass")
	}
	for i := 0; i < 3; i++ {
		if ok, _ := rl.reserve("10.0.0.1"); ok {
			t.Fatalf("request %d within the same second should be refused", i+2)
		}
	}

	now = now.Add(time.Second)
	if ok, _ := rl.reserve("10.0.0.1"); !ok {
		t.Error("request one second later should pass")
	}
}

func TestRateLimit_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(5, 5)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	rl.reserve("10.0.0.1")
	rl.reserve("10.0.0.2")
	if rl.Len() != 2 {
		t.Fatalf("Len() = %d, expected 2", rl.Len())
	}

	now = now.Add(limiterSweepInterval)
	rl.reserve("10.0.0.2")
	if rl.Len() != 2 {
		t.Errorf("Len() = %d, expected 2 before idle TTL", rl.Len())
	}

	now = now.Add(limiterIdleTTL + time.Second)
	rl.reserve("10.0.0.3")
	if rl.Len() != 1 {
		t.Errorf("Len() = %d, expected only the new client after sweep", rl.Len())
	}
}
