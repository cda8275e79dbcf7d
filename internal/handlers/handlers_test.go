package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/middleware"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/internal/utils"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-handlers")
}

type stubProvider struct {
	calls int
}

func (p *stubProvider) CreateSession(ctx context.Context, req *services.CheckoutRequest) (*services.CheckoutSessionResult, error) {
	p.calls++
	return &services.CheckoutSessionResult{
		URL:       "https://pay.example.com/s/" + req.CommunityID,
		SessionID: "cs_" + req.CommunityID + "_" + req.UserID,
	}, nil
}

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	provider *stubProvider
	queue    *services.SyncQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := models.OpenInMemory(t.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { models.Close(db) })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatal(err)
	}

	appCfg := &config.AppConfig{PublicURL: "https://club.example.com", JoinRedirectMs: 1000, SignupPath: "/auth/signup"}
	checkoutCfg := &config.CheckoutConfig{WebhookSecret: "whsec", SessionTTL: 30 * time.Minute}

	logs := services.NewSystemLogService(db)
	queue := services.NewSyncQueue()
	provider := &stubProvider{}
	auth := services.NewAuthService(db, &config.JWTConfig{ExpireHour: 1, RefreshExpireHour: 24})
	pricing := services.NewPricingService(db)
	membership := services.NewMembershipService(db)
	checkout := services.NewCheckoutService(db, provider, checkoutCfg, appCfg, queue, membership, logs)
	queue.Handle(services.TaskTypeCheckoutFulfill, checkout.HandleFulfillTask)
	join := services.NewJoinService(pricing, membership, checkout, services.NewLocalGuard(time.Minute), appCfg)
	waitlist := services.NewWaitlistService(db, queue, nil, &config.WaitlistConfig{})

	authH := NewAuthHandler(auth, join)
	communityH := NewCommunityHandler(services.NewCommunityService(db, pricing), membership, join, checkout, auth)
	checkoutH := NewCheckoutHandler(checkout, logs)
	waitlistH := NewWaitlistHandler(waitlist)
	profileH := NewProfileHandler(services.NewProfileService(db))

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, queue).CheckHealth)
	api := r.Group("/api")
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh", authH.Refresh)
	api.POST("/waitlist", waitlistH.Submit)
	api.POST("/checkout/webhook", checkoutH.Webhook)

	optional := api.Group("", middleware.OptionalAuth())
	optional.GET("/communities/:id/membership", communityH.Membership)
	optional.POST("/communities/:id/join", communityH.Join)

	protected := api.Group("", middleware.AuthRequired())
	protected.GET("/auth/me", authH.GetCurrentUser)
	protected.GET("/profile", profileH.Get)
	protected.PUT("/profile", profileH.Update)
	protected.GET("/communities/:id/checkout/return", communityH.CheckoutReturn)
	protected.POST("/communities", middleware.RoleRequired("creator", "admin"), communityH.Create)
	protected.PUT("/communities/:id/pricing", communityH.UpdatePricing)

	return &testEnv{db: db, router: r, provider: provider, queue: queue}
}

func (e *testEnv) do(method, path, token string, body interface{}, header ...string) (*httptest.ResponseRecorder, response.Response) {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (e *testEnv) seedUser(t *testing.T, id string, role models.Role) string {
	t.Helper()
	hashed, _ := utils.HashPassword("password123")
	if err := e.db.Create(&models.User{ID: id, Email: id + "@example.com", Password: hashed, DisplayName: id, Role: role, IsActive: true}).Error; err != nil {
		t.Fatal(err)
	}
	token, err := utils.GenerateToken(id, id+"@example.com", role.String(), 1)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (e *testEnv) seedCommunity(t *testing.T, id string, pricing models.PricingType, cents int64) {
	t.Helper()
	if err := e.db.Create(&models.Community{ID: id, Name: id, PricingType: pricing, PriceCents: cents, CreatorID: "owner"}).Error; err != nil {
		t.Fatal(err)
	}
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %#v, expected object", resp.Data)
	}
	return m
}

func TestJoin_UnauthenticatedThenRegisterResumes(t *testing.T) {
	e := newTestEnv(t)
	e.seedCommunity(t, "C123", models.PricingFree, 0)

	w, resp := e.do("POST", "/api/communities/C123/join", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("join status = %d, body %s", w.Code, w.Body.String())
	}
	data := dataMap(t, resp)
	if data["action"] != "sign_up" {
		t.Fatalf("action = %v, expected sign_up", data["action"])
	}

	redirect, _ := url.Parse(data["redirect_url"].(string))
	next := redirect.Query().Get("next")
	if next != "/communities/C123?intent=join" {
		t.Fatalf("next = %q", next)
	}

	w, resp = e.do("POST", "/api/auth/register", "", gin.H{
		"email":        "new@example.com",
		"password":     "password123",
		"display_name": "New",
		"next":         next,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	data = dataMap(t, resp)
	join, ok := data["join"].(map[string]interface{})
	if !ok || join["action"] != "joined" {
		t.Fatalf("join = %v, expected joined", data["join"])
	}
	if data["next"] != "/communities/C123/home" {
		t.Errorf("next = %v", data["next"])
	}

	user := data["user"].(map[string]interface{})
	var n int64
	e.db.Model(&models.Membership{}).Where("user_id = ? AND community_id = ?", user["id"], "C123").Count(&n)
	if n != 1 {
		t.Errorf("membership rows = %d, expected 1", n)
	}
}

func TestLogin_IgnoresUnsafeNext(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "u1", models.RoleStudent)

	w, resp := e.do("POST", "/api/auth/login", "", gin.H{
		"email":    "u1@example.com",
		"password": "password123",
		"next":     "https://evil.example.com/communities/c1?intent=join",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	data := dataMap(t, resp)
	if _, ok := data["next"]; ok {
		t.Errorf("next = %v, expected omitted", data["next"])
	}
	if _, ok := data["join"]; ok {
		t.Error("join ran for an unsafe return path")
	}
}

func TestJoin_PaidCheckoutAndWebhook(t *testing.T) {
	e := newTestEnv(t)
	token := e.seedUser(t, "u1", models.RoleStudent)
	e.seedCommunity(t, "c2", models.PricingMonthly, 2900)

	w, resp := e.do("POST", "/api/communities/c2/join", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("join status = %d, body %s", w.Code, w.Body.String())
	}
	data := dataMap(t, resp)
	if data["action"] != "checkout" || data["checkout_url"] != "https://pay.example.com/s/c2" {
		t.Fatalf("outcome = %v", data)
	}

	_, resp = e.do("GET", "/api/communities/c2/checkout/return", token, nil)
	if dataMap(t, resp)["state"] != "pending" {
		t.Errorf("return state = %v, expected pending", resp.Data)
	}

	body := `{"id":"evt_1","type":"checkout.completed","data":{"sessionId":"` + data["session_id"].(string) + `"}}`
	w, _ = e.do("POST", "/api/checkout/webhook", "", body, services.HeaderCheckoutSignature, "sha256=bad")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad signature status = %d, expected 401", w.Code)
	}

	w, _ = e.do("POST", "/api/checkout/webhook", "", body, services.HeaderCheckoutSignature, services.Sign("whsec", []byte(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, body %s", w.Code, w.Body.String())
	}
	e.queue.Wait()

	_, resp = e.do("GET", "/api/communities/c2/checkout/return", token, nil)
	if d := dataMap(t, resp); d["state"] != "member" || d["url"] != "/communities/c2/home" {
		t.Errorf("return = %v, expected member", d)
	}

	_, resp = e.do("GET", "/api/communities/c2/membership", token, nil)
	if dataMap(t, resp)["status"] != "member" {
		t.Errorf("membership = %v", resp.Data)
	}
}

func TestJoin_NotFound(t *testing.T) {
	e := newTestEnv(t)
	token := e.seedUser(t, "u1", models.RoleStudent)

	w, resp := e.do("POST", "/api/communities/missing/join", token, nil)
	if w.Code != http.StatusNotFound || resp.Error != services.JoinErrNotFound {
		t.Errorf("status = %d error = %q, expected 404 NOT_FOUND", w.Code, resp.Error)
	}
}

func TestWaitlist_Submit(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name  string
		body  interface{}
		code  int
		error string
	}{
		{"first", gin.H{"email": "a@b.com", "name": "A"}, http.StatusCreated, ""},
		{"duplicate", gin.H{"email": "A@B.com"}, http.StatusConflict, services.WaitlistErrEmailExists},
		{"invalid email", gin.H{"email": "not-an-email"}, http.StatusBadRequest, services.WaitlistErrInvalidEmail},
		{"invalid interest", gin.H{"email": "c@d.com", "interest": "lurker"}, http.StatusBadRequest, services.WaitlistErrInvalidInterest},
		{"malformed", "{", http.StatusBadRequest, response.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := e.do("POST", "/api/waitlist", "", tt.body)
			if w.Code != tt.code {
				t.Errorf("status = %d, expected %d (body %s)", w.Code, tt.code, w.Body.String())
			}
			if resp.Error != tt.error {
				t.Errorf("error = %q, expected %q", resp.Error, tt.error)
			}
			if resp.Success != (tt.code == http.StatusCreated) {
				t.Errorf("success = %v", resp.Success)
			}
		})
	}
}

func TestCommunities_CreateAndPricing(t *testing.T) {
	e := newTestEnv(t)
	student := e.seedUser(t, "s1", models.RoleStudent)
	creator := e.seedUser(t, "cr1", models.RoleCreator)

	w, _ := e.do("POST", "/api/communities", student, gin.H{"name": "Nope"})
	if w.Code != http.StatusForbidden {
		t.Errorf("student create status = %d, expected 403", w.Code)
	}

	w, resp := e.do("POST", "/api/communities", creator, gin.H{"name": "Guitar Club", "pricing_type": "monthly", "price_cents": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("paid with zero price status = %d, expected 400", w.Code)
	}

	w, resp = e.do("POST", "/api/communities", creator, gin.H{"name": "Guitar Club", "pricing_type": "one-time", "price_cents": 4900})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	id := dataMap(t, resp)["id"].(string)

	_, resp = e.do("GET", "/api/communities/"+id+"/membership", creator, nil)
	if dataMap(t, resp)["status"] != "member" {
		t.Errorf("creator membership = %v", resp.Data)
	}

	w, _ = e.do("PUT", "/api/communities/"+id+"/pricing", student, gin.H{"pricing_type": "free"})
	if w.Code != http.StatusForbidden {
		t.Errorf("non-owner pricing status = %d, expected 403", w.Code)
	}

	w, resp = e.do("PUT", "/api/communities/"+id+"/pricing", creator, gin.H{"pricing_type": "free"})
	if w.Code != http.StatusOK {
		t.Fatalf("pricing status = %d, body %s", w.Code, w.Body.String())
	}
	if d := dataMap(t, resp); d["pricing_type"] != "free" || d["price_cents"] != float64(0) {
		t.Errorf("community = %v", d)
	}
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t)
	token := e.seedUser(t, "u1", models.RoleCreator)

	w, resp := e.do("PUT", "/api/profile", token, gin.H{"display_name": "Ann"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	d := dataMap(t, resp)
	if d["display_name"] != "Ann" || d["badge"] != models.RoleCreator.Badge() {
		t.Errorf("profile = %v", d)
	}

	w, _ = e.do("GET", "/api/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous profile status = %d, expected 401", w.Code)
	}
}

func TestRefreshFlow(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "u1", models.RoleStudent)

	_, resp := e.do("POST", "/api/auth/login", "", gin.H{"email": "u1@example.com", "password": "password123"})
	refresh := dataMap(t, resp)["refresh_token"].(string)

	w, resp := e.do("POST", "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", w.Code)
	}
	token := dataMap(t, resp)["token"].(string)

	w, resp = e.do("GET", "/api/auth/me", token, nil)
	if w.Code != http.StatusOK || dataMap(t, resp)["id"] != "u1" {
		t.Errorf("me = %d %v", w.Code, resp.Data)
	}

	w, _ = e.do("POST", "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("reused refresh status = %d, expected 401", w.Code)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w, _ := e.do("GET", "/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"queue_mode":"sync"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}
