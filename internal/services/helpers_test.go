package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/internal/utils"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.OpenInMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	t.Cleanup(func() { models.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id string, role models.Role) *models.User {
	t.Helper()
	hashed, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{
		ID:          id,
		Email:       id + "@example.com",
		Password:    hashed,
		DisplayName: id,
		Role:        role,
		IsActive:    true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedCommunity(t *testing.T, db *gorm.DB, id string, pricing models.PricingType, cents int64) *models.Community {
	t.Helper()
	c := &models.Community{ID: id, Name: "Community " + id, PricingType: pricing, PriceCents: cents, CreatorID: "owner"}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed community: %v", err)
	}
	return c
}

func membershipCount(t *testing.T, db *gorm.DB, userID, communityID string) int64 {
	t.Helper()
	var n int64
	db.Model(&models.Membership{}).Where("user_id = ? AND community_id = ?", userID, communityID).Count(&n)
	return n
}

type fakeProvider struct {
	mu    sync.Mutex
	calls []*CheckoutRequest
	err   error
	delay time.Duration
}

func (p *fakeProvider) CreateSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSessionResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	n := len(p.calls)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &CheckoutSessionResult{
		URL:       "https://pay.example.com/s/" + req.CommunityID,
		SessionID: fmt.Sprintf("cs_%s_%d", req.CommunityID, n),
	}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

var errProviderDown = errors.New("provider down")

type testServices struct {
	db         *gorm.DB
	provider   *fakeProvider
	queue      *SyncQueue
	membership *MembershipService
	pricing    *PricingService
	checkout   *CheckoutService
	join       *JoinService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := setupTestDB(t)
	provider := &fakeProvider{}
	queue := NewSyncQueue()
	membership := NewMembershipService(db)
	pricing := NewPricingService(db)
	checkoutCfg := &config.CheckoutConfig{WebhookSecret: "whsec", SessionTTL: 30 * time.Minute}
	appCfg := &config.AppConfig{PublicURL: "https://club.example.com", JoinRedirectMs: 1000, SignupPath: "/auth/signup"}
	checkout := NewCheckoutService(db, provider, checkoutCfg, appCfg, queue, membership, NewSystemLogService(db))
	queue.Handle(TaskTypeCheckoutFulfill, checkout.HandleFulfillTask)

	return &testServices{
		db:         db,
		provider:   provider,
		queue:      queue,
		membership: membership,
		pricing:    pricing,
		checkout:   checkout,
		join:       NewJoinService(pricing, membership, checkout, NewLocalGuard(time.Minute), appCfg),
	}
}
