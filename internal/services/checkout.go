package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/creatorclub/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	HeaderCheckoutSignature = "X-Checkout-Signature"
	EventCheckoutCompleted  = "checkout.completed"
	signaturePrefix         = "sha256="
)

var (
	ErrInvalidSignature = response.NewUnauthorized("invalid webhook signature")
	ErrInvalidEvent     = response.NewBadRequest("invalid webhook payload")
)

// WebhookEvent is the body the provider posts after a session changes state.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID   string `json:"sessionId"`
		CommunityID string `json:"communityId"`
		UserID      string `json:"userId"`
	} `json:"data"`
}

// CheckoutReturn is what the post-checkout landing page shows.
type CheckoutReturn struct {
	State         string                `json:"state"` // member, pending
	URL           string                `json:"url,omitempty"`
	SessionStatus models.CheckoutStatus `json:"session_status,omitempty"`
	StatusLabel   string                `json:"status_label,omitempty"`
}

type CheckoutService struct {
	db         *gorm.DB
	provider   CheckoutProvider
	cfg        *config.CheckoutConfig
	publicURL  string
	queue      TaskQueue
	membership *MembershipService
	logs       *SystemLogService
	now        func() time.Time
}

func NewCheckoutService(db *gorm.DB, provider CheckoutProvider, cfg *config.CheckoutConfig, appCfg *config.AppConfig, queue TaskQueue, membership *MembershipService, logs *SystemLogService) *CheckoutService {
	return &CheckoutService{
		db:         db,
		provider:   provider,
		cfg:        cfg,
		publicURL:  strings.TrimRight(appCfg.PublicURL, "/"),
		queue:      queue,
		membership: membership,
		logs:       logs,
		now:        time.Now,
	}
}

// Begin opens a provider session and records it as pending. No membership
// is written here; that happens when the provider reports completion.
func (s *CheckoutService) Begin(ctx context.Context, userID, communityID string, pricing Pricing) (*models.CheckoutSession, error) {
	req := &CheckoutRequest{
		CommunityID: communityID,
		UserID:      userID,
		SuccessURL:  s.publicURL + CommunityPath(communityID) + "?checkout=success",
		CancelURL:   s.publicURL + CommunityPath(communityID) + "?checkout=cancelled",
		PriceCents:  pricing.PriceCents,
		Mode:        pricing.Type.CheckoutMode(),
	}

	res, err := s.provider.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}

	expiresAt := res.ExpiresAt
	if expiresAt.IsZero() {
		ttl := s.cfg.SessionTTL
		if ttl <= 0 {
			ttl = 30 * time.Minute
		}
		expiresAt = s.now().Add(ttl)
	}

	session := &models.CheckoutSession{
		UserID:            userID,
		CommunityID:       communityID,
		ProviderSessionID: res.SessionID,
		CheckoutURL:       res.URL,
		PriceCents:        pricing.PriceCents,
		PricingType:       pricing.Type,
		Status:            models.CheckoutPending,
		ExpiresAt:         expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("record checkout session: %w", err)
	}

	logger.Info().
		Str("user_id", userID).
		Str("community_id", communityID).
		Str("session_id", session.ProviderSessionID).
		Msg("[Checkout] Session created")
	return session, nil
}

// VerifySignature checks an "sha256=<hex>" HMAC of body. An empty secret
// rejects everything.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.TrimPrefix(signature, signaturePrefix)), []byte(expectedMAC))
}

// Sign produces the header value VerifySignature accepts.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// HandleWebhook verifies and dispatches a provider event. Unknown event types
// are acknowledged with handled=false.
func (s *CheckoutService) HandleWebhook(ctx context.Context, body []byte, signature string) (bool, error) {
	if !VerifySignature(s.cfg.WebhookSecret, body, signature) {
		return false, ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return false, ErrInvalidEvent
	}
	if event.Type != EventCheckoutCompleted {
		logger.Debug().Str("type", event.Type).Msg("[Checkout] Ignoring webhook event")
		return false, nil
	}
	if event.Data.SessionID == "" {
		return false, ErrInvalidEvent
	}

	task := &CheckoutFulfillTask{
		ProviderSessionID: event.Data.SessionID,
		CommunityID:       event.Data.CommunityID,
		UserID:            event.Data.UserID,
		EventID:           event.ID,
	}
	if err := s.queue.Enqueue(TaskTypeCheckoutFulfill, task); err != nil {
		return false, fmt.Errorf("enqueue fulfillment: %w", err)
	}
	return true, nil
}

// HandleFulfillTask is the queue handler for TaskTypeCheckoutFulfill.
func (s *CheckoutService) HandleFulfillTask(ctx context.Context, payload []byte) error {
	var task CheckoutFulfillTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return err
	}
	return s.Fulfill(ctx, &task)
}

// Fulfill marks the session completed and grants membership. Redelivery of
// the same event is harmless.
func (s *CheckoutService) Fulfill(ctx context.Context, task *CheckoutFulfillTask) error {
	var granted bool
	var userID, communityID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CheckoutSession
		err := tx.Where("provider_session_id = ?", task.ProviderSessionID).First(&session).Error
		switch {
		case err == nil:
			userID, communityID = session.UserID, session.CommunityID
			if session.Status != models.CheckoutCompleted {
				now := s.now()
				if err := tx.Model(&session).Updates(map[string]interface{}{
					"status":       models.CheckoutCompleted,
					"completed_at": now,
				}).Error; err != nil {
					return err
				}
			}
		case models.IsNotFound(err):
			if task.UserID == "" || task.CommunityID == "" {
				return ErrSessionNotFound
			}
			logger.Warn().Str("session_id", task.ProviderSessionID).Msg("[Checkout] Fulfilling session unknown to this server")
			userID, communityID = task.UserID, task.CommunityID
		default:
			return err
		}

		created, err := grantMembership(tx, userID, communityID, models.SourceCheckout)
		granted = created
		return err
	})
	if err != nil {
		return err
	}

	if granted {
		s.logs.Info(LogEntry{
			Module:  "checkout",
			Action:  "fulfill",
			Message: "membership granted after checkout",
			UserID:  userID,
			Extra: map[string]string{
				"community_id": communityID,
				"session_id":   task.ProviderSessionID,
				"event_id":     task.EventID,
			},
		})
	}
	return nil
}

// ReturnStatus re-checks membership after the browser comes back from checkout.
func (s *CheckoutService) ReturnStatus(ctx context.Context, userID, communityID string) (*CheckoutReturn, error) {
	switch s.membership.Status(ctx, userID, communityID) {
	case StatusMember:
		return &CheckoutReturn{State: "member", URL: CommunityHomePath(communityID)}, nil
	case StatusUnknown:
		return nil, response.New(http.StatusServiceUnavailable, JoinErrDatabase, "could not check membership, please retry")
	}

	out := &CheckoutReturn{State: "pending", URL: CommunityPath(communityID)}
	var session models.CheckoutSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Order("created_at DESC").
		First(&session).Error
	if err == nil {
		out.SessionStatus = session.Status
		out.StatusLabel = session.Status.Label()
	} else if !models.IsNotFound(err) {
		return nil, err
	}
	return out, nil
}

// ExpireStale marks pending sessions past their expiry as expired.
func (s *CheckoutService) ExpireStale(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("status = ? AND expires_at < ?", models.CheckoutPending, s.now()).
		Update("status", models.CheckoutExpired)
	return res.RowsAffected, res.Error
}
