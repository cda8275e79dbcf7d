package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
)

// Join error codes.
const (
	JoinErrDatabase   = "DATABASE_ERROR"
	JoinErrNetwork    = "NETWORK_ERROR"
	JoinErrCheckout   = "CHECKOUT_ERROR"
	JoinErrNotFound   = "NOT_FOUND"
	JoinErrInProgress = "JOIN_IN_PROGRESS"
)

// JoinError is a failed join. Retryable errors leave the visitor a non-member
// and the same action may simply be sent again.
type JoinError struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *JoinError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *JoinError) Unwrap() error { return e.Err }

func (e *JoinError) HTTPStatus() int {
	switch e.Code {
	case JoinErrNotFound:
		return http.StatusNotFound
	case JoinErrInProgress:
		return http.StatusConflict
	case JoinErrCheckout:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func storeJoinError(msg string, err error) *JoinError {
	code := JoinErrDatabase
	if isNetworkError(err) {
		code = JoinErrNetwork
	}
	return &JoinError{Code: code, Message: msg, Retryable: true, Err: err}
}

// JoinAction tells the client what to do next.
type JoinAction string

const (
	ActionSignUp        JoinAction = "sign_up"
	ActionGoToCommunity JoinAction = "go_to_community"
	ActionJoined        JoinAction = "joined"
	ActionCheckout      JoinAction = "checkout"
)

// JoinState is the visitor's relation to the community after the action.
type JoinState string

const (
	StateUnauthenticated JoinState = "unauthenticated"
	StateNonMember       JoinState = "non_member"
	StateMember          JoinState = "member"
)

type JoinRequest struct {
	UserID      string
	CommunityID string
}

type JoinOutcome struct {
	Action          JoinAction `json:"action"`
	State           JoinState  `json:"state"`
	CommunityID     string     `json:"community_id"`
	RedirectURL     string     `json:"redirect_url,omitempty"`
	CheckoutURL     string     `json:"checkout_url,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	NavigateAfterMs int        `json:"navigate_after_ms,omitempty"`
	Message         string     `json:"message"`
}

// CheckoutStarter opens a checkout session for a paid join.
type CheckoutStarter interface {
	Begin(ctx context.Context, userID, communityID string, pricing Pricing) (*models.CheckoutSession, error)
}

type JoinService struct {
	pricing    *PricingService
	membership *MembershipService
	checkout   CheckoutStarter
	guard      InFlightGuard
	appCfg     *config.AppConfig
}

func NewJoinService(pricing *PricingService, membership *MembershipService, checkout CheckoutStarter, guard InFlightGuard, appCfg *config.AppConfig) *JoinService {
	return &JoinService{
		pricing:    pricing,
		membership: membership,
		checkout:   checkout,
		guard:      guard,
		appCfg:     appCfg,
	}
}

// Join decides and performs the join action. Pricing is always read from
// storage at call time.
func (s *JoinService) Join(ctx context.Context, req JoinRequest) (*JoinOutcome, error) {
	if req.UserID == "" {
		signupPath := s.appCfg.SignupPath
		if signupPath == "" {
			signupPath = "/auth/signup"
		}
		return &JoinOutcome{
			Action:      ActionSignUp,
			State:       StateUnauthenticated,
			CommunityID: req.CommunityID,
			RedirectURL: SignupURL(signupPath, JoinReturnPath(req.CommunityID)),
			Message:     "Create an account to join this community",
		}, nil
	}

	pricing, err := s.pricing.Lookup(ctx, req.CommunityID)
	if err != nil {
		if errors.Is(err, ErrCommunityNotFound) {
			return nil, &JoinError{Code: JoinErrNotFound, Message: "community not found", Err: err}
		}
		return nil, storeJoinError("could not load community pricing", err)
	}

	member, err := s.membership.IsMember(ctx, req.UserID, req.CommunityID)
	if err != nil {
		return nil, storeJoinError("could not check membership", err)
	}
	if member {
		return s.memberOutcome(req.CommunityID, ActionGoToCommunity, "You are already a member"), nil
	}

	if !pricing.RequiresPayment() {
		return s.joinFree(ctx, req)
	}
	return s.joinPaid(ctx, req, pricing)
}

func (s *JoinService) memberOutcome(communityID string, action JoinAction, msg string) *JoinOutcome {
	return &JoinOutcome{
		Action:      action,
		State:       StateMember,
		CommunityID: communityID,
		RedirectURL: CommunityHomePath(communityID),
		Message:     msg,
	}
}

func (s *JoinService) joinFree(ctx context.Context, req JoinRequest) (*JoinOutcome, error) {
	created, err := s.membership.Grant(ctx, req.UserID, req.CommunityID, models.SourceDirect)
	if err != nil {
		logger.Error().Err(err).Str("user_id", req.UserID).Str("community_id", req.CommunityID).Msg("[Join] Grant failed")
		return nil, storeJoinError("could not join community, please try again", err)
	}
	if created {
		logger.Info().Str("user_id", req.UserID).Str("community_id", req.CommunityID).Msg("[Join] Joined free community")
	}

	out := s.memberOutcome(req.CommunityID, ActionJoined, "Welcome to the community!")
	out.NavigateAfterMs = s.appCfg.JoinRedirectMs
	return out, nil
}

func (s *JoinService) joinPaid(ctx context.Context, req JoinRequest, pricing Pricing) (*JoinOutcome, error) {
	key := joinGuardKey(req.UserID, req.CommunityID)
	token, ok, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return nil, &JoinError{Code: JoinErrNetwork, Message: "could not start checkout, please try again", Retryable: true, Err: err}
	}
	if !ok {
		return nil, &JoinError{Code: JoinErrInProgress, Message: "a checkout is already being prepared", Retryable: true, Err: ErrJoinInProgress}
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("[Join] Guard release failed")
		}
	}()

	session, err := s.checkout.Begin(ctx, req.UserID, req.CommunityID, pricing)
	if err != nil {
		logger.Error().Err(err).Str("user_id", req.UserID).Str("community_id", req.CommunityID).Msg("[Join] Checkout failed")
		return nil, &JoinError{Code: JoinErrCheckout, Message: "could not start checkout, please try again", Retryable: true, Err: err}
	}

	return &JoinOutcome{
		Action:      ActionCheckout,
		State:       StateNonMember,
		CommunityID: req.CommunityID,
		CheckoutURL: session.CheckoutURL,
		RedirectURL: session.CheckoutURL,
		SessionID:   session.ProviderSessionID,
		Message:     "Redirecting to checkout",
	}, nil
}
