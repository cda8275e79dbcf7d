package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
	"gorm.io/gorm"
)

// Waitlist error codes.
const (
	WaitlistErrInvalidEmail    = "INVALID_EMAIL"
	WaitlistErrInvalidInterest = "INVALID_INTEREST"
	WaitlistErrEmailExists     = "EMAIL_EXISTS"
	WaitlistErrDatabase        = "DATABASE_ERROR"
	WaitlistErrNetwork         = "NETWORK_ERROR"
	WaitlistErrUnknown         = "UNKNOWN_ERROR"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the loose one-@, dotted-domain check used at sign-up.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type WaitlistSubmission struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Interest string `json:"interest"`
	Source   string `json:"source"`
}

// WaitlistResult is returned for every submission; failures never escape as errors.
type WaitlistResult struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Error   string                `json:"error,omitempty"`
	Entry   *models.WaitlistEntry `json:"entry,omitempty"`
}

func waitlistFailure(code, msg string) *WaitlistResult {
	return &WaitlistResult{Success: false, Message: msg, Error: code}
}

type WaitlistService struct {
	db            *gorm.DB
	queue         TaskQueue
	mailer        *Mailer
	defaultSource string
}

func NewWaitlistService(db *gorm.DB, queue TaskQueue, mailer *Mailer, cfg *config.WaitlistConfig) *WaitlistService {
	source := cfg.DefaultSource
	if source == "" {
		source = "landing_page"
	}
	return &WaitlistService{db: db, queue: queue, mailer: mailer, defaultSource: source}
}

// Submit validates and stores a waitlist signup. The unique index on email
// decides duplicates, so two concurrent submissions cannot both succeed.
func (s *WaitlistService) Submit(ctx context.Context, sub WaitlistSubmission) (result *WaitlistResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("[Waitlist] Submission panicked")
			result = waitlistFailure(WaitlistErrUnknown, "Something went wrong. Please try again.")
		}
	}()

	email := normalizeEmail(sub.Email)
	if email == "" || !ValidEmail(email) {
		return waitlistFailure(WaitlistErrInvalidEmail, "Please enter a valid email address.")
	}

	interest := models.InterestCreator
	if strings.TrimSpace(sub.Interest) != "" {
		parsed, err := models.ParseInterest(sub.Interest)
		if err != nil {
			return waitlistFailure(WaitlistErrInvalidInterest, "Please choose what you are interested in.")
		}
		interest = parsed
	}

	source := strings.TrimSpace(sub.Source)
	if source == "" {
		source = s.defaultSource
	}

	entry := &models.WaitlistEntry{
		Email:    email,
		Name:     strings.TrimSpace(sub.Name),
		Interest: interest,
		Source:   source,
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		switch {
		case models.IsDuplicateKey(err):
			return waitlistFailure(WaitlistErrEmailExists, "This email is already on the waitlist.")
		case isNetworkError(err):
			logger.Warn().Err(err).Str("email", logger.RedactEmail(email)).Msg("[Waitlist] Store unreachable")
			return waitlistFailure(WaitlistErrNetwork, "Network error. Please check your connection and try again.")
		default:
			logger.Error().Err(err).Str("email", logger.RedactEmail(email)).Msg("[Waitlist] Insert failed")
			return waitlistFailure(WaitlistErrDatabase, "Could not join the waitlist. Please try again.")
		}
	}

	logger.Info().Str("email", logger.RedactEmail(email)).Str("interest", interest.String()).Str("source", source).Msg("[Waitlist] Joined")
	s.enqueueWelcome(entry)

	return &WaitlistResult{
		Success: true,
		Message: "You're on the list! We'll be in touch soon.",
		Entry:   entry,
	}
}

func (s *WaitlistService) enqueueWelcome(entry *models.WaitlistEntry) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(TaskTypeWaitlistWelcome, &WaitlistWelcomeTask{
		EntryID:  entry.ID,
		Email:    entry.Email,
		Name:     entry.Name,
		Interest: entry.Interest.String(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("[Waitlist] Welcome task not enqueued")
	}
}

// HandleWelcomeTask is the queue handler for TaskTypeWaitlistWelcome.
func (s *WaitlistService) HandleWelcomeTask(ctx context.Context, payload []byte) error {
	var task WaitlistWelcomeTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("decode welcome task: %w", err)
	}
	return s.mailer.SendWaitlistWelcome(&task)
}

type WaitlistListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Interest string `form:"interest"`
	Source   string `form:"source"`
	Search   string `form:"search"`
}

type WaitlistListResponse struct {
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Items    []models.WaitlistEntry `json:"items"`
}

func (s *WaitlistService) List(ctx context.Context, req *WaitlistListRequest) (*WaitlistListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.WaitlistEntry{})
	if req.Interest != "" {
		interest, err := models.ParseInterest(req.Interest)
		if err != nil {
			return nil, err
		}
		query = query.Where("interest = ?", interest)
	}
	if req.Source != "" {
		query = query.Where("source = ?", req.Source)
	}
	if req.Search != "" {
		like := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("email LIKE ? OR name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.WaitlistEntry
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &WaitlistListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// CountByInterest returns the number of entries per interest.
func (s *WaitlistService) CountByInterest(ctx context.Context) (map[models.Interest]int64, error) {
	var rows []struct {
		Interest models.Interest
		Count    int64
	}
	if err := s.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Select("interest, COUNT(*) AS count").
		Group("interest").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.Interest]int64, len(models.Interests()))
	for _, i := range models.Interests() {
		counts[i] = 0
	}
	for _, r := range rows {
		counts[r.Interest] = r.Count
	}
	return counts, nil
}
