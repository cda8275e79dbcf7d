package services

import (
	"context"
	"os"
	"time"

	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const schedulerLockKey = "global"

// Scheduler runs housekeeping jobs on a cron schedule. A row in
// scheduler_locks makes each run happen on at most one replica.
type Scheduler struct {
	db         *gorm.DB
	cron       *cron.Cron
	instanceID string
	timeout    time.Duration
	now        func() time.Time
}

func NewScheduler(db *gorm.DB) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		db:         db,
		cron:       cron.New(),
		instanceID: host + ":" + time.Now().Format("150405.000"),
		timeout:    5 * time.Minute,
		now:        time.Now,
	}
}

// AddJob registers fn under name. hold is how long the lock row blocks other
// replicas and should be a little shorter than the interval of spec.
func (s *Scheduler) AddJob(name, spec string, hold time.Duration, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunOnce(ctx, name, hold, fn); err != nil {
			logger.Error().Err(err).Str("job", name).Msg("[Scheduler] Job failed")
		}
	})
	if err != nil {
		return err
	}
	logger.Infof("[Scheduler] Job %s scheduled (cron: %s)", name, spec)
	return nil
}

// RunOnce runs fn if this instance wins the lock for name. ran is false when
// another instance already holds it.
func (s *Scheduler) RunOnce(ctx context.Context, name string, hold time.Duration, fn func(ctx context.Context) error) (bool, error) {
	ok, err := s.tryLock(ctx, name, hold)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Debug().Str("job", name).Msg("[Scheduler] Skipped, locked by another instance")
		return false, nil
	}
	return true, fn(ctx)
}

func (s *Scheduler) tryLock(ctx context.Context, name string, hold time.Duration) (bool, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	if err := db.Where("lock_name = ? AND lock_key = ? AND expires_at <= ?", name, schedulerLockKey, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	err := db.Create(&models.SchedulerLock{
		LockName:  name,
		LockKey:   schedulerLockKey,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(hold),
	}).Error
	if err != nil {
		if models.IsDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Housekeeping bundles the services the periodic jobs act on.
type Housekeeping struct {
	Checkout         *CheckoutService
	Auth             *AuthService
	Logs             *SystemLogService
	LogRetentionDays int
}

// RegisterHousekeeping schedules session expiry, token purge and log cleanup.
func RegisterHousekeeping(s *Scheduler, h Housekeeping) error {
	jobs := []struct {
		name string
		spec string
		hold time.Duration
		fn   func(ctx context.Context) error
	}{
		{"expire_checkout_sessions", "*/15 * * * *", 14 * time.Minute, func(ctx context.Context) error {
			n, err := h.Checkout.ExpireStale(ctx)
			if n > 0 {
				logger.Infof("[Scheduler] Expired %d checkout sessions", n)
			}
			return err
		}},
		{"purge_refresh_tokens", "0 4 * * *", 23 * time.Hour, func(ctx context.Context) error {
			n, err := h.Auth.PurgeRefreshTokens(ctx, s.now())
			if n > 0 {
				logger.Infof("[Scheduler] Purged %d refresh tokens", n)
			}
			return err
		}},
		{"purge_system_logs", "30 4 * * *", 23 * time.Hour, func(ctx context.Context) error {
			n, err := h.Logs.CleanupOldLogs(h.LogRetentionDays)
			if n > 0 {
				logger.Infof("[Scheduler] Cleaned up %d logs older than %d days", n, h.LogRetentionDays)
			}
			return err
		}},
	}

	for _, j := range jobs {
		if err := s.AddJob(j.name, j.spec, j.hold, j.fn); err != nil {
			return err
		}
	}
	return nil
}
