package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultExpirerInterval = 5 * time.Minute

// BookingExpirer periodically marks pending bookings whose start time has
// passed as EXPIRED, one tenant at a time.
type BookingExpirer struct {
	bookings *BookingService
	tenants  *TenantService
	logger   *zap.Logger

	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBookingExpirer runs every five minutes unless SetInterval changes it.
func NewBookingExpirer(bookings *BookingService, tenants *TenantService, logger *zap.Logger) *BookingExpirer {
	return &BookingExpirer{
		bookings: bookings,
		tenants:  tenants,
		logger:   logger,
		interval: defaultExpirerInterval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (s *BookingExpirer) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the expirer on a periodic schedule in a background goroutine.
func (s *BookingExpirer) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("booking expirer started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.RunOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("booking expirer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the expirer.
func (s *BookingExpirer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// RunOnce performs a single pass and returns how many bookings expired.
func (s *BookingExpirer) RunOnce(ctx context.Context) int64 {
	ctx = tenancy.With(ctx, tenancy.System("expirer-"+uuid.NewString()))
	now := s.now()

	tenantIDs, err := s.tenants.ListIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list tenants for booking expiry", zap.Error(err))
		return 0
	}

	var total int64
	for _, tenantID := range tenantIDs {
		n, err := s.bookings.ExpirePending(ctx, tenantID, now)
		if err != nil {
			s.logger.Warn("failed to expire bookings",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
			continue
		}
		if n > 0 {
			s.logger.Info("expired pending bookings",
				zap.String("tenant_id", tenantID),
				zap.Int64("count", n))
		}
		total += n
	}
	return total
}
