package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
)

// AutoCheckoutJobName is the job that closes forgotten shifts.
const AutoCheckoutJobName = "auto_checkout_active_shifts"

type AttendanceJobs struct {
	attendanceSvc attendance.AttendanceService
	grace         time.Duration
	now           func() time.Time
}

func NewAttendanceJobs(attendanceSvc attendance.AttendanceService, grace time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceSvc: attendanceSvc,
		grace:         grace,
		now:           time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob(Job{
		Name:     AutoCheckoutJobName,
		Interval: interval,
		Timeout:  interval,
		Fn:       j.AutoCheckoutActiveShifts,
	})
}

// AutoCheckoutActiveShifts closes active shifts whose scheduled end plus the
// grace period has passed.
func (j *AttendanceJobs) AutoCheckoutActiveShifts(ctx context.Context) error {
	closed, err := j.attendanceSvc.AutoCheckout(ctx, j.now(), j.grace)
	if err != nil {
		return fmt.Errorf("auto checkout: %w", err)
	}
	if closed > 0 {
		slog.Info("Cron: auto checkout closed shifts", "count", closed)
	}
	return nil
}
