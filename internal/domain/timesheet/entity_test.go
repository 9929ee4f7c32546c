package timesheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

func ptr[T any](v T) *T { return &v }

func TestPaymentLifecycle(t *testing.T) {
	assert.True(t, PaymentPending.Next(PaymentPaidByCompany))
	assert.True(t, PaymentPaidByCompany.Next(PaymentReceivedByCrew))
	assert.True(t, PaymentReceivedByCrew.Next(PaymentConfirmed))

	assert.False(t, PaymentPending.Next(PaymentConfirmed), "steps cannot be skipped")
	assert.False(t, PaymentConfirmed.Next(PaymentPending), "lifecycle does not go back")
	assert.False(t, PaymentStatus("refunded").Next(PaymentConfirmed))

	assert.True(t, PaymentPaidByCompany.BySupervisor())
	assert.True(t, PaymentConfirmed.BySupervisor())
	assert.False(t, PaymentReceivedByCrew.BySupervisor())
}

func TestRecompute(t *testing.T) {
	tests := []struct {
		name      string
		ts        Timesheet
		wantHours float64
		wantGross float64
		wantNet   float64
		wantErr   error
	}{
		{
			name: "hours mode with retention",
			ts: Timesheet{
				StartTime: "18:00:00", EndTime: ptr("23:30:00"), BreakMinutes: 30,
				TrackingMode: worktime.TrackingHours, HourlyRate: ptr(12.0), RetentionPercentage: 20,
			},
			wantHours: 5, wantGross: 60, wantNet: 48,
		},
		{
			name: "overnight in hours mode",
			ts: Timesheet{
				StartTime: "22:00", EndTime: ptr("02:00"),
				TrackingMode: worktime.TrackingHours, HourlyRate: ptr(10.0),
			},
			wantHours: 4, wantGross: 40, wantNet: 40,
		},
		{
			name: "days mode ignores hours for pay",
			ts: Timesheet{
				StartTime: "08:00", EndTime: ptr("12:00"),
				TrackingMode: worktime.TrackingDays, DailyRate: ptr(150.0), RetentionPercentage: 10,
			},
			wantHours: 4, wantGross: 150, wantNet: 135,
		},
		{
			name: "break swallows the whole entry",
			ts: Timesheet{
				StartTime: "10:00", EndTime: ptr("11:00"), BreakMinutes: 60,
				TrackingMode: worktime.TrackingHours,
			},
			wantErr: worktime.ErrNonPositiveNet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ts.Recompute()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, *tt.ts.TotalHours)
			assert.Equal(t, tt.wantGross, *tt.ts.GrossAmount)
			assert.Equal(t, tt.wantNet, *tt.ts.NetAmount)
		})
	}
}

func TestRecomputeWithoutEndClearsTotals(t *testing.T) {
	ts := Timesheet{StartTime: "09:00", TotalHours: ptr(3.0)}
	require.NoError(t, ts.Recompute())
	assert.Nil(t, ts.TotalHours)
	assert.Nil(t, ts.GrossAmount)
}

func TestEditable(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusDraft:     true,
		StatusRejected:  true,
		StatusSubmitted: false,
		StatusApproved:  false,
	} {
		ts := Timesheet{Status: status}
		assert.Equal(t, want, ts.Editable(), status)
	}
}
