package worktime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
)

func clk(s string) *localtime.Clock {
	c := localtime.MustClock(s)
	return &c
}

func TestNetMinutes(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		out    string
		breaks []Break
		want   int
	}{
		{"plain day", "09:00", "17:00", nil, 480},
		{"lunch break", "09:00", "17:30", []Break{{clk("12:00"), clk("13:00")}}, 450},
		{"two breaks", "08:00", "22:00", []Break{{clk("12:00"), clk("12:30")}, {clk("19:00"), clk("19:45")}}, 765},
		{"overnight", "22:00", "06:00", nil, 480},
		{"overnight break across midnight", "20:00", "04:00", []Break{{clk("23:30"), clk("00:30")}}, 420},
		{"open break ignored", "09:00", "12:00", []Break{{clk("10:00"), nil}}, 180},
		{"same time", "09:00", "09:00", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetMinutes(localtime.MustClock(tt.in), localtime.MustClock(tt.out), tt.breaks...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckoutScenarioHours(t *testing.T) {
	net := NetMinutes(localtime.MustClock("09:00"), localtime.MustClock("17:30"), Break{clk("12:00"), clk("13:00")})
	assert.Equal(t, 7.5, Hours(net))
}

func TestValidateNet(t *testing.T) {
	_, err := ValidateNet(localtime.MustClock("09:00"), localtime.MustClock("10:00"), Break{clk("09:00"), clk("10:00")})
	assert.ErrorIs(t, err, ErrNonPositiveNet)

	_, err = ValidateNet(localtime.MustClock("09:00"), localtime.MustClock("09:00"))
	assert.ErrorIs(t, err, ErrNonPositiveNet)

	net, err := ValidateNet(localtime.MustClock("09:00"), localtime.MustClock("10:00"))
	assert.NoError(t, err)
	assert.Equal(t, 60, net)
}

func TestRequestableOvertime(t *testing.T) {
	assert.Equal(t, 120, RequestableOvertime(480+130, 480))
	assert.Equal(t, 0, RequestableOvertime(480+29, 480))
	assert.Equal(t, 30, RequestableOvertime(480+30, 480))
	assert.Equal(t, 0, RequestableOvertime(400, 480))

	assert.Equal(t, []int{30, 60, 90, 120}, OvertimeOptions(120))
	assert.Empty(t, OvertimeOptions(20))

	assert.True(t, ValidOvertime(120, 120))
	assert.False(t, ValidOvertime(130, 150))
	assert.False(t, ValidOvertime(150, 120))
	assert.False(t, ValidOvertime(0, 120))
}

func TestExpectedMinutes(t *testing.T) {
	assert.Equal(t, 480, ExpectedMinutes(localtime.MustClock("09:00"), localtime.MustClock("17:00")))
	assert.Equal(t, 480, ExpectedMinutes(localtime.MustClock("22:00"), localtime.MustClock("06:00")))
	assert.Equal(t, 1440, ExpectedMinutes(localtime.MustClock("06:00"), localtime.MustClock("06:00")))
}

func TestAmounts(t *testing.T) {
	gross, net := Amounts(TrackingHours, 7.5, 12, 0, 20)
	assert.Equal(t, 90.0, gross)
	assert.Equal(t, 72.0, net)

	gross, net = Amounts(TrackingDays, 10, 0, 150, 0)
	assert.Equal(t, 150.0, gross)
	assert.Equal(t, 150.0, net)

	_, net = Amounts(TrackingHours, 1, 10, 0, 150)
	assert.Equal(t, 0.0, net)

	assert.Equal(t, 37.5, OvertimeAmount(150, 15))
}
