package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	authdomain "nigest-backend/internal/auth/domain"
)

func TestScanDue(t *testing.T) {
	// A weekday morning, well past every preferred hour gate.
	now := time.Date(2025, 6, 2, 19, 0, 0, 0, time.UTC)
	hoursAgo := func(h int) *time.Time {
		ts := now.Add(-time.Duration(h) * time.Hour)
		return &ts
	}

	tests := []struct {
		name string
		user *authdomain.User
		want bool
	}{
		{
			name: "daily user never scanned",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyDaily, ScanTime: "morning"},
			want: true,
		},
		{
			name: "daily user scanned an hour ago",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyDaily, ScanTime: "morning", LastScannedAt: hoursAgo(1)},
			want: false,
		},
		{
			name: "daily user scanned yesterday",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyDaily, ScanTime: "morning", LastScannedAt: hoursAgo(25)},
			want: true,
		},
		{
			name: "twice-daily user scanned 13 hours ago",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyTwiceDaily, LastScannedAt: hoursAgo(13)},
			want: true,
		},
		{
			name: "twice-daily user scanned 11 hours ago",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyTwiceDaily, LastScannedAt: hoursAgo(11)},
			want: false,
		},
		{
			name: "weekly user scanned six days ago",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyWeekly, ScanTime: "evening", LastScannedAt: hoursAgo(6 * 24)},
			want: false,
		},
		{
			name: "weekly user scanned eight days ago",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyWeekly, ScanTime: "evening", LastScannedAt: hoursAgo(8 * 24)},
			want: true,
		},
		{
			name: "manual user never due",
			user: &authdomain.User{ScanFrequency: authdomain.FrequencyManual},
			want: false,
		},
		{
			name: "unknown frequency never due",
			user: &authdomain.User{ScanFrequency: "hourly"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanDue(tt.user, now))
		})
	}
}

func TestScanDueTimeOfDayGate(t *testing.T) {
	user := &authdomain.User{ScanFrequency: authdomain.FrequencyDaily, ScanTime: "evening"}

	morning := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC)

	assert.False(t, scanDue(user, morning))
	assert.True(t, scanDue(user, evening))
}

func TestPreferredHour(t *testing.T) {
	assert.Equal(t, 7, preferredHour("morning"))
	assert.Equal(t, 12, preferredHour("noon"))
	assert.Equal(t, 18, preferredHour("evening"))
	assert.Equal(t, 7, preferredHour(""))
}
