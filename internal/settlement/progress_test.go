package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressAt(t *testing.T) {
	tests := []struct {
		name        string
		elapsed     time.Duration
		wantPercent int
		wantMessage string
	}{
		{name: "start", elapsed: 0, wantPercent: 0, wantMessage: "Preparing your receipt..."},
		{name: "negative clamps to start", elapsed: -time.Second, wantPercent: 0, wantMessage: "Preparing your receipt..."},
		{name: "one tick", elapsed: 120 * time.Millisecond, wantPercent: 2, wantMessage: "Preparing your receipt..."},
		{name: "pdf message at twenty", elapsed: 1200 * time.Millisecond, wantPercent: 20, wantMessage: "Generating PDF document..."},
		{name: "details at forty", elapsed: 2400 * time.Millisecond, wantPercent: 40, wantMessage: "Adding booking details..."},
		{name: "sending at eighty", elapsed: 4800 * time.Millisecond, wantPercent: 80, wantMessage: "Sending to your email..."},
		{name: "parks at ceiling", elapsed: 10 * time.Second, wantPercent: 85, wantMessage: "Finalizing your receipt..."},
		{name: "never exceeds ceiling", elapsed: time.Hour, wantPercent: 85, wantMessage: "Finalizing your receipt..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percent, message := ProgressAt(tt.elapsed)
			assert.Equal(t, tt.wantPercent, percent)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestRemainingHold(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 5*time.Second, remainingHold(start, start))
	assert.Equal(t, 3*time.Second, remainingHold(start, start.Add(2*time.Second)))
	assert.Equal(t, time.Duration(0), remainingHold(start, start.Add(5*time.Second)))
	assert.Equal(t, time.Duration(0), remainingHold(start, start.Add(time.Minute)))
}
