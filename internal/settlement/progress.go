package settlement

import "time"

// progressStep pairs a progress threshold with the status line shown once
// the indicator passes it.
type progressStep struct {
	threshold int
	message   string
}

// emailProgressSteps is the fixed message sequence the email indicator
// cycles through while the send is in flight.
var emailProgressSteps = []progressStep{
	{threshold: 0, message: "Preparing your receipt..."},
	{threshold: 20, message: "Generating PDF document..."},
	{threshold: 40, message: "Adding booking details..."},
	{threshold: 60, message: "Formatting your receipt..."},
	{threshold: 80, message: "Sending to your email..."},
	{threshold: 85, message: "Finalizing your receipt..."},
}

const (
	// progressCeiling is where the cosmetic indicator parks until the send
	// actually resolves; the remaining points are reserved for completion.
	progressCeiling = 85
	// progressTick is how much elapsed time buys one indicator step.
	progressTick = 120 * time.Millisecond
	// minEmailDuration is the minimum visible duration of the email stage,
	// so fast responses do not flash the indicator.
	minEmailDuration = 5 * time.Second
)

// ProgressAt maps elapsed in-flight time to the cosmetic progress percent
// and status message. It is a pure function of elapsed time, decoupled from
// the network call; the caller merges it with the real completion event,
// which alone may report 100.
func ProgressAt(elapsed time.Duration) (percent int, message string) {
	if elapsed < 0 {
		elapsed = 0
	}

	percent = int(elapsed/progressTick) * 2
	if percent > progressCeiling {
		percent = progressCeiling
	}

	message = emailProgressSteps[0].message
	for _, step := range emailProgressSteps {
		if percent >= step.threshold {
			message = step.message
		}
	}
	return percent, message
}

// remainingHold returns how much longer the email stage must stay visible
// given when it started.
func remainingHold(start, now time.Time) time.Duration {
	elapsed := now.Sub(start)
	if elapsed >= minEmailDuration {
		return 0
	}
	return minEmailDuration - elapsed
}
