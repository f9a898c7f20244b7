package env

import "time"

const (
	GPIO19 = "GPIO19" // activity LED
	GPIO20 = "GPIO20" // heartbeat LED
	GPIO21 = "GPIO21" // AM2301 data line

	SensorPin    = GPIO21
	ActivityLed  = GPIO19
	HeartbeatLed = GPIO20

	// WarmupDelay is how long the sensor needs after power up before
	// the first read attempt.
	WarmupDelay = 2 * time.Second

	// MinPollSeconds is the shortest supported steady-state polling
	// period; the AM2301 refreshes its reading roughly every 2s and the
	// datasheet asks for >= 5s between reads.
	MinPollSeconds = 5

	// ReportFreqMin is how often (in minutes) reports go to the db,
	// broker and Met Office.
	ReportFreqMin = 15

	CToF = 9.0 / 5.0
)

type Args struct {
	Test    *bool
	Verbose *bool
}
