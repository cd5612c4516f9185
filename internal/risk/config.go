package risk

import "time"

// Config holds signal weights, trigger thresholds, and history window sizes.
// The numeric constants are tunable defaults, not ground truth; DefaultConfig
// keeps failed_login_burst alone at HIGH and impossible_travel alone at MEDIUM.
type Config struct {
	// Weights added to the score when the signal triggers.
	NewGeoWeight           int
	NewDeviceWeight        int
	ImpossibleTravelWeight int
	OddHourWeight          int
	FailedBurstWeight      int
	UntrustedDeviceWeight  int

	// NewGeoHistory is how many prior logins establish the known-geo set.
	NewGeoHistory int
	// OddHourMinLogins is the minimum prior login count before odd_hour can
	// trigger; below it, cold start yields no signal.
	OddHourMinLogins int
	// FailedBurstWindow and FailedBurstThreshold define the failed-login
	// burst: more than threshold failures inside the trailing window.
	FailedBurstWindow    time.Duration
	FailedBurstThreshold int
	// MaxTravelSpeedKmh is the plausible travel speed for impossible_travel.
	MaxTravelSpeedKmh float64

	// Trailing window sizes pulled from the event store per assessment.
	LoginWindow  int
	DeviceWindow int
	FileWindow   int
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		NewGeoWeight:           20,
		NewDeviceWeight:        15,
		ImpossibleTravelWeight: 40,
		OddHourWeight:          10,
		FailedBurstWeight:      50,
		UntrustedDeviceWeight:  15,

		NewGeoHistory:        20,
		OddHourMinLogins:     10,
		FailedBurstWindow:    15 * time.Minute,
		FailedBurstThreshold: 5,
		MaxTravelSpeedKmh:    1000,

		LoginWindow:  50,
		DeviceWindow: 20,
		FileWindow:   20,
	}
}
