package risk

import (
	"fmt"
	"math"
	"sort"

	eventdomain "zero-trust-access-platform/internal/event/domain"
	"zero-trust-access-platform/internal/risk/domain"
)

// Signal names.
const (
	SignalNewGeo           = "new_geo"
	SignalNewDevice        = "new_device"
	SignalImpossibleTravel = "impossible_travel"
	SignalOddHour          = "odd_hour"
	SignalFailedBurst      = "failed_login_burst"
	SignalUntrustedDevice  = "untrusted_device"
)

// History is the user's trailing event window, newest first. It is a read
// snapshot: extractors are pure functions of the event and this history, with
// no clock or network reads. Geolocation is resolved before extraction.
type History struct {
	Logins  []*eventdomain.LoginEvent
	Devices []*eventdomain.DeviceEvent
	Files   []*eventdomain.FileAccessEvent
}

// PriorLogins returns the logins excluding asOf itself.
func (h History) PriorLogins(asOf *eventdomain.LoginEvent) []*eventdomain.LoginEvent {
	if asOf == nil {
		return h.Logins
	}
	out := make([]*eventdomain.LoginEvent, 0, len(h.Logins))
	for _, l := range h.Logins {
		if l.ID == asOf.ID {
			continue
		}
		out = append(out, l)
	}
	return out
}

// newGeo triggers when the resolved country/city pair was not seen in the
// user's prior logins with a known location. Cold start (no prior resolved
// login) yields no signal.
func newGeo(cfg Config, asOf *eventdomain.LoginEvent, prior []*eventdomain.LoginEvent) domain.Signal {
	s := domain.Signal{Name: SignalNewGeo, Weight: cfg.NewGeoWeight}
	if asOf == nil || !asOf.LocationKnown() {
		return s
	}
	seen := 0
	for _, l := range prior {
		if !l.LocationKnown() {
			continue
		}
		seen++
		if l.Country == asOf.Country && l.City == asOf.City {
			return s
		}
		if seen >= cfg.NewGeoHistory {
			break
		}
	}
	if seen == 0 {
		return s
	}
	s.Triggered = true
	s.Detail = fmt.Sprintf("first login from %s, %s", asOf.City, asOf.Country)
	return s
}

// newDevice triggers when the most recent device sighting's id/MAC combination
// has no earlier sighting for this user.
func newDevice(cfg Config, h History) domain.Signal {
	s := domain.Signal{Name: SignalNewDevice, Weight: cfg.NewDeviceWeight}
	if len(h.Devices) == 0 {
		return s
	}
	latest := h.Devices[0]
	for _, d := range h.Devices[1:] {
		if d.DeviceID == latest.DeviceID && d.MAC == latest.MAC {
			return s
		}
	}
	s.Triggered = true
	s.Detail = fmt.Sprintf("first sighting of device %s (%s)", latest.DeviceID, latest.MAC)
	return s
}

// impossibleTravel triggers when the as-of login and the previous successful
// login with resolved coordinates imply a travel speed above the threshold.
func impossibleTravel(cfg Config, asOf *eventdomain.LoginEvent, prior []*eventdomain.LoginEvent) domain.Signal {
	s := domain.Signal{Name: SignalImpossibleTravel, Weight: cfg.ImpossibleTravelWeight}
	if asOf == nil || !asOf.Success || !asOf.LocationKnown() {
		return s
	}
	var last *eventdomain.LoginEvent
	for _, l := range prior {
		if l.Success && l.LocationKnown() && !l.Timestamp.After(asOf.Timestamp) {
			last = l
			break
		}
	}
	if last == nil {
		return s
	}
	km := haversineKm(last.Lat, last.Lon, asOf.Lat, asOf.Lon)
	hours := asOf.Timestamp.Sub(last.Timestamp).Hours()
	if hours <= 0 {
		// Same-instant logins from distinct places are as impossible as it gets.
		if km > 1 {
			s.Triggered = true
			s.Detail = fmt.Sprintf("%.0f km with no elapsed time", km)
		}
		return s
	}
	speed := km / hours
	if speed > cfg.MaxTravelSpeedKmh {
		s.Triggered = true
		s.Detail = fmt.Sprintf("%.0f km in %.1f h (%.0f km/h)", km, hours, speed)
	}
	return s
}

// oddHour triggers when the login hour is outside the user's historical
// 5th-95th percentile band. Requires at least OddHourMinLogins prior logins;
// below that, cold start yields no signal rather than a false positive.
func oddHour(cfg Config, asOf *eventdomain.LoginEvent, prior []*eventdomain.LoginEvent) domain.Signal {
	s := domain.Signal{Name: SignalOddHour, Weight: cfg.OddHourWeight}
	if asOf == nil {
		return s
	}
	var hours []int
	for _, l := range prior {
		if l.Success {
			hours = append(hours, l.Timestamp.UTC().Hour())
		}
	}
	if len(hours) < cfg.OddHourMinLogins {
		return s
	}
	sort.Ints(hours)
	lo := hours[int(math.Floor(0.05*float64(len(hours)-1)))]
	hi := hours[int(math.Ceil(0.95*float64(len(hours)-1)))]
	h := asOf.Timestamp.UTC().Hour()
	if h < lo || h > hi {
		s.Triggered = true
		s.Detail = fmt.Sprintf("login at %02d:00 UTC outside usual %02d:00-%02d:00 band", h, lo, hi)
	}
	return s
}

// failedBurst triggers when failed logins in the trailing window (including
// the as-of event) exceed the threshold.
func failedBurst(cfg Config, asOf *eventdomain.LoginEvent, logins []*eventdomain.LoginEvent) domain.Signal {
	s := domain.Signal{Name: SignalFailedBurst, Weight: cfg.FailedBurstWeight}
	if asOf == nil {
		return s
	}
	cutoff := asOf.Timestamp.Add(-cfg.FailedBurstWindow)
	n := 0
	for _, l := range logins {
		if l.Success || l.Timestamp.After(asOf.Timestamp) || l.Timestamp.Before(cutoff) {
			continue
		}
		n++
	}
	if n > cfg.FailedBurstThreshold {
		s.Triggered = true
		s.Detail = fmt.Sprintf("%d failed logins in %s", n, cfg.FailedBurstWindow)
	}
	return s
}

// untrustedDevice triggers when the most recent device sighting is not trusted.
func untrustedDevice(cfg Config, h History) domain.Signal {
	s := domain.Signal{Name: SignalUntrustedDevice, Weight: cfg.UntrustedDeviceWeight}
	if len(h.Devices) == 0 {
		return s
	}
	if !h.Devices[0].Trusted {
		s.Triggered = true
		s.Detail = fmt.Sprintf("device %s is not trusted", h.Devices[0].DeviceID)
	}
	return s
}

// haversineKm returns the great-circle distance between two points in km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
