// Package geo resolves source IPs to coarse locations via an external
// HTTP lookup. Resolution is best-effort: a slow or broken lookup degrades to
// an unknown location and never stalls the login path.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"zero-trust-access-platform/internal/metrics"
)

// Location is a resolved IP location. Lat and Lon are 0 when unresolved.
type Location struct {
	Country string
	City    string
	Lat     float64
	Lon     float64
}

// Unknown is the fallback location for failed or skipped lookups.
var Unknown = Location{Country: "Unknown", City: "Unknown"}

// Known reports whether the location was actually resolved.
func (l Location) Known() bool { return l.Country != "" && l.Country != "Unknown" }

// Resolver maps an IP to a location. Implementations must never block
// beyond a short internal timeout and must never return an error; failure
// degrades to Unknown.
type Resolver interface {
	Resolve(ctx context.Context, ip string) Location
}

// DefaultBaseURL is the ip-api.com endpoint.
const DefaultBaseURL = "http://ip-api.com"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 3 * time.Second

// HTTPResolver resolves locations through the ip-api JSON API.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver returns a resolver against baseURL (DefaultBaseURL when
// empty) with the given per-lookup timeout (DefaultTimeout when zero).
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Resolve looks up ip. Private, loopback, and unparsable addresses
// short-circuit to Unknown without a network call.
func (r *HTTPResolver) Resolve(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		metrics.GeoLookupsTotal.WithLabelValues("skipped").Inc()
		return Unknown
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/json/%s", r.baseURL, ip), nil)
	if err != nil {
		metrics.GeoLookupsTotal.WithLabelValues("unresolved").Inc()
		return Unknown
	}
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.GeoLookupsTotal.WithLabelValues("unresolved").Inc()
		return Unknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.GeoLookupsTotal.WithLabelValues("unresolved").Inc()
		return Unknown
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.GeoLookupsTotal.WithLabelValues("unresolved").Inc()
		return Unknown
	}
	if body.Status != "success" || body.Country == "" {
		metrics.GeoLookupsTotal.WithLabelValues("unresolved").Inc()
		return Unknown
	}
	metrics.GeoLookupsTotal.WithLabelValues("resolved").Inc()
	city := body.City
	if city == "" {
		city = "Unknown"
	}
	return Location{Country: body.Country, City: city, Lat: body.Lat, Lon: body.Lon}
}

// StaticResolver serves lookups from a fixed map. Used in tests and seeding.
type StaticResolver map[string]Location

// Resolve returns the mapped location or Unknown.
func (s StaticResolver) Resolve(ctx context.Context, ip string) Location {
	if loc, ok := s[ip]; ok {
		return loc
	}
	return Unknown
}
