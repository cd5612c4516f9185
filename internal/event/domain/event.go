// Package domain defines the typed security events recorded by the event store.
package domain

import "time"

// Kind identifies the event variant stored in the event store.
type Kind string

const (
	KindLogin      Kind = "login"
	KindDevice     Kind = "device"
	KindFileAccess Kind = "file_access"
)

// Event is the closed set of security events. Only LoginEvent, DeviceEvent,
// and FileAccessEvent implement it; payloads are validated at the boundary
// before they reach the store.
type Event interface {
	EventKind() Kind
	EventUser() string
	EventTime() time.Time
}

// LoginEvent records one login attempt. Immutable once recorded.
type LoginEvent struct {
	ID        string
	UserID    string
	Timestamp time.Time
	IP        string
	Success   bool
	// Country and City are best-effort geolocation results; "Unknown" when
	// the resolver failed or timed out.
	Country string
	City    string
	// Lat and Lon are 0 when the location is unresolved.
	Lat float64
	Lon float64
}

func (e *LoginEvent) EventKind() Kind      { return KindLogin }
func (e *LoginEvent) EventUser() string    { return e.UserID }
func (e *LoginEvent) EventTime() time.Time { return e.Timestamp }

// LocationKnown reports whether the event carries a resolved location.
func (e *LoginEvent) LocationKnown() bool {
	return e.Country != "" && e.Country != "Unknown"
}

// DeviceEvent records a device sighting for a user. The Trusted flag is the
// only mutable field and changes only through an explicit trust grant.
type DeviceEvent struct {
	ID        string
	UserID    string
	DeviceID  string
	MAC       string
	OS        string
	WifiSSID  string
	Hostname  string
	IP        string
	Trusted   bool
	FirstSeen time.Time
}

func (e *DeviceEvent) EventKind() Kind      { return KindDevice }
func (e *DeviceEvent) EventUser() string    { return e.UserID }
func (e *DeviceEvent) EventTime() time.Time { return e.FirstSeen }

// FileAccessEvent records one file operation. Immutable once recorded.
type FileAccessEvent struct {
	ID        string
	UserID    string
	FileName  string
	Action    string
	IP        string
	Timestamp time.Time
}

func (e *FileAccessEvent) EventKind() Kind      { return KindFileAccess }
func (e *FileAccessEvent) EventUser() string    { return e.UserID }
func (e *FileAccessEvent) EventTime() time.Time { return e.Timestamp }
