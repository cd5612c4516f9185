// Package service orchestrates the access-decision flow: every login,
// device sighting, and file access is appended to the event store, anchored
// in the audit chain, and (for logins) scored by the risk engine before a
// token is issued.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditdomain "zero-trust-access-platform/internal/audit/domain"
	eventdomain "zero-trust-access-platform/internal/event/domain"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	"zero-trust-access-platform/internal/geo"
	riskdomain "zero-trust-access-platform/internal/risk/domain"
	userdomain "zero-trust-access-platform/internal/user/domain"
)

// Authenticator registers users and verifies credentials.
type Authenticator interface {
	Register(ctx context.Context, username, password string, role userdomain.Role) (*userdomain.User, error)
	Verify(ctx context.Context, username, password string) (bool, *userdomain.User, error)
}

// Assessor scores a user's current risk from their event history.
type Assessor interface {
	Assess(ctx context.Context, userID string) (*riskdomain.Assessment, error)
}

// Ledger anchors a payload in the tamper-evident audit chain.
type Ledger interface {
	Record(ctx context.Context, payload any) (*auditdomain.Entry, error)
}

// TokenIssuer mints access tokens for allowed logins.
type TokenIssuer interface {
	Issue(username, role, riskLevel string) (string, time.Time, error)
}

// DecisionEmitter receives each access decision for telemetry. Emission is
// best-effort and never affects the outcome.
type DecisionEmitter interface {
	EmitDecision(ctx context.Context, a *riskdomain.Assessment, authenticated bool)
}

// AccessService is the write path of the platform. Every operation that
// changes state appends an event and records it in the audit chain; an
// operation that cannot be chained fails rather than proceeding unaudited.
type AccessService struct {
	auth     Authenticator
	events   eventrepo.Repository
	chain    Ledger
	assessor Assessor
	resolver geo.Resolver
	tokens   TokenIssuer
	emitter  DecisionEmitter
	now      func() time.Time
}

// SetDecisionEmitter attaches a telemetry emitter. Optional; without one,
// decisions are not exported.
func (s *AccessService) SetDecisionEmitter(e DecisionEmitter) { s.emitter = e }

// NewAccessService wires the access flow together.
func NewAccessService(auth Authenticator, events eventrepo.Repository, chain Ledger, assessor Assessor, resolver geo.Resolver, tokens TokenIssuer) *AccessService {
	return &AccessService{
		auth:     auth,
		events:   events,
		chain:    chain,
		assessor: assessor,
		resolver: resolver,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LoginResult is the outcome of one login attempt. Assessment is always
// populated; Token is set only when the credentials verified and the risk
// decision was ALLOW.
type LoginResult struct {
	Authenticated bool
	User          *userdomain.User
	Event         *eventdomain.LoginEvent
	Assessment    *riskdomain.Assessment
	Token         string
	TokenExpires  time.Time
}

// Allowed reports whether the login both authenticated and was permitted by
// the risk decision.
func (r *LoginResult) Allowed() bool {
	return r.Authenticated && r.Assessment != nil && r.Assessment.Decision == riskdomain.DecisionAllow
}

// Audit chain payloads. One typed struct per action keeps the canonical
// JSON stable across releases.
type loginAudit struct {
	Action  string    `json:"action"`
	EventID string    `json:"event_id"`
	User    string    `json:"user"`
	IP      string    `json:"ip"`
	Success bool      `json:"success"`
	Country string    `json:"country"`
	City    string    `json:"city"`
	Time    time.Time `json:"time"`
}

type deviceAudit struct {
	Action   string    `json:"action"`
	EventID  string    `json:"event_id"`
	User     string    `json:"user"`
	DeviceID string    `json:"device_id"`
	Hostname string    `json:"hostname"`
	IP       string    `json:"ip"`
	Trusted  bool      `json:"trusted"`
	Time     time.Time `json:"time"`
}

type fileAccessAudit struct {
	Action   string    `json:"action"`
	EventID  string    `json:"event_id"`
	User     string    `json:"user"`
	FileName string    `json:"file_name"`
	FileOp   string    `json:"file_op"`
	IP       string    `json:"ip"`
	Time     time.Time `json:"time"`
}

type trustGrantAudit struct {
	Action   string    `json:"action"`
	User     string    `json:"user"`
	DeviceID string    `json:"device_id"`
	Time     time.Time `json:"time"`
}

type registerAudit struct {
	Action string    `json:"action"`
	User   string    `json:"user"`
	Role   string    `json:"role"`
	Time   time.Time `json:"time"`
}

// Register creates a user and anchors the registration in the audit chain.
func (s *AccessService) Register(ctx context.Context, username, password string, role userdomain.Role) (*userdomain.User, error) {
	u, err := s.auth.Register(ctx, username, password, role)
	if err != nil {
		return nil, err
	}
	if _, err := s.chain.Record(ctx, registerAudit{
		Action: "register",
		User:   u.Username,
		Role:   string(u.Role),
		Time:   s.now(),
	}); err != nil {
		return nil, fmt.Errorf("audit register: %w", err)
	}
	return u, nil
}

// RecordLogin verifies credentials and records the attempt. The login event
// is appended and chained before the risk assessment runs, so the attempt
// being decided on is part of its own evidence. Failed attempts are recorded
// the same way; only the token issuance is gated on success and an ALLOW
// decision.
func (s *AccessService) RecordLogin(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	// Events are keyed by the canonical form the verifier uses, so history
	// lookups see one identity regardless of how the name was typed.
	username = strings.TrimSpace(strings.ToLower(username))
	loc := s.resolver.Resolve(ctx, ip)

	ok, user, verifyErr := s.auth.Verify(ctx, username, password)
	if verifyErr != nil {
		// Backend failure, not a credential mismatch. Record the attempt as
		// failed so the trail shows it, then surface the error.
		ok = false
	}

	ev := &eventdomain.LoginEvent{
		UserID:    username,
		Timestamp: s.now(),
		IP:        ip,
		Success:   ok,
		Country:   loc.Country,
		City:      loc.City,
		Lat:       loc.Lat,
		Lon:       loc.Lon,
	}
	id, err := s.events.Append(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("append login event: %w", err)
	}
	ev.ID = id

	if _, err := s.chain.Record(ctx, loginAudit{
		Action:  "login",
		EventID: ev.ID,
		User:    ev.UserID,
		IP:      ev.IP,
		Success: ev.Success,
		Country: ev.Country,
		City:    ev.City,
		Time:    ev.Timestamp,
	}); err != nil {
		return nil, fmt.Errorf("audit login: %w", err)
	}

	if verifyErr != nil {
		return nil, fmt.Errorf("verify credentials: %w", verifyErr)
	}

	assessment, err := s.assessor.Assess(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("assess risk: %w", err)
	}
	if s.emitter != nil {
		s.emitter.EmitDecision(ctx, assessment, ok)
	}

	result := &LoginResult{
		Authenticated: ok,
		User:          user,
		Event:         ev,
		Assessment:    assessment,
	}
	if result.Allowed() {
		token, expires, err := s.tokens.Issue(user.Username, string(user.Role), string(assessment.Level))
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		result.Token = token
		result.TokenExpires = expires
	}
	return result, nil
}

// DeviceSighting describes a device observed at login or enrollment time.
type DeviceSighting struct {
	UserID   string
	DeviceID string
	MAC      string
	OS       string
	WifiSSID string
	Hostname string
	IP       string
}

// RecordDeviceSighting appends a device event and chains it. New devices are
// always untrusted; trust is granted separately through GrantDeviceTrust.
func (s *AccessService) RecordDeviceSighting(ctx context.Context, sighting DeviceSighting) (*eventdomain.DeviceEvent, error) {
	ev := &eventdomain.DeviceEvent{
		UserID:    sighting.UserID,
		DeviceID:  sighting.DeviceID,
		MAC:       sighting.MAC,
		OS:        sighting.OS,
		WifiSSID:  sighting.WifiSSID,
		Hostname:  sighting.Hostname,
		IP:        sighting.IP,
		Trusted:   false,
		FirstSeen: s.now(),
	}
	id, err := s.events.Append(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("append device event: %w", err)
	}
	ev.ID = id

	if _, err := s.chain.Record(ctx, deviceAudit{
		Action:   "device_register",
		EventID:  ev.ID,
		User:     ev.UserID,
		DeviceID: ev.DeviceID,
		Hostname: ev.Hostname,
		IP:       ev.IP,
		Trusted:  ev.Trusted,
		Time:     ev.FirstSeen,
	}); err != nil {
		return nil, fmt.Errorf("audit device event: %w", err)
	}
	return ev, nil
}

// RecordFileAccess appends a file-access event and chains it.
func (s *AccessService) RecordFileAccess(ctx context.Context, userID, fileName, action, ip string) (*eventdomain.FileAccessEvent, error) {
	ev := &eventdomain.FileAccessEvent{
		UserID:    userID,
		FileName:  fileName,
		Action:    action,
		IP:        ip,
		Timestamp: s.now(),
	}
	id, err := s.events.Append(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("append file access event: %w", err)
	}
	ev.ID = id

	if _, err := s.chain.Record(ctx, fileAccessAudit{
		Action:   "file_access",
		EventID:  ev.ID,
		User:     ev.UserID,
		FileName: ev.FileName,
		FileOp:   ev.Action,
		IP:       ev.IP,
		Time:     ev.Timestamp,
	}); err != nil {
		return nil, fmt.Errorf("audit file access: %w", err)
	}
	return ev, nil
}

// GrantDeviceTrust marks all sightings of the device as trusted and anchors
// the grant in the audit chain. Returns the event store's ErrNotFound when
// the user has never been seen with that device.
func (s *AccessService) GrantDeviceTrust(ctx context.Context, userID, deviceID string) error {
	if err := s.events.UpdateDeviceTrusted(ctx, userID, deviceID, true); err != nil {
		return err
	}
	if _, err := s.chain.Record(ctx, trustGrantAudit{
		Action:   "device_trust_grant",
		User:     userID,
		DeviceID: deviceID,
		Time:     s.now(),
	}); err != nil {
		return fmt.Errorf("audit trust grant: %w", err)
	}
	return nil
}
