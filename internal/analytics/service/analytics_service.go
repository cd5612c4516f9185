// Package service builds the read-only security views: per-user analysis,
// the admin overview, and the recent file-access feed. Everything here is
// derived from the event store and the risk engine; nothing is written.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	eventdomain "zero-trust-access-platform/internal/event/domain"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	riskdomain "zero-trust-access-platform/internal/risk/domain"
	userdomain "zero-trust-access-platform/internal/user/domain"
	userrepo "zero-trust-access-platform/internal/user/repository"
)

// recentFileLimit caps the per-user file history in the analysis view.
const recentFileLimit = 10

// Assessor scores a user from their event history.
type Assessor interface {
	Assess(ctx context.Context, userID string) (*riskdomain.Assessment, error)
}

// ErrUserNotFound is returned when the analyzed username is not registered.
var ErrUserNotFound = errors.New("user not found")

// AnalyticsService answers the query endpoints.
type AnalyticsService struct {
	users    userrepo.Repository
	events   eventrepo.Repository
	assessor Assessor
}

// NewAnalyticsService wires the read side together.
func NewAnalyticsService(users userrepo.Repository, events eventrepo.Repository, assessor Assessor) *AnalyticsService {
	return &AnalyticsService{users: users, events: events, assessor: assessor}
}

// LoginView is the most recent login attempt in a user analysis.
type LoginView struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Success   bool      `json:"success"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
}

// DeviceView is the most recent device sighting in a user analysis.
type DeviceView struct {
	DeviceID  string    `json:"device_id"`
	Hostname  string    `json:"hostname"`
	OS        string    `json:"os"`
	Trusted   bool      `json:"trusted"`
	FirstSeen time.Time `json:"first_seen"`
}

// FileAccessView is one file operation in a feed or analysis.
type FileAccessView struct {
	Username  string    `json:"username"`
	FileName  string    `json:"file_name"`
	Action    string    `json:"action"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

// UserAnalysis is the full per-user security view.
type UserAnalysis struct {
	Username            string                 `json:"username"`
	Role                string                 `json:"role"`
	Assessment          *riskdomain.Assessment `json:"assessment"`
	LastLogin           *LoginView             `json:"last_login"`
	LastDevice          *DeviceView            `json:"last_device"`
	RecentFiles         []FileAccessView       `json:"recent_file_access"`
	TotalLogins         int                    `json:"total_logins"`
	AccessibleResources []string               `json:"accessible_resources"`
}

// UserOverview is one row of the admin overview.
type UserOverview struct {
	Username   string                 `json:"username"`
	Role       string                 `json:"role"`
	LastActive time.Time              `json:"last_active"`
	Assessment *riskdomain.Assessment `json:"assessment"`
}

// AnalyzeUser builds the security view for one user. A registered user with
// no activity yet gets an empty history and a baseline assessment, not an
// error.
func (s *AnalyticsService) AnalyzeUser(ctx context.Context, username string) (*UserAnalysis, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	assessment, err := s.assessor.Assess(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("assess user: %w", err)
	}

	analysis := &UserAnalysis{
		Username:            u.Username,
		Role:                string(u.Role),
		Assessment:          assessment,
		AccessibleResources: u.AccessibleResources(),
	}

	if login, err := s.latestLogin(ctx, username); err != nil {
		return nil, err
	} else if login != nil {
		analysis.LastLogin = &LoginView{
			Timestamp: login.Timestamp,
			IP:        login.IP,
			Success:   login.Success,
			Country:   login.Country,
			City:      login.City,
		}
	}

	if device, err := s.latestDevice(ctx, username); err != nil {
		return nil, err
	} else if device != nil {
		analysis.LastDevice = &DeviceView{
			DeviceID:  device.DeviceID,
			Hostname:  device.Hostname,
			OS:        device.OS,
			Trusted:   device.Trusted,
			FirstSeen: device.FirstSeen,
		}
	}

	files, err := s.events.Query(ctx, username, eventdomain.KindFileAccess, eventrepo.TimeRange{}, recentFileLimit)
	if err != nil {
		return nil, fmt.Errorf("query file access: %w", err)
	}
	analysis.RecentFiles = make([]FileAccessView, 0, len(files))
	for _, ev := range files {
		f := ev.(*eventdomain.FileAccessEvent)
		analysis.RecentFiles = append(analysis.RecentFiles, FileAccessView{
			Username:  f.UserID,
			FileName:  f.FileName,
			Action:    f.Action,
			IP:        f.IP,
			Timestamp: f.Timestamp,
		})
	}

	total, err := s.events.Count(ctx, username, eventdomain.KindLogin)
	if err != nil {
		return nil, fmt.Errorf("count logins: %w", err)
	}
	analysis.TotalLogins = total
	return analysis, nil
}

// AdminOverview assesses every registered user and returns them ordered by
// most recent activity. Users who have never logged in sort last.
func (s *AnalyticsService) AdminOverview(ctx context.Context) ([]UserOverview, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	overview := make([]UserOverview, 0, len(users))
	for _, u := range users {
		assessment, err := s.assessor.Assess(ctx, u.Username)
		if err != nil {
			return nil, fmt.Errorf("assess %s: %w", u.Username, err)
		}
		row := UserOverview{
			Username:   u.Username,
			Role:       string(u.Role),
			Assessment: assessment,
		}
		if login, err := s.latestLogin(ctx, u.Username); err != nil {
			return nil, err
		} else if login != nil {
			row.LastActive = login.Timestamp
		}
		overview = append(overview, row)
	}

	sort.SliceStable(overview, func(i, j int) bool {
		return overview[i].LastActive.After(overview[j].LastActive)
	})
	return overview, nil
}

// RecentFileAccess returns the newest file operations across all users.
func (s *AnalyticsService) RecentFileAccess(ctx context.Context, limit int) ([]FileAccessView, error) {
	events, err := s.events.ListRecentFileAccess(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list file access: %w", err)
	}
	feed := make([]FileAccessView, 0, len(events))
	for _, f := range events {
		feed = append(feed, FileAccessView{
			Username:  f.UserID,
			FileName:  f.FileName,
			Action:    f.Action,
			IP:        f.IP,
			Timestamp: f.Timestamp,
		})
	}
	return feed, nil
}

// ListAccessibleResources returns the user's resource list on its own, for
// the file-listing endpoint.
func (s *AnalyticsService) ListAccessibleResources(ctx context.Context, username string) ([]string, *userdomain.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, nil, ErrUserNotFound
	}
	return u.AccessibleResources(), u, nil
}

func (s *AnalyticsService) latestLogin(ctx context.Context, username string) (*eventdomain.LoginEvent, error) {
	ev, err := s.events.Latest(ctx, username, eventdomain.KindLogin)
	if errors.Is(err, eventrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest login: %w", err)
	}
	return ev.(*eventdomain.LoginEvent), nil
}

func (s *AnalyticsService) latestDevice(ctx context.Context, username string) (*eventdomain.DeviceEvent, error) {
	ev, err := s.events.Latest(ctx, username, eventdomain.KindDevice)
	if errors.Is(err, eventrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest device: %w", err)
	}
	return ev.(*eventdomain.DeviceEvent), nil
}
