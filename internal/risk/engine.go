// Package risk derives anomaly signals from a user's event history and
// combines them into a score, level, and access decision. Assessments are
// recomputed on demand from the immutable event log; there is no cached
// "current risk" state to go stale.
package risk

import (
	"context"
	"time"

	eventdomain "zero-trust-access-platform/internal/event/domain"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	"zero-trust-access-platform/internal/risk/domain"
)

// Engine assesses users against their trailing event window. Safe for
// concurrent use across users; for the same user, concurrent assessments are
// pure functions of whatever snapshot each one reads.
type Engine struct {
	events eventrepo.Repository
	cfg    Config
	now    func() time.Time
}

// NewEngine returns an Engine over the given event store.
func NewEngine(events eventrepo.Repository, cfg Config) *Engine {
	return &Engine{events: events, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Assess pulls the user's trailing window and evaluates all signal
// extractors against the most recent login. A user with no history scores
// 0 / LOW / ALLOW; cold start is never penalized.
func (e *Engine) Assess(ctx context.Context, userID string) (*domain.Assessment, error) {
	h, err := e.window(ctx, userID)
	if err != nil {
		return nil, err
	}
	var asOf *eventdomain.LoginEvent
	if len(h.Logins) > 0 {
		asOf = h.Logins[0]
	}
	return Evaluate(e.cfg, userID, asOf, h, e.now()), nil
}

func (e *Engine) window(ctx context.Context, userID string) (History, error) {
	var h History
	logins, err := e.events.Query(ctx, userID, eventdomain.KindLogin, eventrepo.TimeRange{}, e.cfg.LoginWindow)
	if err != nil {
		return h, err
	}
	for _, ev := range logins {
		h.Logins = append(h.Logins, ev.(*eventdomain.LoginEvent))
	}
	devices, err := e.events.Query(ctx, userID, eventdomain.KindDevice, eventrepo.TimeRange{}, e.cfg.DeviceWindow)
	if err != nil {
		return h, err
	}
	for _, ev := range devices {
		h.Devices = append(h.Devices, ev.(*eventdomain.DeviceEvent))
	}
	files, err := e.events.Query(ctx, userID, eventdomain.KindFileAccess, eventrepo.TimeRange{}, e.cfg.FileWindow)
	if err != nil {
		return h, err
	}
	for _, ev := range files {
		h.Files = append(h.Files, ev.(*eventdomain.FileAccessEvent))
	}
	return h, nil
}

// Evaluate runs every extractor against the as-of login and history snapshot
// and maps the capped score to level and decision. Pure and deterministic:
// the same snapshot always yields the same assessment.
func Evaluate(cfg Config, userID string, asOf *eventdomain.LoginEvent, h History, at time.Time) *domain.Assessment {
	prior := h.PriorLogins(asOf)
	signals := []domain.Signal{
		newGeo(cfg, asOf, prior),
		newDevice(cfg, h),
		impossibleTravel(cfg, asOf, prior),
		oddHour(cfg, asOf, prior),
		failedBurst(cfg, asOf, h.Logins),
		untrustedDevice(cfg, h),
	}
	score := 0
	for _, s := range signals {
		if s.Triggered {
			score += s.Weight
		}
	}
	if score > 100 {
		score = 100
	}
	level := domain.LevelFromScore(score)
	return &domain.Assessment{
		UserID:     userID,
		Score:      score,
		Level:      level,
		Decision:   domain.DecisionFromLevel(level),
		Signals:    signals,
		AssessedAt: at,
	}
}
