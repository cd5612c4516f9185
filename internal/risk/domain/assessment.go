// Package domain defines risk levels, access decisions, and assessments.
package domain

import "time"

// Level is the coarse risk bucket derived from the numeric score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Decision is the access-control outcome mapped from the risk level.
type Decision string

const (
	DecisionAllow     Decision = "ALLOW"
	DecisionChallenge Decision = "CHALLENGE"
	DecisionDeny      Decision = "DENY"
)

// Signal is one anomaly indicator derived from comparing an event to the
// user's history. Weight contributes to the score only when Triggered.
type Signal struct {
	Name      string `json:"name"`
	Weight    int    `json:"weight"`
	Triggered bool   `json:"triggered"`
	Detail    string `json:"detail,omitempty"`
}

// Assessment is the computed trust decision for a user. Derived on demand
// from the event store, never persisted as source of truth, and never fed
// back into the audit chain.
type Assessment struct {
	UserID     string    `json:"user"`
	Score      int       `json:"risk_score"`
	Level      Level     `json:"risk_level"`
	Decision   Decision  `json:"decision"`
	Signals    []Signal  `json:"signals"`
	AssessedAt time.Time `json:"assessed_at"`
}

// LevelFromScore maps a capped score to its level.
// Fixed thresholds: <25 LOW, <50 MEDIUM, <75 HIGH, else CRITICAL.
func LevelFromScore(score int) Level {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMedium
	case score < 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// DecisionFromLevel maps a level to the access decision.
// HIGH requires step-up verification by the external auth collaborator.
func DecisionFromLevel(level Level) Decision {
	switch level {
	case LevelHigh:
		return DecisionChallenge
	case LevelCritical:
		return DecisionDeny
	default:
		return DecisionAllow
	}
}

// AtLeast reports whether l is at least as severe as other.
func (l Level) AtLeast(other Level) bool {
	return levelRank(l) >= levelRank(other)
}

func levelRank(l Level) int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	}
	return -1
}
