package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	riskdomain "zero-trust-access-platform/internal/risk/domain"
)

// DecisionEmitter sends access decisions to the telemetry backend.
type DecisionEmitter interface {
	EmitDecision(ctx context.Context, a *riskdomain.Assessment, authenticated bool)
}

// NewDecisionEmitter returns a DecisionEmitter that sends each assessment as
// an OTel log record via the given LoggerProvider. If provider is nil,
// returns a no-op emitter.
func NewDecisionEmitter(provider *sdklog.LoggerProvider) DecisionEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("ztap.decisions")}
}

type noopEmitter struct{}

func (noopEmitter) EmitDecision(context.Context, *riskdomain.Assessment, bool) {}

type otelEmitter struct {
	logger otellog.Logger
}

// EmitDecision converts the assessment to an OTel log record and emits it.
// Best-effort; emission never fails the login.
func (e *otelEmitter) EmitDecision(ctx context.Context, a *riskdomain.Assessment, authenticated bool) {
	if a == nil {
		return
	}
	rec := otellog.Record{}
	rec.SetTimestamp(a.AssessedAt)
	rec.SetBody(otellog.StringValue("access decision"))
	rec.AddAttributes(
		otellog.String("user_id", a.UserID),
		otellog.Int("risk_score", a.Score),
		otellog.String("risk_level", string(a.Level)),
		otellog.String("decision", string(a.Decision)),
		otellog.Bool("authenticated", authenticated),
	)
	for _, s := range a.Signals {
		if s.Triggered {
			rec.AddAttributes(otellog.Bool("signal."+s.Name, true))
		}
	}
	e.logger.Emit(ctx, rec)
}
