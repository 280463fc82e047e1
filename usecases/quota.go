package usecases

import (
	"context"
	"math"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/entities"
	"telemetry-server/metrics"
	"telemetry-server/repositories"
)

const (
	DenyInactive          = "inactive"
	DenyExpired           = "expired"
	DenySpaceExhausted    = "space_exhausted"
	DenyInsufficientSpace = "insufficient_space"
	DenyDistanceExceeded  = "distance_exceeded"
)

// QuotaDecision is the outcome of a quota check. Reason is empty when the
// request is allowed.
type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// EvaluateQuota decides whether sub admits a capture of the given distance
// that adds requestedBytes of storage.
func EvaluateQuota(sub *entities.Subscription, distance float64, requestedBytes int64, now time.Time) QuotaDecision {
	deny := func(reason string) QuotaDecision { return QuotaDecision{Reason: reason} }
	switch {
	case !sub.IsActive:
		return deny(DenyInactive)
	case sub.ExpiresAt != nil && !now.Before(*sub.ExpiresAt):
		return deny(DenyExpired)
	case sub.SpaceConsumed >= sub.TotalSpace:
		return deny(DenySpaceExhausted)
	case requestedBytes > 0 && sub.SpaceConsumed+requestedBytes > sub.TotalSpace:
		return deny(DenyInsufficientSpace)
	case distance > sub.DistanceLimit:
		return deny(DenyDistanceExceeded)
	}
	return QuotaDecision{Allowed: true}
}

// QuotaEnforcer loads a user's subscription and applies EvaluateQuota.
type QuotaEnforcer struct {
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewQuotaEnforcer(m *metrics.Metrics) *QuotaEnforcer {
	return &QuotaEnforcer{metrics: m, now: time.Now}
}

// Check returns NotFound when the user has no subscription and QuotaExceeded
// (with the reason in Details) when the request is denied.
func (q *QuotaEnforcer) Check(ctx context.Context, subs repositories.SubscriptionRepository, userID string, distance float64, requestedBytes int64) (*entities.Subscription, error) {
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		return nil, apperr.InvalidArgument("distance must be a non-negative number")
	}
	sub, err := subs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	decision := EvaluateQuota(sub, distance, requestedBytes, q.now())
	if !decision.Allowed {
		q.metrics.IncQuotaDenials(decision.Reason)
		return sub, apperr.QuotaExceeded("subscription quota denied: %s", decision.Reason).
			WithDetails(map[string]any{
				"reason":          decision.Reason,
				"space_consumed":  sub.SpaceConsumed,
				"total_space":     sub.TotalSpace,
				"distance_limit":  sub.DistanceLimit,
				"requested_bytes": requestedBytes,
			})
	}
	return sub, nil
}
