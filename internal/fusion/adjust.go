package fusion

import "github.com/tbourn/go-order-assistant/internal/domain"

// AdjustPolicy raises priority and urgency for customers with a history.
type AdjustPolicy struct {
	// Complaint counts strictly above this force escalation.
	ComplaintThreshold int
	ComplaintBoost     int
	VIPBoost           int
}

func DefaultAdjustPolicy() AdjustPolicy {
	return AdjustPolicy{ComplaintThreshold: 2, ComplaintBoost: 2, VIPBoost: 1}
}

// Apply folds the customer's standing into v. A nil customer is a no-op.
func (p AdjustPolicy) Apply(v *domain.FusionVerdict, c *domain.CustomerContext) {
	if c == nil {
		return
	}
	if c.ComplaintCount > p.ComplaintThreshold {
		v.PriorityScore = clampPriority(v.PriorityScore + p.ComplaintBoost)
		v.EscalationNeeded = true
	}
	if c.VIP {
		v.PriorityScore = clampPriority(v.PriorityScore + p.VIPBoost)
	}
	if c.RecentIssues > 0 {
		v.Urgency = domain.MaxUrgency(v.Urgency, domain.UrgencyHigh)
	}
}
