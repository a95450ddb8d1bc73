package reservation

import "github.com/nekogravitycat/plot-booking-backend/internal/auth"

// ActorPolicy is what a role may do to reservations. Resolved once per operation.
type ActorPolicy struct {
	// AutoApprove creates reservations directly in approved status.
	AutoApprove bool
	// CanReview approves, rejects and completes other people's reservations.
	CanReview bool
	// CanHardDelete removes reservation records.
	CanHardDelete bool
}

func PolicyFor(role auth.Role) ActorPolicy {
	switch role {
	case auth.RoleAdmin:
		return ActorPolicy{AutoApprove: true, CanReview: true, CanHardDelete: true}
	case auth.RoleStaff:
		return ActorPolicy{AutoApprove: true, CanReview: true}
	default:
		return ActorPolicy{}
	}
}

// InitialStatus is the status a new reservation enters with.
func (p ActorPolicy) InitialStatus() Status {
	if p.AutoApprove {
		return StatusApproved
	}
	return StatusPending
}
