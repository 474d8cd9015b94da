package domain

// TakeoffStatus represents the position of a takeoff in its workflow.
// The workflow is strictly linear: every status has at most one
// successor and TakeoffStatusClosed is terminal.
type TakeoffStatus int

const (
	TakeoffStatusCreated           TakeoffStatus = 1
	TakeoffStatusToMeasure         TakeoffStatus = 2
	TakeoffStatusUnderReview       TakeoffStatus = 3
	TakeoffStatusReadyToShip       TakeoffStatus = 4
	TakeoffStatusShipped           TakeoffStatus = 5
	TakeoffStatusTrimmingCompleted TakeoffStatus = 6
	TakeoffStatusBackTrimCompleted TakeoffStatus = 7
	TakeoffStatusClosed            TakeoffStatus = 8
)

// IsValid checks if the TakeoffStatus is a valid enum value
func (s TakeoffStatus) IsValid() bool {
	return s >= TakeoffStatusCreated && s <= TakeoffStatusClosed
}

// IsTerminal reports whether the status has no successor.
func (s TakeoffStatus) IsTerminal() bool {
	return s == TakeoffStatusClosed
}

// String returns the machine name of the status.
func (s TakeoffStatus) String() string {
	switch s {
	case TakeoffStatusCreated:
		return "created"
	case TakeoffStatusToMeasure:
		return "to_measure"
	case TakeoffStatusUnderReview:
		return "under_review"
	case TakeoffStatusReadyToShip:
		return "ready_to_ship"
	case TakeoffStatusShipped:
		return "shipped"
	case TakeoffStatusTrimmingCompleted:
		return "trimming_completed"
	case TakeoffStatusBackTrimCompleted:
		return "back_trim_completed"
	case TakeoffStatusClosed:
		return "closed"
	}
	return "unknown"
}

// Label returns the human-readable name of the status.
func (s TakeoffStatus) Label() string {
	switch s {
	case TakeoffStatusCreated:
		return "Created"
	case TakeoffStatusToMeasure:
		return "To measure"
	case TakeoffStatusUnderReview:
		return "Under review"
	case TakeoffStatusReadyToShip:
		return "Ready to ship"
	case TakeoffStatusShipped:
		return "Shipped"
	case TakeoffStatusTrimmingCompleted:
		return "Trimming completed"
	case TakeoffStatusBackTrimCompleted:
		return "Back trim completed"
	case TakeoffStatusClosed:
		return "Closed"
	}
	return "Unknown"
}

// statusSuccessor holds the single legal next status for each status.
// Closed has no entry: the workflow never moves past it.
var statusSuccessor = map[TakeoffStatus]TakeoffStatus{
	TakeoffStatusCreated:           TakeoffStatusToMeasure,
	TakeoffStatusToMeasure:         TakeoffStatusUnderReview,
	TakeoffStatusUnderReview:       TakeoffStatusReadyToShip,
	TakeoffStatusReadyToShip:       TakeoffStatusShipped,
	TakeoffStatusShipped:           TakeoffStatusTrimmingCompleted,
	TakeoffStatusTrimmingCompleted: TakeoffStatusBackTrimCompleted,
	TakeoffStatusBackTrimCompleted: TakeoffStatusClosed,
}

// Successor returns the next status in the workflow. ok is false when
// the status is terminal or invalid.
func (s TakeoffStatus) Successor() (TakeoffStatus, bool) {
	next, ok := statusSuccessor[s]
	return next, ok
}

// CanChangeStatus reports whether a transition from one status to
// another is legal, ignoring who is asking. Only the single next step
// in the chain is ever allowed; skipping and going backwards are not.
func CanChangeStatus(from, to TakeoffStatus) bool {
	next, ok := statusSuccessor[from]
	return ok && next == to
}

// RoleCanAdvance reports whether the given role may move a takeoff out
// of the given status. The switch enumerates every status; unknown
// values deny.
func RoleCanAdvance(from TakeoffStatus, role Role) bool {
	if role == RoleSuperAdmin {
		return true
	}

	switch from {
	case TakeoffStatusCreated:
		return role == RoleCompany || role == RoleManager
	case TakeoffStatusToMeasure:
		return role == RoleCarpenter
	case TakeoffStatusUnderReview:
		return role == RoleCompany || role == RoleManager
	case TakeoffStatusReadyToShip:
		return role == RoleCompany || role == RoleManager || role == RoleDelivery
	case TakeoffStatusShipped:
		return role == RoleCompany || role == RoleManager || role == RoleCarpenter
	case TakeoffStatusTrimmingCompleted:
		return role == RoleCompany || role == RoleManager || role == RoleCarpenter
	case TakeoffStatusBackTrimCompleted:
		return role == RoleCompany || role == RoleManager
	case TakeoffStatusClosed:
		return false
	}
	return false
}

// RolesCanAdvance reports whether any of the given roles may move a
// takeoff out of the given status.
func RolesCanAdvance(from TakeoffStatus, roles []Role) bool {
	for _, role := range roles {
		if RoleCanAdvance(from, role) {
			return true
		}
	}
	return false
}

// StatusOption describes an available transition target.
type StatusOption struct {
	Status TakeoffStatus `json:"status"`
	Name   string        `json:"name"`
	Label  string        `json:"label"`
}

// NextStatuses returns the transition targets reachable from the given
// status. The workflow is linear, so the result holds at most one
// entry; it is empty for Closed.
func NextStatuses(current TakeoffStatus) []StatusOption {
	next, ok := statusSuccessor[current]
	if !ok {
		return []StatusOption{}
	}
	return []StatusOption{{
		Status: next,
		Name:   next.String(),
		Label:  next.Label(),
	}}
}

// AllStatuses returns every workflow status in order.
func AllStatuses() []TakeoffStatus {
	return []TakeoffStatus{
		TakeoffStatusCreated,
		TakeoffStatusToMeasure,
		TakeoffStatusUnderReview,
		TakeoffStatusReadyToShip,
		TakeoffStatusShipped,
		TakeoffStatusTrimmingCompleted,
		TakeoffStatusBackTrimCompleted,
		TakeoffStatusClosed,
	}
}
