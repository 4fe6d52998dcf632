package models

import "time"

// NavigationState is a step of the guided ride flow.
type NavigationState string

const (
	NavIdle         NavigationState = "idle"
	NavConfirm      NavigationState = "confirm"
	NavLuggageCheck NavigationState = "luggage_check"
	NavInTransit    NavigationState = "in_transit"
	NavArrived      NavigationState = "arrived"
	NavEnded        NavigationState = "ended"
)

// Open reports whether a session in this state still holds its device.
func (s NavigationState) Open() bool {
	return s == NavConfirm || s == NavLuggageCheck || s == NavInTransit
}

// NavigationAction is a user or robot input to the ride flow.
type NavigationAction string

const (
	ActionConfirm   NavigationAction = "confirm"
	ActionLuggageOK NavigationAction = "luggage_ok"
	ActionCancel    NavigationAction = "cancel"
	ActionEnd       NavigationAction = "end"
	ActionRedirect  NavigationAction = "redirect"
	ActionArrive    NavigationAction = "arrive"
	ActionExpire    NavigationAction = "expire"
)

// NavigationSession is one guided ride from pickup to a facility.
type NavigationSession struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	FacilityID  string          `json:"facilityId"`
	DeviceID    string          `json:"deviceId"`
	State       NavigationState `json:"state"`
	Destination Coordinates     `json:"destination"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	ArrivedAt   *time.Time      `json:"arrivedAt,omitempty"`
}
