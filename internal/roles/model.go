package roles

import (
	"errors"

	"onboarding-service/internal/choice"
)

// Role is what the user signs up as.
type Role string

const (
	RoleRider  Role = "rider"
	RoleSeeker Role = "seeker"
)

// Options are the role cards, in display order.
var Options = []choice.Option[Role]{
	{
		ID:          RoleRider,
		Label:       "I'm a Rider",
		Description: "I have a vehicle and want to offer rides along my route.",
		Features: []string{
			"Offer seats on trips you already make",
			"Choose who rides with you",
			"Split fuel and toll costs",
		},
	},
	{
		ID:          RoleSeeker,
		Label:       "I'm a Seeker",
		Description: "I'm looking for a ride going my way.",
		Features: []string{
			"Find riders heading in your direction",
			"See verified profiles before you book",
			"Share the cost of the trip",
		},
	},
}

// User-visible messages.
const (
	MsgSelectRole  = "Please select a role to continue."
	MsgSaveFailed  = "Something went wrong while saving your role. Please try again."
	MsgInProgress  = "Your role is already being saved."
	MsgUnknownRole = "That role isn't available. Choose one of the cards."
)

var (
	// ErrNoSelection is returned by Continue when no role is chosen.
	ErrNoSelection = choice.ErrNoSelection
	// ErrContinueInProgress is returned when a previous Continue for the
	// same user has not finished.
	ErrContinueInProgress = errors.New("role save already in progress")
)

// PersistenceError wraps a failed profile save.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return "saving role: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Card is one role card as rendered.
type Card struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Active      bool     `json:"active"`
}

// ScreenView is the full state of the role screen.
type ScreenView struct {
	Options     []Card `json:"options"`
	Selected    string `json:"selected,omitempty"`
	CanContinue bool   `json:"can_continue"`
	Message     string `json:"message,omitempty"`
}

// SelectRequest is the body for POST /onboarding/role/select.
type SelectRequest struct {
	Role string `json:"role"`
}

// ContinueResponse is returned to JSON clients after a successful continue.
type ContinueResponse struct {
	Role  string `json:"role"`
	Next  string `json:"next"`
	Path  string `json:"path"`
	Token string `json:"token"`
}
