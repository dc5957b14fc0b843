package events

import "context"

// RoleSelectedEvent is published to onboarding.role_selected.
type RoleSelectedEvent struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	SelectedAt string `json:"selected_at"`
}

// DetailsSubmittedEvent is published to onboarding.details_submitted.
type DetailsSubmittedEvent struct {
	UserID      string `json:"user_id"`
	Gender      string `json:"gender,omitempty"`
	Location    string `json:"location,omitempty"`
	SubmittedAt string `json:"submitted_at"`
}

// Navigation event kinds.
const (
	NavAdvance = "advance"
	NavError   = "error"
)

// NavigationEvent is published to onboarding.navigation and pushed to the
// user's live connections.
type NavigationEvent struct {
	UserID  string `json:"user_id"`
	Kind    string `json:"kind"`
	Screen  string `json:"screen,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
	At      string `json:"at"`
}

// Publisher sends an event to a topic. *kafka.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, string, any) error { return nil }
