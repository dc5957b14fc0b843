// Package navigation is the application controller the onboarding screens
// report to: which screen comes next, and which error the user should see.
package navigation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"onboarding-service/internal/events"
	"onboarding-service/pkg/kafka"
)

// Screen identifies one step of the onboarding flow.
type Screen string

const (
	ScreenRoleSelect      Screen = "role-select"
	ScreenProfileCreation Screen = "profile-creation"
	ScreenHome            Screen = "home"
)

var paths = map[Screen]string{
	ScreenRoleSelect:      "/onboarding/role",
	ScreenProfileCreation: "/onboarding/details",
	ScreenHome:            "/",
}

// Path returns the URL a browser client should load for s.
func Path(s Screen) string {
	if p, ok := paths[s]; ok {
		return p
	}
	return "/"
}

// AppState is the shared application state handed to each screen.
type AppState struct {
	UserID string
	Email  string
	Role   string
}

// Navigator receives the screens' navigation signals.
type Navigator interface {
	Advance(ctx context.Context, userID string, to Screen)
	ShowError(ctx context.Context, userID, message string)
}

// Broadcaster publishes navigation signals so every instance can push them
// to the user's live connections.
type Broadcaster struct {
	pub events.Publisher
	log zerolog.Logger
	now func() time.Time
}

// NewBroadcaster creates a broadcaster over pub.
func NewBroadcaster(pub events.Publisher, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{pub: pub, log: log.With().Str("component", "navigation").Logger(), now: time.Now}
}

func (b *Broadcaster) Advance(ctx context.Context, userID string, to Screen) {
	b.publish(ctx, events.NavigationEvent{
		UserID: userID,
		Kind:   events.NavAdvance,
		Screen: string(to),
		Path:   Path(to),
	})
}

func (b *Broadcaster) ShowError(ctx context.Context, userID, message string) {
	b.publish(ctx, events.NavigationEvent{
		UserID:  userID,
		Kind:    events.NavError,
		Message: message,
	})
}

// publish does not block the caller; failures are only logged.
func (b *Broadcaster) publish(ctx context.Context, ev events.NavigationEvent) {
	ev.At = b.now().UTC().Format(time.RFC3339)
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := b.pub.Publish(ctx, kafka.TopicNavigation, ev.UserID, ev); err != nil {
			b.log.Error().Err(err).Str("user_id", ev.UserID).Str("kind", ev.Kind).Msg("failed to publish navigation event")
		}
	}()
}
