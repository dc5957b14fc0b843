package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"onboarding-service/internal/choice"
	"onboarding-service/internal/events"
	"onboarding-service/internal/navigation"
	"onboarding-service/internal/profile"
	"onboarding-service/internal/session"
	"onboarding-service/pkg/kafka"
)

const continueLock = "role-continue"

// Service contains the role screen logic.
type Service struct {
	sessions session.Store
	profiles profile.Store
	nav      navigation.Navigator
	events   events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a role service.
func NewService(sessions session.Store, profiles profile.Store, nav navigation.Navigator, pub events.Publisher, log zerolog.Logger) *Service {
	return &Service{
		sessions: sessions,
		profiles: profiles,
		nav:      nav,
		events:   pub,
		log:      log.With().Str("component", "roles").Logger(),
		now:      time.Now,
	}
}

// group rebuilds the control from stored state. A stored role that is no
// longer an option is ignored.
func group(st session.State) *choice.Group[Role] {
	g := choice.New(true, Options...)
	if st.Role != "" {
		_ = g.Select(Role(st.Role))
	}
	return g
}

func view(g *choice.Group[Role], msg string) *ScreenView {
	v := &ScreenView{CanContinue: g.CanContinue(), Message: msg}
	for _, c := range g.Cards() {
		v.Options = append(v.Options, Card{
			ID:          string(c.ID),
			Label:       c.Label,
			Description: c.Description,
			Features:    c.Features,
			Active:      c.Active,
		})
	}
	if sel, ok := g.Selected(); ok {
		v.Selected = string(sel)
	}
	return v
}

// Screen returns the current state of the role screen.
func (s *Service) Screen(ctx context.Context, app navigation.AppState) (*ScreenView, error) {
	st, err := s.sessions.Load(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return view(group(st), ""), nil
}

// Select makes role the active card, replacing any earlier choice.
func (s *Service) Select(ctx context.Context, app navigation.AppState, role Role) (*ScreenView, error) {
	st, err := s.sessions.Load(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	g := group(st)
	if err := g.Select(role); err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, app.UserID, map[string]string{session.KeyRole: string(role)}); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return view(g, ""), nil
}

// Continue saves the chosen role to the profile record and advances to
// profile creation. It returns the application state with the role set.
//
// Without a selection it returns ErrNoSelection and never touches the
// profile store. A failed save returns *PersistenceError and leaves the
// selection in place so the user can retry.
func (s *Service) Continue(ctx context.Context, app navigation.AppState) (navigation.AppState, error) {
	st, err := s.sessions.Load(ctx, app.UserID)
	if err != nil {
		return app, fmt.Errorf("loading session: %w", err)
	}
	role, err := group(st).Continue()
	if err != nil {
		s.nav.ShowError(ctx, app.UserID, MsgSelectRole)
		return app, err
	}

	token, err := s.sessions.TryLock(ctx, app.UserID, continueLock)
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			return app, ErrContinueInProgress
		}
		return app, fmt.Errorf("locking continue: %w", err)
	}
	defer func() {
		if err := s.sessions.Unlock(context.WithoutCancel(ctx), app.UserID, continueLock, token); err != nil {
			s.log.Warn().Err(err).Str("user_id", app.UserID).Msg("failed to release continue lock")
		}
	}()

	now := s.now().UTC()
	err = s.profiles.Merge(ctx, app.UserID, profile.Fields{
		profile.FieldRole:            string(role),
		profile.FieldCreatedAt:       now,
		profile.FieldProfileComplete: false,
		profile.FieldIsVerified:      false,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", app.UserID).Str("role", string(role)).Msg("failed to save role")
		s.nav.ShowError(ctx, app.UserID, MsgSaveFailed)
		return app, &PersistenceError{Err: err}
	}

	app.Role = string(role)
	s.log.Info().Str("user_id", app.UserID).Str("role", app.Role).Msg("role saved")

	// Async Kafka publish
	go func() {
		ev := events.RoleSelectedEvent{
			UserID:     app.UserID,
			Role:       app.Role,
			SelectedAt: now.Format(time.RFC3339),
		}
		if err := s.events.Publish(context.Background(), kafka.TopicRoleSelected, app.UserID, ev); err != nil {
			s.log.Error().Err(err).Msg("failed to publish role_selected")
		}
	}()

	s.nav.Advance(ctx, app.UserID, navigation.ScreenProfileCreation)
	return app, nil
}
