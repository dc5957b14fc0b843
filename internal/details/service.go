package details

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"onboarding-service/internal/events"
	"onboarding-service/internal/navigation"
	"onboarding-service/internal/profile"
	"onboarding-service/internal/session"
	"onboarding-service/pkg/kafka"
	"onboarding-service/pkg/validation"
)

const continueLock = "details-continue"

// Service owns the details draft and supplies the form's continuation.
type Service struct {
	sessions        session.Store
	profiles        profile.Store
	nav             navigation.Navigator
	events          events.Publisher
	log             zerolog.Logger
	now             func() time.Time
	requireComplete bool
}

// NewService creates a details service. With requireComplete set, continue
// refuses incomplete or invalid fields.
func NewService(sessions session.Store, profiles profile.Store, nav navigation.Navigator, pub events.Publisher, log zerolog.Logger, requireComplete bool) *Service {
	return &Service{
		sessions:        sessions,
		profiles:        profiles,
		nav:             nav,
		events:          pub,
		log:             log.With().Str("component", "details").Logger(),
		now:             time.Now,
		requireComplete: requireComplete,
	}
}

// form binds a Form to st. Setters write into st and, when dirty is not
// nil, record the changed keys so only those are stored.
func (s *Service) form(app navigation.AppState, st *session.State, dirty map[string]string) *Form {
	set := func(key string, dst *string, v string) {
		*dst = v
		if dirty != nil {
			dirty[key] = v
		}
	}
	b := Bindings{
		Values: Values{
			Name:     st.Name,
			Age:      st.Age,
			Gender:   Gender(st.Gender),
			Location: st.Location,
		},
		SetName:     func(v string) { set(session.KeyName, &st.Name, v) },
		SetAge:      func(v string) { set(session.KeyAge, &st.Age, v) },
		SetGender:   func(v Gender) { set(session.KeyGender, &st.Gender, string(v)) },
		SetLocation: func(v string) { set(session.KeyLocation, &st.Location, v) },
	}
	return NewForm(b, func(ctx context.Context) error { return s.complete(ctx, app, *st) })
}

// Screen returns the current state of the details screen.
func (s *Service) Screen(ctx context.Context, app navigation.AppState) (*FormView, error) {
	st, err := s.sessions.Load(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return s.form(app, &st, nil).View(), nil
}

// Edit applies one field edit and stores the draft.
func (s *Service) Edit(ctx context.Context, app navigation.AppState, field Field, value string) (*FormView, error) {
	return s.Apply(ctx, app, map[Field]string{field: value})
}

// Apply applies several edits at once, as a full form post does.
func (s *Service) Apply(ctx context.Context, app navigation.AppState, edits map[Field]string) (*FormView, error) {
	st, err := s.sessions.Load(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	for field := range edits {
		if !slices.Contains(AllFields, field) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
	}
	dirty := make(map[string]string, len(edits))
	f := s.form(app, &st, dirty)
	for _, field := range AllFields {
		v, ok := edits[field]
		if !ok {
			continue
		}
		if err := f.Edit(field, v); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Set(ctx, app.UserID, dirty); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return f.View(), nil
}

// Continue runs the form's continuation for the stored draft.
func (s *Service) Continue(ctx context.Context, app navigation.AppState) error {
	st, err := s.sessions.Load(ctx, app.UserID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	return s.form(app, &st, nil).Continue(ctx)
}

// complete is the continuation handed to the form: save the fields to the
// profile record and move on to the home screen.
func (s *Service) complete(ctx context.Context, app navigation.AppState, st session.State) error {
	if s.requireComplete {
		if fe := validate(st); len(fe) > 0 {
			s.nav.ShowError(ctx, app.UserID, MsgIncomplete)
			return fe
		}
	}

	token, err := s.sessions.TryLock(ctx, app.UserID, continueLock)
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			return ErrContinueInProgress
		}
		return fmt.Errorf("locking continue: %w", err)
	}
	defer func() {
		if err := s.sessions.Unlock(context.WithoutCancel(ctx), app.UserID, continueLock, token); err != nil {
			s.log.Warn().Err(err).Str("user_id", app.UserID).Msg("failed to release continue lock")
		}
	}()

	now := s.now().UTC()
	err = s.profiles.Merge(ctx, app.UserID, profile.Fields{
		profile.FieldName:      st.Name,
		profile.FieldAge:       st.Age,
		profile.FieldGender:    st.Gender,
		profile.FieldLocation:  st.Location,
		profile.FieldUpdatedAt: now,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", app.UserID).Msg("failed to save details")
		s.nav.ShowError(ctx, app.UserID, MsgSaveFailed)
		return &PersistenceError{Err: err}
	}
	s.log.Info().Str("user_id", app.UserID).Msg("details saved")

	go func() {
		ev := events.DetailsSubmittedEvent{
			UserID:      app.UserID,
			Gender:      st.Gender,
			Location:    st.Location,
			SubmittedAt: now.Format(time.RFC3339),
		}
		if err := s.events.Publish(context.Background(), kafka.TopicDetailsSubmitted, app.UserID, ev); err != nil {
			s.log.Error().Err(err).Msg("failed to publish details_submitted")
		}
	}()

	s.nav.Advance(ctx, app.UserID, navigation.ScreenHome)
	return nil
}

func validate(st session.State) FieldErrors {
	fe := FieldErrors{}
	if !validation.ValidateName(st.Name) {
		fe[FieldName] = "Enter your name."
	}
	if !validation.ValidateAge(st.Age) {
		fe[FieldAge] = fmt.Sprintf("Enter an age between %d and %d.", validation.MinAge, validation.MaxAge)
	}
	if st.Gender == "" {
		fe[FieldGender] = "Choose an option."
	}
	if !validation.ValidateLocation(st.Location) {
		fe[FieldLocation] = "Enter your location."
	}
	return fe
}
