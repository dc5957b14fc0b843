package roles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"onboarding-service/internal/navigation"
	"onboarding-service/internal/profile"
	"onboarding-service/internal/session"
)

// --- Fakes ---

type mockProfiles struct {
	mu      sync.Mutex
	calls   []profile.Fields
	err     error
	entered chan struct{} // signalled when Merge starts, if set
	release chan struct{} // Merge blocks on it, if set
}

func (m *mockProfiles) Merge(_ context.Context, _ string, f profile.Fields) error {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, f)
	return m.err
}

func (m *mockProfiles) Get(context.Context, string) (profile.Fields, error) {
	return nil, profile.ErrNotFound
}

func (m *mockProfiles) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockNav struct {
	mu       sync.Mutex
	advances []navigation.Screen
	errors   []string
}

func (n *mockNav) Advance(_ context.Context, _ string, to navigation.Screen) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.advances = append(n.advances, to)
}

func (n *mockNav) ShowError(_ context.Context, _ string, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

type mockPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *mockPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

type fixture struct {
	svc      *Service
	sessions *session.MemoryStore
	profiles *mockProfiles
	nav      *mockNav
}

func newFixture() *fixture {
	f := &fixture{
		sessions: session.NewMemoryStore(),
		profiles: &mockProfiles{},
		nav:      &mockNav{},
	}
	f.svc = NewService(f.sessions, f.profiles, f.nav, &mockPublisher{}, zerolog.Nop())
	f.svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return f
}

var user = navigation.AppState{UserID: "u-1", Email: "ada@example.com"}

// --- Tests ---

func TestScreenStartsUnselected(t *testing.T) {
	f := newFixture()
	v, err := f.svc.Screen(context.Background(), user)
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if v.CanContinue || v.Selected != "" {
		t.Errorf("fresh screen = %+v", v)
	}
	if len(v.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(v.Options))
	}
	for _, c := range v.Options {
		if c.Active {
			t.Errorf("card %s active on fresh screen", c.ID)
		}
	}
}

func TestSelectEnablesContinue(t *testing.T) {
	for _, o := range Options {
		f := newFixture()
		v, err := f.svc.Select(context.Background(), user, o.ID)
		if err != nil {
			t.Fatalf("Select(%s): %v", o.ID, err)
		}
		if v.Selected != string(o.ID) || !v.CanContinue {
			t.Errorf("after Select(%s): %+v", o.ID, v)
		}
		st, _ := f.sessions.Load(context.Background(), user.UserID)
		if st.Role != string(o.ID) {
			t.Errorf("stored role = %q", st.Role)
		}
	}
}

func TestSelectReplaces(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.svc.Select(ctx, user, RoleRider)
	v, _ := f.svc.Select(ctx, user, RoleSeeker)

	active := 0
	for _, c := range v.Options {
		if c.Active {
			active++
			if c.ID != string(RoleSeeker) {
				t.Errorf("wrong active card %s", c.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("active cards = %d, want 1", active)
	}
}

func TestSelectUnknownRole(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Select(context.Background(), user, Role("driver")); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestContinueWithoutSelection(t *testing.T) {
	f := newFixture()
	app, err := f.svc.Continue(context.Background(), user)
	if !errors.Is(err, ErrNoSelection) {
		t.Fatalf("err = %v, want ErrNoSelection", err)
	}
	if f.profiles.callCount() != 0 {
		t.Error("persistence called without a selection")
	}
	if len(f.nav.errors) != 1 || f.nav.errors[0] != MsgSelectRole {
		t.Errorf("nav errors = %v", f.nav.errors)
	}
	if len(f.nav.advances) != 0 {
		t.Errorf("advanced without a selection: %v", f.nav.advances)
	}
	if app.Role != "" {
		t.Errorf("role set to %q", app.Role)
	}
}

func TestContinueSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.svc.Select(ctx, user, RoleSeeker)

	app, err := f.svc.Continue(ctx, user)
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if app.Role != "seeker" {
		t.Errorf("app role = %q, want seeker", app.Role)
	}
	if f.profiles.callCount() != 1 {
		t.Fatalf("persistence calls = %d, want 1", f.profiles.callCount())
	}
	got := f.profiles.calls[0]
	if got[profile.FieldRole] != "seeker" ||
		got[profile.FieldProfileComplete] != false ||
		got[profile.FieldIsVerified] != false {
		t.Errorf("saved fields = %v", got)
	}
	if _, ok := got[profile.FieldCreatedAt].(time.Time); !ok {
		t.Errorf("createdAt = %v", got[profile.FieldCreatedAt])
	}
	if len(f.nav.advances) != 1 || f.nav.advances[0] != navigation.ScreenProfileCreation {
		t.Errorf("advances = %v", f.nav.advances)
	}
	if len(f.nav.errors) != 0 {
		t.Errorf("unexpected errors = %v", f.nav.errors)
	}
}

func TestContinueFailureKeepsSelection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.profiles.err = errors.New("unavailable")
	_, _ = f.svc.Select(ctx, user, RoleRider)

	_, err := f.svc.Continue(ctx, user)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
	if len(f.nav.advances) != 0 {
		t.Errorf("advanced after failure: %v", f.nav.advances)
	}
	if len(f.nav.errors) != 1 || f.nav.errors[0] != MsgSaveFailed {
		t.Errorf("nav errors = %v", f.nav.errors)
	}

	v, _ := f.svc.Screen(ctx, user)
	if v.Selected != "rider" || !v.CanContinue {
		t.Errorf("selection lost after failure: %+v", v)
	}

	// Retry without re-selecting.
	f.profiles.err = nil
	if _, err := f.svc.Continue(ctx, user); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(f.nav.advances) != 1 {
		t.Errorf("advances after retry = %d", len(f.nav.advances))
	}
}

func TestContinueRejectsConcurrentCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.profiles.entered = make(chan struct{}, 1)
	f.profiles.release = make(chan struct{})
	_, _ = f.svc.Select(ctx, user, RoleSeeker)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Continue(ctx, user)
		done <- err
	}()
	<-f.profiles.entered

	if _, err := f.svc.Continue(ctx, user); !errors.Is(err, ErrContinueInProgress) {
		t.Fatalf("second Continue err = %v, want ErrContinueInProgress", err)
	}

	close(f.profiles.release)
	if err := <-done; err != nil {
		t.Fatalf("first Continue: %v", err)
	}
	if f.profiles.callCount() != 1 {
		t.Errorf("persistence calls = %d, want 1", f.profiles.callCount())
	}

	// Lock released: a later continue goes through.
	f.profiles.entered = nil
	f.profiles.release = nil
	if _, err := f.svc.Continue(ctx, user); err != nil {
		t.Fatalf("Continue after release: %v", err)
	}
}
