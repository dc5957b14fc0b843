package navigation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"onboarding-service/internal/events"
	"onboarding-service/pkg/kafka"
)

type publishCall struct {
	topic, key string
	value      any
}

type chanPublisher struct {
	calls chan publishCall
	err   error
}

func (p *chanPublisher) Publish(_ context.Context, topic, key string, value any) error {
	p.calls <- publishCall{topic, key, value}
	return p.err
}

func receive(t *testing.T, ch <-chan publishCall) publishCall {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no publish within 2s")
		return publishCall{}
	}
}

func TestBroadcasterAdvance(t *testing.T) {
	pub := &chanPublisher{calls: make(chan publishCall, 1)}
	b := NewBroadcaster(pub, zerolog.Nop())

	b.Advance(context.Background(), "u1", ScreenProfileCreation)

	c := receive(t, pub.calls)
	if c.topic != kafka.TopicNavigation || c.key != "u1" {
		t.Errorf("topic/key = %s/%s", c.topic, c.key)
	}
	ev := c.value.(events.NavigationEvent)
	if ev.Kind != events.NavAdvance || ev.Screen != "profile-creation" || ev.Path != "/onboarding/details" {
		t.Errorf("event = %+v", ev)
	}
	if ev.At == "" {
		t.Error("missing timestamp")
	}
}

func TestBroadcasterShowErrorSurvivesCancelledContext(t *testing.T) {
	pub := &chanPublisher{calls: make(chan publishCall, 1), err: errors.New("broker down")}
	b := NewBroadcaster(pub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.ShowError(ctx, "u2", "Something went wrong")

	ev := receive(t, pub.calls).value.(events.NavigationEvent)
	if ev.Kind != events.NavError || ev.Message != "Something went wrong" {
		t.Errorf("event = %+v", ev)
	}
}

func TestPath(t *testing.T) {
	if Path(ScreenRoleSelect) != "/onboarding/role" {
		t.Errorf("role path = %s", Path(ScreenRoleSelect))
	}
	if Path(Screen("nope")) != "/" {
		t.Errorf("unknown screen path = %s", Path(Screen("nope")))
	}
}
