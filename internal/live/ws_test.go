package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"onboarding-service/internal/events"
	"onboarding-service/internal/navigation"
	"onboarding-service/pkg/jwt"
	"onboarding-service/pkg/kafka"
)

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/onboarding"
	header := http.Header{"Authorization": {"Bearer " + token}}
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitConnections(t *testing.T, h *Hub, userID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Connections(userID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("connections for %s = %d, want %d", userID, h.Connections(userID), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	if err := jwt.Init("live-test-secret", time.Hour); err != nil {
		t.Fatal(err)
	}
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(jwt.OptionalAuth(hub.Routes()))
	defer srv.Close()

	aliceTok, _ := jwt.Generate("alice", "a@x.io", "")
	bobTok, _ := jwt.Generate("bob", "b@x.io", "")
	alice := dial(t, srv, aliceTok)
	bob := dial(t, srv, bobTok)
	waitConnections(t, hub, "alice", 1)
	waitConnections(t, hub, "bob", 1)

	hub.Advance(context.Background(), "alice", navigation.ScreenProfileCreation)

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.NavigationEvent
	if err := alice.ReadJSON(&ev); err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if ev.Kind != events.NavAdvance || ev.Path != "/onboarding/details" {
		t.Errorf("event = %+v", ev)
	}

	_ = bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := bob.ReadJSON(&ev); err == nil {
		t.Errorf("bob received alice's event: %+v", ev)
	}
}

func TestHubRequiresAuth(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(jwt.OptionalAuth(hub.Routes()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/onboarding"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v", resp)
	}
}

func TestHubRemovesClosedConnections(t *testing.T) {
	if err := jwt.Init("live-test-secret", time.Hour); err != nil {
		t.Fatal(err)
	}
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(jwt.OptionalAuth(hub.Routes()))
	defer srv.Close()

	tok, _ := jwt.Generate("carol", "c@x.io", "")
	c := dial(t, srv, tok)
	waitConnections(t, hub, "carol", 1)
	c.Close()
	waitConnections(t, hub, "carol", 0)
}

type recordingSubscriber struct {
	topic, group string
	start        int64
	handler      func([]byte) error
}

func (r *recordingSubscriber) Subscribe(_ context.Context, topic, groupID string, startOffset int64, handler func([]byte) error) {
	r.topic, r.group, r.start, r.handler = topic, groupID, startOffset, handler
}

func TestStartReadsFromTail(t *testing.T) {
	if err := jwt.Init("live-test-secret", time.Hour); err != nil {
		t.Fatal(err)
	}
	hub := NewHub(zerolog.Nop())
	sub := &recordingSubscriber{}
	hub.Start(context.Background(), sub)

	if sub.topic != kafka.TopicNavigation {
		t.Errorf("topic = %q", sub.topic)
	}
	if sub.start != kafka.LastOffset {
		t.Errorf("start offset = %d, want LastOffset", sub.start)
	}
	if !strings.HasPrefix(sub.group, "onboarding-live-") {
		t.Errorf("group = %q", sub.group)
	}
	other := &recordingSubscriber{}
	NewHub(zerolog.Nop()).Start(context.Background(), other)
	if other.group == sub.group {
		t.Errorf("two hubs share consumer group %q", sub.group)
	}

	srv := httptest.NewServer(jwt.OptionalAuth(hub.Routes()))
	defer srv.Close()
	tok, _ := jwt.Generate("carol", "c@x.io", "")
	conn := dial(t, srv, tok)
	waitConnections(t, hub, "carol", 1)

	data, _ := json.Marshal(events.NavigationEvent{UserID: "carol", Kind: events.NavAdvance, Screen: string(navigation.ScreenHome)})
	if err := sub.handler(data); err != nil {
		t.Fatalf("handler: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.NavigationEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Kind != events.NavAdvance || ev.Screen != string(navigation.ScreenHome) {
		t.Errorf("event = %+v", ev)
	}

	if err := sub.handler([]byte("not json")); err == nil {
		t.Error("handler accepted malformed payload")
	}
}
