package kafka

import (
	"testing"
	"time"
)

func TestReaderConfigStartOffset(t *testing.T) {
	c := NewClient([]string{"localhost:9092"})
	defer c.Close()

	live := c.readerConfig(TopicNavigation, "onboarding-live-a", LastOffset)
	if live.StartOffset != LastOffset {
		t.Errorf("live StartOffset = %d, want LastOffset", live.StartOffset)
	}
	if live.RetentionTime != time.Hour {
		t.Errorf("live RetentionTime = %v, want 1h", live.RetentionTime)
	}
	if live.GroupID != "onboarding-live-a" || live.Topic != TopicNavigation {
		t.Errorf("live config = %+v", live)
	}

	replay := c.readerConfig(TopicRoleSelected, "audit", FirstOffset)
	if replay.StartOffset != FirstOffset {
		t.Errorf("replay StartOffset = %d, want FirstOffset", replay.StartOffset)
	}
	if replay.RetentionTime != 0 {
		t.Errorf("replay RetentionTime = %v, want broker default", replay.RetentionTime)
	}
}
