package events

import (
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventFilesChanged)

	bus.Publish(&FilesChangedEvent{
		BaseEvent: BaseEvent{EventType: EventFilesChanged, Time: time.Now()},
		Count:     2,
		Label:     "2 images selected",
	})

	select {
	case received := <-ch:
		files, ok := received.(*FilesChangedEvent)
		if !ok {
			t.Fatal("Expected FilesChangedEvent")
		}
		if files.Count != 2 {
			t.Errorf("Expected count 2, got %d", files.Count)
		}
		if files.Label != "2 images selected" {
			t.Errorf("Expected label '2 images selected', got '%s'", files.Label)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	phaseCh := bus.Subscribe(EventPhaseChanged)
	logCh := bus.Subscribe(EventLog)

	bus.PublishPhaseChange("sub-1", "idle", "pending", "")

	select {
	case <-phaseCh:
	case <-time.After(100 * time.Millisecond):
		t.Error("Phase subscriber didn't receive event")
	}

	select {
	case <-logCh:
		t.Error("Log subscriber received wrong event type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(2)
	defer bus.Close()

	ch := bus.Subscribe(EventLog)

	for i := 0; i < 10; i++ {
		bus.PublishLog(DebugLevel, "flood", nil)
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-time.After(10 * time.Millisecond):
			goto done
		}
	}
done:

	if count != 2 {
		t.Errorf("Expected 2 buffered events, got %d", count)
	}
	if dropped := bus.GetDroppedEventCount(); dropped != 8 {
		t.Errorf("Expected 8 dropped events, got %d", dropped)
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)

	ch := bus.Subscribe(EventPhaseChanged)

	bus.Close()

	_, ok := <-ch
	if ok {
		t.Error("Channel should be closed after bus.Close()")
	}

	// Publishing after close should not panic
	bus.PublishPhaseChange("sub-1", "idle", "pending", "")

	// Subscribing after close returns a closed channel
	late := bus.Subscribe(EventLog)
	if _, ok := <-late; ok {
		t.Error("Subscription after Close should be closed")
	}
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level %d: expected %s, got %s", tt.level, tt.expected, got)
		}
	}
}

func TestPublishPhaseChange(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventPhaseChanged)
	bus.PublishPhaseChange("sub-7", "pending", "failed", "bad width")

	select {
	case event := <-ch:
		phase, ok := event.(*PhaseChangedEvent)
		if !ok {
			t.Fatal("Expected PhaseChangedEvent")
		}
		if phase.NewPhase != "failed" || phase.Message != "bad width" {
			t.Errorf("unexpected event: %+v", phase)
		}
		if phase.SubmissionID != "sub-7" {
			t.Errorf("Expected submission sub-7, got %s", phase.SubmissionID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for phase event")
	}
}
