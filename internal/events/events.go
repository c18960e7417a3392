package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rescale/appendix-client/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog           EventType = "log"
	EventFilesChanged  EventType = "files_changed"  // Canonical file set replaced or cleared
	EventPhaseChanged  EventType = "phase_changed"  // Submission controller moved to a new phase
	EventDocumentSaved EventType = "document_saved" // Generated document written to its destination
	EventThemeChanged  EventType = "theme_changed"  // Theme preference toggled
	EventProgress      EventType = "progress"       // Upload bytes sent
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Error   error
}

// FilesChangedEvent is published after every recount.
type FilesChangedEvent struct {
	BaseEvent
	Count int
	Label string
	Names []string
}

// PhaseChangedEvent represents a submission phase transition.
// Message carries the failure text when NewPhase is "failed".
type PhaseChangedEvent struct {
	BaseEvent
	SubmissionID string
	OldPhase     string
	NewPhase     string
	Message      string
}

// DocumentSavedEvent is published when a generated document has been committed.
type DocumentSavedEvent struct {
	BaseEvent
	SubmissionID string
	Filename     string
	Location     string
	Size         int64
}

// ProgressEvent reports how much of the request body has been sent.
// BytesTotal is 0 when unknown.
type ProgressEvent struct {
	BaseEvent
	Stage        string
	BytesCurrent int64
	BytesTotal   int64
}

// ThemeChangedEvent is published when the theme preference is written.
type ThemeChangedEvent struct {
	BaseEvent
	Theme string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for a subscriber whose buffer is full are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: BaseEvent{EventType: EventLog, Time: time.Now()},
		Level:     level,
		Message:   message,
		Error:     err,
	})
}

// PublishPhaseChange is a convenience method for publishing phase transitions
func (eb *EventBus) PublishPhaseChange(submissionID, oldPhase, newPhase, message string) {
	eb.Publish(&PhaseChangedEvent{
		BaseEvent:    BaseEvent{EventType: EventPhaseChanged, Time: time.Now()},
		SubmissionID: submissionID,
		OldPhase:     oldPhase,
		NewPhase:     newPhase,
		Message:      message,
	})
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
