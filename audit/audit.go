// Package audit provides structured audit logging for session events.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Actions recorded by the session layer.
const (
	ActionLogin       = "login"
	ActionRefresh     = "refresh"
	ActionLogout      = "logout"
	ActionForcedEnd   = "forced_end"
	ActionGuardDenied = "guard_denied"
)

// Event represents one session audit event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"` // login, refresh, logout, forced_end, guard_denied
	Path      string    `json:"path,omitempty"`
	Result    string    `json:"result"` // success, failure, denied
	Details   string    `json:"details,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Logger emits audit events to configured handlers.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithStdoutHandler adds a handler that writes JSON events to stdout.
func WithStdoutHandler() Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) {
		l.AddHandler(h)
	}
}

// New creates a new audit logger with buffered async emission.
// bufferSize: event queue buffer size (default: 1000).
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	logger := &Logger{
		handlers: make([]Handler, 0),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(logger)
	}

	// Start async event processor
	logger.wg.Add(1)
	go logger.process()

	return logger
}

// AddHandler adds a handler to receive audit events.
func (l *Logger) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Log emits an audit event asynchronously.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.queue <- event:
	case <-l.done:
		// Logger is shutting down, event is dropped
	}
}

// process handles events from the queue.
func (l *Logger) process() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			for _, h := range l.handlers {
				h(event)
			}
		case <-l.done:
			// Drain remaining events
			for {
				select {
				case event := <-l.queue:
					for _, h := range l.handlers {
						h(event)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending events and stops the logger.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return nil
}

// LogAuth records a login/refresh/logout outcome. A nil error is recorded as
// success, anything else as failure.
func (l *Logger) LogAuth(ctx context.Context, action string, userID int64, username string, err error) {
	e := Event{
		RequestID: RequestID(ctx),
		UserID:    userID,
		Username:  username,
		Action:    action,
		Result:    "success",
	}
	if err != nil {
		e.Result = "failure"
		e.Error = err.Error()
	}
	l.Log(e)
}

// LogForcedEnd records a forced session end with its trigger.
func (l *Logger) LogForcedEnd(ctx context.Context, username, reason string) {
	l.Log(Event{
		RequestID: RequestID(ctx),
		Username:  username,
		Action:    ActionForcedEnd,
		Result:    "success",
		Details:   reason,
	})
}

// LogGuardDenied records a navigation attempt rejected by a guard.
func (l *Logger) LogGuardDenied(ctx context.Context, username, path, details string) {
	l.Log(Event{
		RequestID: RequestID(ctx),
		Username:  username,
		Action:    ActionGuardDenied,
		Path:      path,
		Result:    "denied",
		Details:   details,
	})
}

// FromContext retrieves the audit logger from context.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKeyLogger).(*Logger)
	if !ok {
		return nil
	}
	return logger
}

// WithContext stores the audit logger in context.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// RequestID retrieves the request ID from context.
func RequestID(ctx context.Context) string {
	id, ok := ctx.Value(contextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return id
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

type contextKey string

const (
	contextKeyLogger    contextKey = "audit.logger"
	contextKeyRequestID contextKey = "audit.request_id"
)
