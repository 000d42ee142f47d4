package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEventEmission(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	logger := New(10, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))
	defer logger.Close()

	event := Event{
		Action:   ActionLogin,
		Result:   "success",
		UserID:   42,
		Username: "abraham",
	}
	logger.Log(event)

	// Give async processor time to handle event
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Username != "abraham" {
		t.Errorf("expected abraham, got %s", events[0].Username)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestMultipleHandlers(t *testing.T) {
	var mu1, mu2 sync.Mutex
	var events1, events2 []Event

	handler1 := func(e Event) {
		mu1.Lock()
		defer mu1.Unlock()
		events1 = append(events1, e)
	}

	handler2 := func(e Event) {
		mu2.Lock()
		defer mu2.Unlock()
		events2 = append(events2, e)
	}

	logger := New(10, WithHandler(handler1), WithHandler(handler2))
	defer logger.Close()

	event := Event{Action: ActionRefresh, Result: "success"}
	logger.Log(event)

	time.Sleep(100 * time.Millisecond)

	mu1.Lock()
	if len(events1) != 1 {
		t.Fatalf("handler1: expected 1 event, got %d", len(events1))
	}
	mu1.Unlock()

	mu2.Lock()
	if len(events2) != 1 {
		t.Fatalf("handler2: expected 1 event, got %d", len(events2))
	}
	mu2.Unlock()
}

func TestContextStorage(t *testing.T) {
	logger := New(10)
	defer logger.Close()

	ctx := context.Background()
	ctx = WithContext(ctx, logger)
	ctx = WithRequestID(ctx, "req-12345")

	retrieved := FromContext(ctx)
	if retrieved == nil {
		t.Fatal("logger not found in context")
	}

	requestID := RequestID(ctx)
	if requestID != "req-12345" {
		t.Errorf("expected req-12345, got %s", requestID)
	}
}

func TestQueueBuffer(t *testing.T) {
	var mu sync.Mutex
	var count int

	logger := New(5, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
		time.Sleep(50 * time.Millisecond) // Simulate slow handler
	}))
	defer logger.Close()

	// Emit 5 events (fill buffer)
	for i := 0; i < 5; i++ {
		event := Event{Action: ActionLogout, Result: "success"}
		logger.Log(event)
	}

	// Events should be queued without blocking
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if count != 5 {
		t.Errorf("expected 5 events processed, got %d", count)
	}
	mu.Unlock()
}

func TestLogAuth(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	logger := New(10, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))
	defer logger.Close()

	ctx := WithRequestID(context.Background(), "req-1")
	logger.LogAuth(ctx, ActionLogin, 7, "abraham", nil)
	logger.LogAuth(ctx, ActionRefresh, 7, "abraham", errors.New("token revoked"))

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Result != "success" || events[0].RequestID != "req-1" {
		t.Errorf("login event = %+v, want success with req-1", events[0])
	}
	if events[1].Result != "failure" || events[1].Error != "token revoked" {
		t.Errorf("refresh event = %+v, want failure with error", events[1])
	}
}

func TestLogForcedEnd(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	logger := New(10, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))
	defer logger.Close()

	logger.LogForcedEnd(context.Background(), "abraham", "refresh token expired")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Action != ActionForcedEnd || events[0].Details != "refresh token expired" {
		t.Errorf("forced end event = %+v", events[0])
	}
}

func TestLogGuardDenied(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	logger := New(10, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))
	defer logger.Close()

	logger.LogGuardDenied(context.Background(), "abraham", "/empleados", "missing role ADMIN")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Action != ActionGuardDenied || e.Path != "/empleados" ||
		e.Result != "denied" || e.Details != "missing role ADMIN" {
		t.Error("guard denied event fields not correctly set")
	}
}
