package signal

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"platewatch/internal/logger"
)

type recordingSink struct {
	calls []bool
	err   error
}

func (s *recordingSink) Set(_ context.Context, on bool) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, on)
	return nil
}

func TestController_EdgeTriggered(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, 0, logger.New(io.Discard))
	ctx := context.Background()
	now := time.Now()

	c.Update(ctx, false, now)
	c.Update(ctx, true, now)
	c.Update(ctx, true, now)
	c.Update(ctx, false, now)
	c.Update(ctx, false, now)

	want := []bool{true, false}
	if len(sink.calls) != len(want) {
		t.Fatalf("Expected %d sink calls, got %v", len(want), sink.calls)
	}
	for i := range want {
		if sink.calls[i] != want[i] {
			t.Errorf("Call %d: expected %v, got %v", i, want[i], sink.calls[i])
		}
	}
	if c.Switches() != 2 {
		t.Errorf("Expected 2 switches, got %d", c.Switches())
	}
}

func TestController_Hold(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, 2*time.Second, logger.New(io.Discard))
	ctx := context.Background()
	start := time.Now()

	c.Update(ctx, true, start)
	c.Update(ctx, false, start.Add(time.Second))
	if !c.On() {
		t.Fatal("Expected signal to stay on within the hold period")
	}

	c.Update(ctx, false, start.Add(2*time.Second))
	if c.On() {
		t.Error("Expected signal to switch off once the hold elapsed")
	}
}

func TestController_FailedSetKeepsState(t *testing.T) {
	sink := &recordingSink{err: errors.New("relay stuck")}
	c := NewController(sink, 0, logger.New(io.Discard))

	c.Update(context.Background(), true, time.Now())
	if c.On() {
		t.Error("Expected state to remain off after a failed write")
	}
}

func TestController_Off(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, time.Hour, logger.New(io.Discard))

	c.Update(context.Background(), true, time.Now())
	c.Off(context.Background())

	if c.On() || len(sink.calls) != 2 || sink.calls[1] {
		t.Errorf("Expected forced off, got state=%v calls=%v", c.On(), sink.calls)
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("boom")}

	err := Multi{good, bad}.Set(context.Background(), true)
	if err == nil {
		t.Fatal("Expected joined error")
	}
	if len(good.calls) != 1 {
		t.Errorf("Expected healthy sink to be driven, got %v", good.calls)
	}
}
