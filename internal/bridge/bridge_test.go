package bridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_CompletesInTime(t *testing.T) {
	err := Run(time.Second, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRun_PropagatesOpError(t *testing.T) {
	want := errors.New("boom")
	err := Run(time.Second, func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected op error, got %v", err)
	}
}

func TestRun_TimesOutWithinBound(t *testing.T) {
	started := time.Now()
	err := Run(50*time.Millisecond, func(ctx context.Context) error {
		<-time.After(5 * time.Second)
		return nil
	})
	elapsed := time.Since(started)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("caller blocked %v, expected return near the 50ms bound", elapsed)
	}
}

func TestRun_OpSeesDeadline(t *testing.T) {
	var hadDeadline bool
	err := Run(time.Second, func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !hadDeadline {
		t.Error("op context should carry the bounded-wait deadline")
	}
}
