package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForReturnsOnCancel(t *testing.T) {
	original := sleep
	sleep = func(time.Duration) { time.Sleep(time.Second) }
	defer func() { sleep = original }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForSleeps(t *testing.T) {
	original := sleep
	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }
	defer func() { sleep = original }()

	if err := WaitFor(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 3*time.Second {
		t.Fatalf("expected sleep of 3s, got %s", slept)
	}
}

func TestTextHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fn     func(string) string
		input  string
		expect string
	}{
		{name: "collapse", fn: CollapseSpaces, input: "  a \t b\n c ", expect: "a b c"},
		{name: "collapse empty", fn: CollapseSpaces, input: "   ", expect: ""},
		{name: "title", fn: TitleCase, input: "new   york", expect: "New York"},
		{name: "title upper", fn: TitleCase, input: "EDINBURGH", expect: "Edinburgh"},
		{name: "title empty", fn: TitleCase, input: "", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.fn(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
