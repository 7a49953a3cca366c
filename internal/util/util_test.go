package util

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerToFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "info", "text").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("text handler output = %q, want k=v", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "info", "json").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("json handler output = %q, want \"k\":\"v\"", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "warn", "json").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info message logged at warn level: %q", buf.String())
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter("yahoo", 60, 3)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if rl.Name() != "yahoo" {
		t.Errorf("Name() = %q, want yahoo", rl.Name())
	}
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d within burst: %v", i, err)
		}
	}
	if got := rl.Throttled(); got != 0 {
		t.Errorf("Throttled() = %d within burst, want 0", got)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	rl := NewRateLimiter("alpaca", 1200, 1) // one token every 50ms
	ctx := context.Background()
	_ = rl.Wait(ctx)

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second Wait returned after %v, want about 50ms", elapsed)
	}
	if got := rl.Throttled(); got < 1 {
		t.Errorf("Throttled() = %d, want at least 1", got)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter("off", 0, 5)
	if rl != nil {
		t.Fatal("NewRateLimiter with zero rate should return nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait() = %v, want nil", err)
	}
	if rl.Throttled() != 0 || rl.Name() != "" {
		t.Error("nil limiter should report nothing")
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter("slow", 1, 1)
	_ = rl.Wait(context.Background()) // consume the initial token

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait should fail once the context expires")
	}
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, 5, 6, 0, 0, 1, 0, time.Local)
	night := time.Date(2024, 5, 6, 23, 59, 59, 0, time.Local)
	next := time.Date(2024, 5, 7, 0, 0, 0, 0, time.Local)

	if !SameDay(morning, night) {
		t.Error("times within one day should be SameDay")
	}
	if SameDay(night, next) {
		t.Error("adjacent days should not be SameDay")
	}
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.Local)
	got := DaysAgo(now, 1)
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("DaysAgo = %v, want %v", got, want)
	}
	if !Day(now).Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("Day(%v) = %v", now, Day(now))
	}
}
