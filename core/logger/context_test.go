package logger

import "testing"

func TestBuildRID(t *testing.T) {
	if got := BuildRID(42, 9, 7); got != "42:9:7" {
		t.Fatalf("BuildRID = %q, want 42:9:7", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)
	ctx = WithHandler(ctx, "start")

	if got := RIDFrom(ctx); got != "rid-123" {
		t.Errorf("RIDFrom = %q", got)
	}
	if got := UpdateIDFrom(ctx); got != 42 {
		t.Errorf("UpdateIDFrom = %d", got)
	}
	if got := UserIDFrom(ctx); got != 7 {
		t.Errorf("UserIDFrom = %d", got)
	}
	if got := ChatIDFrom(ctx); got != 9 {
		t.Errorf("ChatIDFrom = %d", got)
	}
	if got := HandlerFrom(ctx); got != "start" {
		t.Errorf("HandlerFrom = %q", got)
	}
}

func TestContextDefaults(t *testing.T) {
	if RIDFrom(nil) != "" || UserIDFrom(nil) != 0 || ChatIDFrom(nil) != 0 || UpdateIDFrom(nil) != 0 {
		t.Fatal("nil context should yield zero values")
	}
}

func TestNewRIDUnique(t *testing.T) {
	a, b := NewRID(), NewRID()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty rids, got %q and %q", a, b)
	}
}
