package notify

import (
	"testing"
	"time"
)

func TestNextCronDuration_ValidExpression(t *testing.T) {
	now := time.Date(2026, 5, 4, 7, 30, 0, 0, time.Local)
	d := nextCronDuration("0 9 * * *", now)
	if d != 90*time.Minute {
		t.Fatalf("duration = %v, want 1h30m", d)
	}
}

func TestNextCronDuration_InvalidExpression(t *testing.T) {
	if d := nextCronDuration("not a cron expr", time.Now()); d != 0 {
		t.Fatalf("expected 0 for invalid expression, got %v", d)
	}
}

func TestNextCronDuration_EveryMinute(t *testing.T) {
	d := nextCronDuration("* * * * *", time.Now())
	if d <= 0 || d > 61*time.Second {
		t.Fatalf("duration = %v, want (0, 61s]", d)
	}
}

func TestValidateCron(t *testing.T) {
	if err := ValidateCron("0 8 * * 1-5"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCron("0 0 8 * * *"); err == nil {
		t.Error("6-field expression accepted")
	}
}
