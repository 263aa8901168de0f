package main

import (
	"strings"
	"testing"
)

func TestPresence_SeededOffline(t *testing.T) {
	configPath := writeTestConfig(t)
	initDB(t, configPath)

	out, err := runCmd(t, "", "presence", "-c", configPath)
	if err != nil {
		t.Fatalf("presence: %v", err)
	}
	if !strings.Contains(out, "Operator: away (flag off, last heartbeat never)") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestPresence_OnThenOff(t *testing.T) {
	configPath := writeTestConfig(t)
	initDB(t, configPath)

	out, err := runCmd(t, "", "presence", "on", "-c", configPath)
	if err != nil {
		t.Fatalf("presence on: %v", err)
	}
	if !strings.Contains(out, "Operator: available (flag on") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = runCmd(t, "", "presence", "off", "-c", configPath)
	if err != nil {
		t.Fatalf("presence off: %v", err)
	}
	if !strings.Contains(out, "Operator: away (flag off") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestPresence_RejectsUnknownArg(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCmd(t, "", "presence", "maybe", "-c", configPath); err == nil {
		t.Fatal("expected error for invalid argument")
	}
}
