package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/showroom/internal/models"
)

func TestChat_OfflineScript(t *testing.T) {
	configPath := writeTestConfig(t)
	initDB(t, configPath)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	out, err := runCmd(t, "Hello\nAnna\n", "chat", "-c", configPath, "--session-file", sessionFile)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	for _, want := range []string{
		"operator offline",
		"bot> Hello! Our engineers are away",
		"bot> May I have your name, please?",
		"bot> Thank you, Anna. Which company do you represent?",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "visitor>") {
		t.Errorf("visitor lines must not be echoed:\n%s", out)
	}
}

func TestChat_SessionPersistsAcrossRuns(t *testing.T) {
	configPath := writeTestConfig(t)
	initDB(t, configPath)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	first, err := runCmd(t, "Hello\n", "chat", "-c", configPath, "--session-file", sessionFile)
	if err != nil {
		t.Fatalf("first chat: %v", err)
	}
	second, err := runCmd(t, "/quit\nignored\n", "chat", "-c", configPath, "--session-file", sessionFile)
	if err != nil {
		t.Fatalf("second chat: %v", err)
	}

	header := func(s string) string { return strings.SplitN(s, "\n", 2)[0] }
	if header(first) != header(second) {
		t.Errorf("session changed between runs: %q vs %q", header(first), header(second))
	}
	// History is replayed but the welcome is not appended a second time.
	if n := strings.Count(second, "Our engineers are away"); n != 1 {
		t.Errorf("welcome count = %d, want 1:\n%s", n, second)
	}
	if !strings.Contains(second, "May I have your name") {
		t.Errorf("history not replayed:\n%s", second)
	}
}

func TestTranscriptPrinter_SkipsVisitorAndSeen(t *testing.T) {
	var buf bytes.Buffer
	p := &transcriptPrinter{out: &buf}
	msgs := []models.ChatMessage{
		{ID: 1, From: models.RoleBot, Text: "hi"},
		{ID: 2, From: models.RoleVisitor, Text: "hello"},
		{ID: 3, From: models.RoleBot, Text: "name?"},
	}
	p.print(msgs)
	p.print(msgs)

	want := "bot> hi\nbot> name?\n"
	if buf.String() != want {
		t.Errorf("printed %q, want %q", buf.String(), want)
	}
}
