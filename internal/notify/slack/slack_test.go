package slack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/showroom/internal/notify"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu      sync.Mutex
	posted  []string
	errs    []error // returned in order, one per call
	calls   int
	options [][]slackapi.MsgOption
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", "", err
		}
	}
	m.posted = append(m.posted, channelID)
	m.options = append(m.options, options)
	return channelID, "1234567890.123456", nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{ChannelID: "C1"}); err == nil {
		t.Error("expected error without token or client")
	}
	if _, err := New(Opts{BotToken: "xoxb-1"}); err == nil {
		t.Error("expected error without channel")
	}
	if _, err := New(Opts{BotToken: "xoxb-1", ChannelID: "C1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNotify_Posts(t *testing.T) {
	mock := &mockSlackClient{}
	n, _ := New(Opts{ChannelID: "C_LEADS", Client: mock})

	err := n.Notify(context.Background(), notify.Alert{Kind: notify.KindLead, Title: "New lead: Anna"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mock.posted) != 1 || mock.posted[0] != "C_LEADS" {
		t.Errorf("posted = %v, want [C_LEADS]", mock.posted)
	}
	if len(mock.options[0]) != 2 {
		t.Errorf("options = %d, want text + attachments", len(mock.options[0]))
	}
}

func TestNotify_RetriesRateLimit(t *testing.T) {
	mock := &mockSlackClient{errs: []error{&slackapi.RateLimitedError{RetryAfter: time.Millisecond}}}
	n, _ := New(Opts{ChannelID: "C1", Client: mock})

	if err := n.Notify(context.Background(), notify.Alert{Title: "x"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("calls = %d, want 2", mock.calls)
	}
}

func TestNotify_NonRateLimitErrorNotRetried(t *testing.T) {
	mock := &mockSlackClient{errs: []error{errors.New("channel_not_found")}}
	n, _ := New(Opts{ChannelID: "C1", Client: mock})

	if err := n.Notify(context.Background(), notify.Alert{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
}

func TestAlertToAttachment(t *testing.T) {
	a := notify.Alert{
		Title: "New lead: Anna",
		Body:  "Cold pilger mill",
		Color: notify.ColorSuccess,
		Fields: []notify.Field{
			{Name: "Company", Value: "Volga Pipe Works", Short: true},
			{Name: "Source", Value: "scripted-offline-capture", Short: true},
		},
	}
	att := alertToAttachment(a)
	if att.Title != a.Title || att.Fallback != a.Title {
		t.Errorf("title = %q, fallback = %q", att.Title, att.Fallback)
	}
	if att.Text != "Cold pilger mill" {
		t.Errorf("text = %q", att.Text)
	}
	if att.Color != notify.ColorSuccess {
		t.Errorf("color = %q", att.Color)
	}
	if len(att.Fields) != 2 || att.Fields[0].Title != "Company" || !att.Fields[1].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}
