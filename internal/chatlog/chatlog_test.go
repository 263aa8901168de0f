package chatlog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/showroom/internal/db"
	"github.com/zulandar/showroom/internal/docstore"
	"github.com/zulandar/showroom/internal/models"
	"gorm.io/gorm"
)

func openTestLog(t *testing.T) (*Log, *gorm.DB, *docstore.MemoryFeed) {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	feed := docstore.NewMemoryFeed()
	l, err := New(Opts{DB: gdb, Feed: feed})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, gdb, feed
}

func TestNew_NilDB(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Fatal("expected error for nil DB")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		max    int
		want   string
		wantOK bool
	}{
		{name: "plain", in: "hello", max: 10, want: "hello", wantOK: true},
		{name: "trimmed", in: "  hi \n", max: 10, want: "hi", wantOK: true},
		{name: "empty", in: "", max: 10, wantOK: false},
		{name: "whitespace only", in: " \t\n ", max: 10, wantOK: false},
		{name: "truncated by runes", in: "轧机生产线报价", max: 3, want: "轧机生", wantOK: true},
		{name: "no limit", in: "abc", max: 0, want: "abc", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeText(tt.in, tt.max)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeText(%q, %d) = (%q, %v), want (%q, %v)", tt.in, tt.max, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAppend_Success(t *testing.T) {
	l, gdb, _ := openTestLog(t)

	id := l.Append(context.Background(), Entry{
		SessionID: "s1",
		From:      models.RoleVisitor,
		Text:      "  Do you ship to Kazakhstan?  ",
		Pathname:  "/en/products/seamless-mill",
	})
	if id == 0 {
		t.Fatal("expected message id")
	}

	var msg models.ChatMessage
	gdb.First(&msg, id)
	if msg.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", msg.SessionID)
	}
	if msg.From != models.RoleVisitor {
		t.Errorf("From = %q, want visitor", msg.From)
	}
	if msg.Text != "Do you ship to Kazakhstan?" {
		t.Errorf("Text = %q, want trimmed text", msg.Text)
	}
	if msg.Pathname != "/en/products/seamless-mill" {
		t.Errorf("Pathname = %q", msg.Pathname)
	}
	if msg.Read {
		t.Error("visitor message should be unread")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt should be server-assigned")
	}
}

func TestAppend_IgnoresInvalidInput(t *testing.T) {
	l, gdb, _ := openTestLog(t)
	ctx := context.Background()

	cases := []Entry{
		{SessionID: "", From: models.RoleVisitor, Text: "no session"},
		{SessionID: "s1", From: models.RoleVisitor, Text: "   "},
		{SessionID: "s1", From: "operator", Text: "unknown role"},
	}
	for _, e := range cases {
		if id := l.Append(ctx, e); id != 0 {
			t.Errorf("Append(%+v) = %d, want 0", e, id)
		}
	}
	var count int64
	gdb.Model(&models.ChatMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("stored %d messages, want 0", count)
	}
}

func TestAppend_TruncatesLongText(t *testing.T) {
	gdb, _ := db.OpenMemory()
	l, _ := New(Opts{DB: gdb, MaxTextRunes: 5})

	id := l.Append(context.Background(), Entry{SessionID: "s1", From: models.RoleVisitor, Text: "abcdefghij"})
	var msg models.ChatMessage
	gdb.First(&msg, id)
	if msg.Text != "abcde" {
		t.Errorf("Text = %q, want abcde", msg.Text)
	}
}

func TestAppend_StoreFailureIsSwallowed(t *testing.T) {
	l, gdb, _ := openTestLog(t)
	sqlDB, _ := gdb.DB()
	sqlDB.Close()

	if id := l.Append(context.Background(), Entry{SessionID: "s1", From: models.RoleVisitor, Text: "hi"}); id != 0 {
		t.Errorf("Append on closed store = %d, want 0", id)
	}
}

func TestAppend_PublishesChange(t *testing.T) {
	l, _, feed := openTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := feed.Subscribe(ctx, docstore.Messages)
	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "hi"})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("append did not publish")
	}
}

func TestSnapshot_OrderedByCreatedAtThenInsertion(t *testing.T) {
	l, gdb, _ := openTestLog(t)
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	// Written out of time order; two share a timestamp.
	rows := []models.ChatMessage{
		{SessionID: "s1", From: models.RoleVisitor, Text: "third", CreatedAt: base.Add(2 * time.Second)},
		{SessionID: "s1", From: models.RoleVisitor, Text: "first", CreatedAt: base},
		{SessionID: "s1", From: models.RoleBot, Text: "second-a", CreatedAt: base.Add(time.Second)},
		{SessionID: "s1", From: models.RoleBot, Text: "second-b", CreatedAt: base.Add(time.Second)},
		{SessionID: "s2", From: models.RoleVisitor, Text: "other", CreatedAt: base},
	}
	for i := range rows {
		if err := gdb.Create(&rows[i]).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	msgs, err := l.Snapshot(context.Background(), Filter{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	var got []string
	for _, m := range msgs {
		got = append(got, m.Text)
	}
	want := "first,second-a,second-b,third"
	if strings.Join(got, ",") != want {
		t.Errorf("order = %v, want %s", got, want)
	}

	all, _ := l.Snapshot(context.Background(), Filter{})
	if len(all) != 5 {
		t.Errorf("all messages = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Errorf("all snapshot not ascending at %d", i)
		}
	}
}

func TestSubscribe_FullSnapshotOnEveryChange(t *testing.T) {
	l, _, _ := openTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := l.Subscribe(ctx, Filter{SessionID: "s1"})
	if snap := <-ch; len(snap) != 0 {
		t.Fatalf("initial snapshot = %d messages, want 0", len(snap))
	}

	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "one"})
	waitForLen(t, ch, 1)

	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleBot, Text: "two", Read: true})
	snap := waitForLen(t, ch, 2)
	if snap[0].Text != "one" || snap[1].Text != "two" {
		t.Errorf("snapshot = %q,%q; want one,two", snap[0].Text, snap[1].Text)
	}
}

func TestSubscribe_IgnoresOtherSessions(t *testing.T) {
	l, _, _ := openTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := l.Subscribe(ctx, Filter{SessionID: "s1"})
	<-ch
	l.Append(ctx, Entry{SessionID: "s2", From: models.RoleVisitor, Text: "elsewhere"})

	select {
	case snap := <-ch:
		t.Fatalf("unexpected emission with %d messages", len(snap))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMarkRead_OnlyUnreadVisitorMessagesOfSession(t *testing.T) {
	l, gdb, _ := openTestLog(t)
	ctx := context.Background()

	v1 := l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "a"})
	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleBot, Text: "b", Read: true})
	v2 := l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "c"})
	other := l.Append(ctx, Entry{SessionID: "s2", From: models.RoleVisitor, Text: "d"})

	if n := l.MarkRead(ctx, "s1"); n != 2 {
		t.Errorf("MarkRead = %d, want 2", n)
	}
	for _, id := range []uint{v1, v2} {
		var m models.ChatMessage
		gdb.First(&m, id)
		if !m.Read {
			t.Errorf("message %d still unread", id)
		}
	}
	var m models.ChatMessage
	gdb.First(&m, other)
	if m.Read {
		t.Error("message in another session was marked read")
	}

	// Second pass has nothing to do.
	if n := l.MarkRead(ctx, "s1"); n != 0 {
		t.Errorf("second MarkRead = %d, want 0", n)
	}
}

func TestMarkRead_Monotonic(t *testing.T) {
	l, gdb, _ := openTestLog(t)
	ctx := context.Background()

	id := l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "a"})
	l.MarkRead(ctx, "s1")

	// Further traffic in the session never clears the flag.
	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "b"})
	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleBot, Text: "c", Read: true})
	l.MarkRead(ctx, "s1")

	var m models.ChatMessage
	gdb.First(&m, id)
	if !m.Read {
		t.Error("read flag went back to false")
	}
}

func TestDeleteSession(t *testing.T) {
	l, gdb, _ := openTestLog(t)
	ctx := context.Background()

	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleVisitor, Text: "a"})
	l.Append(ctx, Entry{SessionID: "s1", From: models.RoleBot, Text: "b", Read: true})
	l.Append(ctx, Entry{SessionID: "s2", From: models.RoleVisitor, Text: "c"})

	if n := l.DeleteSession(ctx, "s1"); n != 2 {
		t.Errorf("DeleteSession = %d, want 2", n)
	}
	var count int64
	gdb.Model(&models.ChatMessage{}).Where("session_id = ?", "s1").Count(&count)
	if count != 0 {
		t.Errorf("s1 messages left = %d, want 0", count)
	}
	gdb.Model(&models.ChatMessage{}).Count(&count)
	if count != 1 {
		t.Errorf("total messages = %d, want 1", count)
	}
	if n := l.DeleteSession(ctx, ""); n != 0 {
		t.Errorf("DeleteSession(\"\") = %d, want 0", n)
	}
}

func waitForLen(t *testing.T, ch <-chan []models.ChatMessage, n int) []models.ChatMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap) == n {
				return snap
			}
		case <-deadline:
			t.Fatalf("no snapshot with %d messages", n)
			return nil
		}
	}
}
