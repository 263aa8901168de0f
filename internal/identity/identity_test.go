package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type failingStorage struct{}

func (failingStorage) Get(string) (string, bool) { return "", false }
func (failingStorage) Set(string, string) error  { return errors.New("storage disabled") }

func TestGetOrCreateSessionID_Stable(t *testing.T) {
	s := NewMemoryStorage()
	first := GetOrCreateSessionID(s)
	if first == "" {
		t.Fatal("expected a session id")
	}
	for i := 0; i < 3; i++ {
		if got := GetOrCreateSessionID(s); got != first {
			t.Errorf("call %d = %q, want %q", i, got, first)
		}
	}
}

func TestGetOrCreateSessionID_SeparateDevices(t *testing.T) {
	a := GetOrCreateSessionID(NewMemoryStorage())
	b := GetOrCreateSessionID(NewMemoryStorage())
	if a == b {
		t.Errorf("two devices share session id %q", a)
	}
}

func TestGetOrCreateSessionID_NilStorage(t *testing.T) {
	if got := GetOrCreateSessionID(nil); got != "" {
		t.Errorf("GetOrCreateSessionID(nil) = %q, want empty", got)
	}
}

func TestGetOrCreateSessionID_UnwritableStorage(t *testing.T) {
	if got := GetOrCreateSessionID(failingStorage{}); got != "" {
		t.Errorf("GetOrCreateSessionID(failing) = %q, want empty", got)
	}
}

func TestGetOrCreateSessionID_ReplacesOversizedID(t *testing.T) {
	s := NewMemoryStorage()
	s.Set(SessionKey, strings.Repeat("x", MaxSessionIDLen+1))

	id := GetOrCreateSessionID(s)
	if !ValidSessionID(id) {
		t.Fatalf("GetOrCreateSessionID = %q, want a fresh valid id", id)
	}
	if stored, _ := s.Get(SessionKey); stored != id {
		t.Errorf("stored = %q, want %q", stored, id)
	}
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{NewSessionID(), true},
		{strings.Repeat("a", MaxSessionIDLen), true},
		{strings.Repeat("a", MaxSessionIDLen+1), false},
	}
	for _, tt := range tests {
		if got := ValidSessionID(tt.id); got != tt.want {
			t.Errorf("ValidSessionID(%d chars) = %v, want %v", len(tt.id), got, tt.want)
		}
	}
}

func TestNewSessionID_TimeComponent(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id, err := uuid.Parse(NewSessionID())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Version() != 7 {
		t.Errorf("version = %d, want 7", id.Version())
	}
	var ms int64
	for _, b := range id[:6] {
		ms = ms<<8 | int64(b)
	}
	ts := time.UnixMilli(ms)
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("embedded time %v not close to now", ts)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d", id, i)
		}
		seen[id] = true
	}
}

func TestCookieStorage_RoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/mount", nil)
	rec := httptest.NewRecorder()
	s := NewCookieStorage(rec, req)

	id := GetOrCreateSessionID(s)
	if id == "" {
		t.Fatal("expected id")
	}
	// Visible within the same exchange.
	if got := GetOrCreateSessionID(s); got != id {
		t.Errorf("second call = %q, want %q", got, id)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionKey || cookies[0].Value != id {
		t.Fatalf("cookies = %+v, want one %s=%s", cookies, SessionKey, id)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	// Next request from the same browser.
	req2 := httptest.NewRequest(http.MethodPost, "/api/chat/mount", nil)
	req2.AddCookie(cookies[0])
	s2 := NewCookieStorage(httptest.NewRecorder(), req2)
	if got := GetOrCreateSessionID(s2); got != id {
		t.Errorf("reload id = %q, want %q", got, id)
	}
}

func TestFileStorage_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "device.json")
	id := GetOrCreateSessionID(NewFileStorage(path))
	if id == "" {
		t.Fatal("expected id")
	}
	if got := GetOrCreateSessionID(NewFileStorage(path)); got != id {
		t.Errorf("reopened id = %q, want %q", got, id)
	}
}
