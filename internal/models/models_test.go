package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestChatMessage_Fields(t *testing.T) {
	typ := reflect.TypeOf(ChatMessage{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "SessionID", "not null")
	assertGormTag(t, typ, "SessionID", "index:idx_session_created")
	assertGormTag(t, typ, "CreatedAt", "index:idx_session_created")
	assertGormTag(t, typ, "From", "size:16")
	assertGormTag(t, typ, "Text", "type:text")
	assertGormTag(t, typ, "Read", "default:false")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
	assertFieldType(t, typ, "Read", "bool")
}

func TestChatMessage_CreatedAtMillis(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)
	m := ChatMessage{CreatedAt: ts}
	if got := m.CreatedAtMillis(); got != ts.UnixMilli() {
		t.Errorf("CreatedAtMillis = %d, want %d", got, ts.UnixMilli())
	}
}

func TestPresenceStatus_Fields(t *testing.T) {
	typ := reflect.TypeOf(PresenceStatus{})

	assertGormTag(t, typ, "Key", "primaryKey")
	assertGormTag(t, typ, "UpdatedAt", "autoUpdateTime:false")
	assertFieldType(t, typ, "Online", "bool")
	if PresenceKey != "adminStatus" {
		t.Errorf("PresenceKey = %q, want adminStatus", PresenceKey)
	}
}

func TestLead_Fields(t *testing.T) {
	typ := reflect.TypeOf(Lead{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Source", "not null")
	assertGormTag(t, typ, "Source", "index")
	assertGormTag(t, typ, "Need", "type:text")
	assertFieldType(t, typ, "SessionID", "*string")
}

func TestLead_SourceValues(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range []string{SourceScripted, SourceArchive, SourceManual} {
		if s == "" {
			t.Error("empty source constant")
		}
		if seen[s] {
			t.Errorf("duplicate source %q", s)
		}
		seen[s] = true
	}
}
