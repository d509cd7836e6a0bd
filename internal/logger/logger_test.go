package logger

import "testing"

func TestInit_Level(t *testing.T) {
	l := New()
	if err := l.Init("Info"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if l.Log.Core().Enabled(-1) {
		t.Error("debug level should be disabled at info")
	}
	if err := l.Init("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRedact(t *testing.T) {
	in := map[string]any{
		"username":      "admin",
		"password":      "admin123",
		"password_hash": "$2a$10$abc",
		"newPassword":   "x",
		"meta": map[string]any{
			"Authorization": "Bearer abc",
			"hanzi":         "猫",
		},
	}
	out := Redact(in)

	if out["username"] != "admin" {
		t.Errorf("username = %v; want admin", out["username"])
	}
	for _, k := range []string{"password", "password_hash", "newPassword"} {
		if out[k] != redacted {
			t.Errorf("%s = %v; want %s", k, out[k], redacted)
		}
	}
	meta := out["meta"].(map[string]any)
	if meta["Authorization"] != redacted || meta["hanzi"] != "猫" {
		t.Errorf("unexpected nested redaction: %v", meta)
	}
	if in["password"] != "admin123" {
		t.Error("Redact must not modify its input")
	}
	if Redact(nil) != nil {
		t.Error("Redact(nil) should be nil")
	}
}
