package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatter(t *testing.T) {
	f := NewFormatter(FormatJSON)

	data := map[string]any{"ok": false, "violations": []string{"blocked_import"}}
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["ok"] != false {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("output not indented")
	}
}

func TestTextFormatter(t *testing.T) {
	f := NewFormatter(FormatText)

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, "2 violations"); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "2 violations\n" {
		t.Errorf("output = %q", got)
	}
}

func TestNewFormatterFallsBackToText(t *testing.T) {
	if _, ok := NewFormatter("xml").(*TextFormatter); !ok {
		t.Error("unknown format should fall back to text")
	}
}
