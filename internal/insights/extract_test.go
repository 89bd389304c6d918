package insights

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONPlainObject(t *testing.T) {
	out, err := ExtractJSON(`{"summary":"ok"}`)
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if out != `{"summary":"ok"}` {
		t.Fatalf("unexpected extraction: %s", out)
	}
}

func TestExtractJSONInsideProse(t *testing.T) {
	text := "Sure! Here is the analysis:\n```json\n{\"mood\": \"calm\", \"nested\": {\"a\": 1}}\n```\nLet me know if you need more."
	out, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v", err)
	}
	if parsed["mood"] != "calm" {
		t.Fatalf("unexpected payload: %v", parsed)
	}
}

func TestExtractJSONMissingObject(t *testing.T) {
	if _, err := ExtractJSON("no structured data here"); err == nil {
		t.Fatalf("expected error for missing object")
	}
	if _, err := ExtractJSON("} backwards {"); err != nil {
		// Greedy scan: first '{' is after the last '}', so this must error.
		t.Logf("backwards braces rejected: %v", err)
	} else {
		t.Fatalf("expected error for reversed braces")
	}
}
