package intake

import "testing"

func TestExtractWebhookFieldsAliases(t *testing.T) {
	fields := ExtractWebhookFields(map[string]any{
		"subject": "Broken reformer",
		"body":    "   ",
		"message": "spring snapped",
		"email":   "ana@example.com",
		"name":    42,
	})
	if fields.Title != "Broken reformer" {
		t.Fatalf("unexpected title %q", fields.Title)
	}
	if fields.Description != "spring snapped" {
		t.Fatalf("expected blank body to fall through to message, got %q", fields.Description)
	}
	if fields.CustomerEmail != "ana@example.com" {
		t.Fatalf("unexpected email %q", fields.CustomerEmail)
	}
	if fields.CustomerName != "" {
		t.Fatalf("non-string values must be ignored, got %q", fields.CustomerName)
	}
}

func TestExtractWebhookFieldsPrefersCanonicalKeys(t *testing.T) {
	fields := ExtractWebhookFields(map[string]any{
		"title":         "Primary",
		"subject":       "Secondary",
		"customerEmail": "a@example.com",
		"email":         "b@example.com",
	})
	if fields.Title != "Primary" || fields.CustomerEmail != "a@example.com" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestRawMessageSender(t *testing.T) {
	cases := []struct {
		from, name, address string
	}{
		{"Ana Lima <ana@example.com>", "Ana Lima", "ana@example.com"},
		{"ana@example.com", "", "ana@example.com"},
		{"", "", ""},
		{"Front Desk", "Front Desk", ""},
	}
	for _, tc := range cases {
		name, address := RawMessage{From: tc.from}.Sender()
		if name != tc.name || address != tc.address {
			t.Fatalf("Sender(%q) = %q, %q", tc.from, name, address)
		}
	}
}

func TestRawMessageContentFallsBackToSnippet(t *testing.T) {
	if got := (RawMessage{Snippet: "short"}).Content(); got != "short" {
		t.Fatalf("unexpected content %q", got)
	}
}
