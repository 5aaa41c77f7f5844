package intake

import (
	"testing"

	"github.com/studiodesk/support-tickets/internal/domain"
)

func TestClassifyEmailFirstRuleWins(t *testing.T) {
	rules := []domain.EmailRule{
		{ID: "r1", MatchKeywords: []string{"refund"}},
		{ID: "r2", MatchKeywords: []string{"reformer", "Refund"}},
		{ID: "r3", MatchKeywords: []string{"spring"}},
	}
	rule, ok := ClassifyEmail("Refund request", "The reformer spring snapped", rules)
	if !ok || rule.ID != "r1" {
		t.Fatalf("expected r1, got %+v", rule)
	}
}

func TestClassifyEmailCaseInsensitiveSubstring(t *testing.T) {
	rules := []domain.EmailRule{{ID: "r1", MatchKeywords: []string{"  BOOKING  "}}}
	rule, ok := ClassifyEmail("hi", "my rebooking failed", rules)
	if !ok || rule.ID != "r1" {
		t.Fatalf("expected substring match, got %+v %v", rule, ok)
	}
}

func TestClassifyEmailMatchesAcrossSubjectAndBody(t *testing.T) {
	rules := []domain.EmailRule{{ID: "r1", MatchKeywords: []string{"class pass"}}}
	if _, ok := ClassifyEmail("class", "pass", rules); ok {
		t.Fatalf("keyword must not span the subject/body boundary")
	}
	if _, ok := ClassifyEmail("Class Pass expired", "", rules); !ok {
		t.Fatalf("expected subject match")
	}
}

func TestClassifyEmailNoMatch(t *testing.T) {
	rules := []domain.EmailRule{
		{ID: "blank", MatchKeywords: []string{"", "   "}},
		{ID: "r2", MatchKeywords: []string{"invoice"}},
	}
	if rule, ok := ClassifyEmail("Hello", "Just saying hi", rules); ok {
		t.Fatalf("expected no match, got %+v", rule)
	}
	if _, ok := ClassifyEmail("Hello", "Just saying hi", nil); ok {
		t.Fatalf("expected no match with no rules")
	}
}

func TestMatchWebhookRule(t *testing.T) {
	rules := []domain.WebhookRule{
		{ID: "inactive", Key: "abc123", IsActive: false},
		{ID: "first", Key: "abc123", IsActive: true},
		{ID: "second", Key: "abc123", IsActive: true},
		{ID: "other", Key: "zzz", IsActive: true},
	}
	rule, ok := MatchWebhookRule("abc123", rules)
	if !ok || rule.ID != "first" {
		t.Fatalf("expected first active rule, got %+v", rule)
	}
	if _, ok := MatchWebhookRule("ABC123", rules); ok {
		t.Fatalf("key match must be exact")
	}
	if _, ok := MatchWebhookRule("", []domain.WebhookRule{{ID: "empty", IsActive: true}}); ok {
		t.Fatalf("empty key must never match")
	}
}

func TestDuplicateWebhookKeys(t *testing.T) {
	rules := []domain.WebhookRule{
		{Key: "a", IsActive: true},
		{Key: "b", IsActive: true},
		{Key: "a", IsActive: true},
		{Key: "b", IsActive: false},
	}
	dups := DuplicateWebhookKeys(rules)
	if len(dups) != 1 || dups[0] != "a" {
		t.Fatalf("expected [a], got %v", dups)
	}
}
